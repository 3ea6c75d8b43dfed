package dao

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/calehh/dao-app/types"
	"github.com/cometbft/cometbft/crypto"
)

// isAddress reports whether addr is a signer address in its canonical form,
// upper case hex of crypto.AddressSize bytes, as produced by Address.String.
func isAddress(addr string) bool {
	if len(addr) != 2*crypto.AddressSize || strings.ToUpper(addr) != addr {
		return false
	}
	_, err := hex.DecodeString(addr)
	return err == nil
}

// AddMember registers newMember and funds it with the configured allotment
// out of the admin's token balance.
func (e *Engine) AddMember(env *Env, admin, newMember string) (event *types.EventAddMember, err error) {
	if err = env.RequireAuth(admin); err != nil {
		return
	}
	if err = requireInitialized(env.Store); err != nil {
		return
	}
	recorded, err := getAdmin(env.Store)
	if err != nil {
		return
	}
	if admin != recorded {
		err = fmt.Errorf("%w: %v is not the dao admin", ErrUnauthorized, admin)
		return
	}
	if !isAddress(newMember) {
		err = fmt.Errorf("%w: member %q is not a signer address", ErrInvalidAddress, newMember)
		return
	}
	exists, err := hasMember(env.Store, newMember)
	if err != nil {
		return
	}
	if exists {
		err = fmt.Errorf("%w: %v", ErrDuplicateMember, newMember)
		return
	}
	token, err := getTokenAddress(env.Store)
	if err != nil {
		return
	}
	amount := new(big.Int).Set(e.params.MemberAllotment)
	if err = e.ledger.Transfer(env.Store, token, admin, newMember, amount); err != nil {
		err = fmt.Errorf("%w: allotment transfer: %w", ErrExternalCallFailed, err)
		return
	}
	member := &types.Member{
		Address:         newMember,
		TokenBalance:    amount,
		JoinedTimestamp: env.Now(),
		VotedProposals:  []uint32{},
	}
	if err = saveMember(env.Store, member); err != nil {
		return
	}
	e.logger.Info("member added", "member", newMember, "amount", amount)
	event = &types.EventAddMember{
		Member:    newMember,
		Admin:     admin,
		Amount:    amount.String(),
		Timestamp: member.JoinedTimestamp,
	}
	return
}
