package dao

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/types"
)

// Instance scope.
var (
	KeyTokenAddress  = "token"
	KeyAdmin         = "admin"
	KeyProposalCount = "pi"
	KeyInitialized   = "init"
)

// Entity scope.
var (
	KeyMemberBody     = "m/%s"
	KeyProposalBody   = "p/%08x"
	KeyMemberPrefix   = "m/"
	KeyProposalPrefix = "p/"
)

func isInitialized(st state.KVStore) (bool, error) {
	return st.Has(state.ScopeInstance, []byte(KeyInitialized))
}

func getInstanceString(st state.KVStore, key string) (string, error) {
	val, err := st.Get(state.ScopeInstance, []byte(key))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return "", ErrNotInitialized
		}
		return "", err
	}
	return string(val), nil
}

func getTokenAddress(st state.KVStore) (string, error) {
	return getInstanceString(st, KeyTokenAddress)
}

func getAdmin(st state.KVStore) (string, error) {
	return getInstanceString(st, KeyAdmin)
}

func getProposalCount(st state.KVStore) (uint32, error) {
	val, err := st.Get(state.ScopeInstance, []byte(KeyProposalCount))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return 0, ErrNotInitialized
		}
		return 0, err
	}
	return uint32(new(big.Int).SetBytes(val).Uint64()), nil
}

func setProposalCount(st state.KVStore, count uint32) error {
	return st.Set(state.ScopeInstance, []byte(KeyProposalCount), big.NewInt(int64(count)).Bytes())
}

func memberKey(addr string) []byte {
	return []byte(fmt.Sprintf(KeyMemberBody, addr))
}

func proposalKey(id uint32) []byte {
	return []byte(fmt.Sprintf(KeyProposalBody, id))
}

func hasMember(st state.KVStore, addr string) (bool, error) {
	return st.Has(state.ScopeEntity, memberKey(addr))
}

func loadMember(st state.KVStore, addr string) (member *types.Member, err error) {
	val, err := st.Get(state.ScopeEntity, memberKey(addr))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			err = ErrMemberNotFound
		}
		return nil, err
	}
	member = new(types.Member)
	err = json.Unmarshal(val, member)
	if err != nil {
		return nil, err
	}
	return
}

func saveMember(st state.KVStore, member *types.Member) error {
	val, err := json.Marshal(member)
	if err != nil {
		return err
	}
	return st.Set(state.ScopeEntity, memberKey(member.Address), val)
}

func loadProposal(st state.KVStore, id uint32) (proposal *types.Proposal, err error) {
	val, err := st.Get(state.ScopeEntity, proposalKey(id))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			err = ErrProposalNotFound
		}
		return nil, err
	}
	proposal = new(types.Proposal)
	err = json.Unmarshal(val, proposal)
	if err != nil {
		return nil, err
	}
	return
}

func saveProposal(st state.KVStore, proposal *types.Proposal) error {
	val, err := json.Marshal(proposal)
	if err != nil {
		return err
	}
	return st.Set(state.ScopeEntity, proposalKey(proposal.Id), val)
}

// GetMember is a pure read; it returns ErrMemberNotFound for unknown addresses.
func GetMember(st state.KVStore, addr string) (*types.Member, error) {
	return loadMember(st, addr)
}

// GetProposal is a pure read; it returns ErrProposalNotFound for unknown ids.
func GetProposal(st state.KVStore, id uint32) (*types.Proposal, error) {
	return loadProposal(st, id)
}

// ListMembers walks the member registry of a committed view in address order.
func ListMembers(v *state.View) (members []*types.Member, err error) {
	members = make([]*types.Member, 0)
	var decodeErr error
	err = v.Iterate(state.ScopeEntity, []byte(KeyMemberPrefix), func(key, value []byte) bool {
		m := new(types.Member)
		if decodeErr = json.Unmarshal(value, m); decodeErr != nil {
			return false
		}
		members = append(members, m)
		return true
	})
	if err == nil {
		err = decodeErr
	}
	return
}
