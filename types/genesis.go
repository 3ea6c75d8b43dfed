package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for the DAO chain, its validator set and app_state.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// AppState is the app_state section of the genesis file.
type AppState struct {
	Tokens []TokenGenesis `json:"tokens"`
	DAO    *DAOGenesis    `json:"dao,omitempty"`
}

type TokenGenesis struct {
	Address  string           `json:"address"`
	Balances []GenesisBalance `json:"balances"`
}

type GenesisBalance struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// DAOGenesis initializes the instance at genesis instead of through an initialize tx.
type DAOGenesis struct {
	Admin string `json:"admin"`
	Token string `json:"token"`
}

func ParseAppState(dat []byte) (st *AppState, err error) {
	st = new(AppState)
	if len(dat) == 0 {
		return
	}
	err = json.Unmarshal(dat, st)
	if err != nil {
		return nil, err
	}
	err = st.Validate()
	if err != nil {
		return nil, err
	}
	return
}

func (st *AppState) Validate() error {
	for _, tk := range st.Tokens {
		if tk.Address == "" {
			return errors.New("genesis token must include address")
		}
		for _, b := range tk.Balances {
			amount, ok := ParseAmount(b.Amount)
			if !ok || amount.Sign() < 0 {
				return fmt.Errorf("invalid genesis balance %q for %v", b.Amount, b.Address)
			}
		}
	}
	if st.DAO != nil && (st.DAO.Admin == "" || st.DAO.Token == "") {
		return errors.New("genesis dao must include admin and token")
	}
	return nil
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if len(ag.AppState) != 0 {
		if _, err := ParseAppState(ag.AppState); err != nil {
			return fmt.Errorf("invalid app_state: %w", err)
		}
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const (
	DAOModuleName   = "dao"
	TokenModuleName = "token"
	DefaultPower    = 1000
)

// DAOAddress is the identity of the engine instance, used as invoker when a proposal is dispatched.
func DAOAddress() string {
	return crypto.AddressHash([]byte(DAOModuleName)).String()
}

// DefaultTokenAddress is the address of the native token ledger created by `init`.
func DefaultTokenAddress() string {
	return crypto.AddressHash([]byte(TokenModuleName)).String()
}
