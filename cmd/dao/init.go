package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	app_config "github.com/calehh/dao-app/config"
	"github.com/calehh/dao-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/spf13/cobra"
)

const defaultSupply = "1000000"

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Admin      string          `json:"admin" yaml:"admin"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize validator's and node's configuration files.
The genesis mints the governance token supply to the admin, which defaults to
the validator key address. With --genesis-dao the DAO instance is initialized
at genesis with that admin and token.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(types.FlagHome, "", "home directory")
	initCmd.Flags().String(types.FlagAdmin, "", "address receiving the token supply, defaults to the validator address")
	initCmd.Flags().String(types.FlagSupply, defaultSupply, "governance token supply minted at genesis")
	initCmd.Flags().Bool(types.FlagGenesisDAO, false, "initialize the DAO instance at genesis")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	admin, _ := cmd.Flags().GetString(types.FlagAdmin)
	supply, _ := cmd.Flags().GetString(types.FlagSupply)
	genesisDAO, _ := cmd.Flags().GetBool(types.FlagGenesisDAO)

	if chainID == "" {
		chainID = fmt.Sprintf("dao-chain-%v", rand.Uint64())
	}
	appConfig := app_config.DefaultConfig(home)
	appConfig.SetRoot(appConfig.RootDir)

	genFile := appConfig.GenesisFile()
	if !overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis.json file already exists: %v", genFile)
	}

	nodeID, pk, err := app_config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	vals := []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}}
	if admin == "" {
		admin = pk.Address().String()
	}

	tokenAddr := types.DefaultTokenAddress()
	appState := types.AppState{
		Tokens: []types.TokenGenesis{{
			Address:  tokenAddr,
			Balances: []types.GenesisBalance{{Address: admin, Amount: supply}},
		}},
	}
	if genesisDAO {
		appState.DAO = &types.DAOGenesis{Admin: admin, Token: tokenAddr}
	}
	if err = appState.Validate(); err != nil {
		return err
	}
	appStateBz, err := json.Marshal(appState)
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appStateBz,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = app_config.WriteConfigFiles(appConfig); err != nil {
		return err
	}
	return displayInfo(printInfo{ChainID: chainID, NodeID: nodeID, Admin: admin, AppMessage: appGenesis.AppState})
}
