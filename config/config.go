package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/dao-app/dao"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultHomeDir       = ".dao"
	DefaultIndexerListen = "127.0.0.1:8090"
	DefaultIndexerDB     = "indexer.db"
)

type DAOAppConfig struct {
	Home            string `mapstructure:"-" toml:"-"`
	MemberAllotment int64  `mapstructure:"member_allotment" toml:"member_allotment"`
	ExecutionWindow string `mapstructure:"execution_window" toml:"execution_window"`
	IndexerListen   string `mapstructure:"indexer_listen" toml:"indexer_listen"`
	IndexerDB       string `mapstructure:"indexer_db" toml:"indexer_db"`
}

func DefaultDAOAppConfig(home string) *DAOAppConfig {
	return &DAOAppConfig{
		Home:            home,
		MemberAllotment: dao.DefaultMemberAllotment,
		ExecutionWindow: string(dao.ExecuteAfterDeadline),
		IndexerListen:   DefaultIndexerListen,
		IndexerDB:       DefaultIndexerDB,
	}
}

func (cfg *DAOAppConfig) ValidateBasic() error {
	if cfg.MemberAllotment <= 0 {
		return errors.New("member_allotment must be positive")
	}
	if _, err := dao.ParseExecutionWindow(cfg.ExecutionWindow); err != nil {
		return err
	}
	return nil
}

// Params converts the app section into engine parameters.
func (cfg *DAOAppConfig) Params() (params dao.Params, err error) {
	if err = cfg.ValidateBasic(); err != nil {
		return
	}
	params = dao.DefaultParams()
	params.MemberAllotment.SetInt64(cfg.MemberAllotment)
	params.ExecutionWindow, err = dao.ParseExecutionWindow(cfg.ExecutionWindow)
	return
}

// IndexerDBPath resolves IndexerDB against the data directory.
func (cfg *DAOAppConfig) IndexerDBPath() string {
	if filepath.IsAbs(cfg.IndexerDB) {
		return cfg.IndexerDB
	}
	return filepath.Join(cfg.Home, "data", cfg.IndexerDB)
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *DAOAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/" + DefaultHomeDir)
	}
	config := &Config{
		DefaultDAOCometConfig(),
		DefaultDAOAppConfig(home),
	}
	config.RootDir = home
	_ = os.MkdirAll(filepath.Join(home, "config"), DefaultDirPerm)
	return config
}

func (cfg *Config) ValidateBasic() error {
	if err := cfg.Config.ValidateBasic(); err != nil {
		return err
	}
	if cfg.App == nil {
		return errors.New("missing app config")
	}
	if err := cfg.App.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [app] section: %w", err)
	}
	return nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultDAOCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
