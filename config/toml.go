package config

import (
	"bytes"
	"path/filepath"

	"github.com/BurntSushi/toml"
	cmtcfg "github.com/cometbft/cometbft/config"
	cmtos "github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

const (
	ConfigFileName = "config.toml"
	AppFileName    = "app.toml"
)

type appFile struct {
	App *DAOAppConfig `toml:"app"`
}

// WriteConfigFiles writes the consensus config.toml and the app.toml holding
// the [app] section, both under <home>/config.
func WriteConfigFiles(config *Config) error {
	dir := filepath.Join(config.RootDir, "config")
	if err := cmtos.EnsureDir(dir, DefaultDirPerm); err != nil {
		return err
	}
	cmtcfg.WriteConfigFile(filepath.Join(dir, ConfigFileName), config.Config)
	return WriteAppConfigFile(filepath.Join(dir, AppFileName), config.App)
}

func WriteAppConfigFile(path string, app *DAOAppConfig) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(appFile{App: app}); err != nil {
		return err
	}
	return cmtos.WriteFile(path, buffer.Bytes(), 0o644)
}

// LoadAppConfigFile reads an app.toml over the defaults for home.
func LoadAppConfigFile(path, home string) (*DAOAppConfig, error) {
	f := appFile{App: DefaultDAOAppConfig(home)}
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, err
	}
	f.App.Home = home
	return f.App, nil
}
