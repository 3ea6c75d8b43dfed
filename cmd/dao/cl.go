package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/dao-app/agent"
	"github.com/calehh/dao-app/app"
	app_config "github.com/calehh/dao-app/config"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "dao",
	Short: "dao runs a member governed DAO chain",
	Long: `A single instance DAO: token weighted members create proposals,
vote on them and execute the passed ones against native contracts.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	homeFlag(clCmd, &homeDir)
}

func loadConfig(home string) (*app_config.Config, error) {
	appConfig := app_config.DefaultConfig(home)
	appConfig.SetRoot(appConfig.RootDir)

	v := viper.New()
	v.SetConfigFile(filepath.Join(appConfig.RootDir, "config", app_config.ConfigFileName))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	appFile := filepath.Join(appConfig.RootDir, "config", app_config.AppFileName)
	if _, err := os.Stat(appFile); err == nil {
		v.SetConfigFile(appFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	if err := v.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	appConfig.App.Home = appConfig.RootDir
	if err := appConfig.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return appConfig, nil
}

func rpcURL(listenAddr string) (string, error) {
	u, err := url.Parse(listenAddr)
	if err != nil {
		return "", err
	}
	u.Scheme = "http"
	return u.String(), nil
}

func run(cmd *cobra.Command, args []string) {
	appConfig, err := loadConfig(homeDir)
	if err != nil {
		log.Fatal(err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	daoApp, err := app.NewDAOApp(appConfig.App, logger, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(daoApp),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	daoApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	// start indexer
	rpcUrl, err := rpcURL(appConfig.RPC.ListenAddress)
	if err != nil {
		log.Fatalf("parse rpc url err %s", err.Error())
	}
	db, err := agent.OpenDB(appConfig.App.IndexerDBPath())
	if err != nil {
		log.Fatalf("open indexer db err %s", err.Error())
	}
	cli, err := agent.NewRPCClient(rpcUrl)
	if err != nil {
		log.Fatalf("new rpc client err %s", err.Error())
	}
	indexer, err := agent.NewChainIndexer(logger, db, cli)
	if err != nil {
		log.Fatalf("new chain indexer err %s", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	go indexer.Start(ctx)

	service := agent.NewService(appConfig.App.IndexerListen, indexer)
	go func() {
		if err := service.Start(); err != nil {
			logger.Error("indexer service stopped", "err", err)
		}
	}()

	defer func() {
		log.Println("shut down...")
		done := make(chan struct{})
		go func() {
			defer close(done)
			cancel()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = service.Stop(sctx)
			if err := node.Stop(); err != nil {
				logger.Error("stop comet node", "err", err)
			}
			node.Wait()
			daoApp.Stop()
			db.Close()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
