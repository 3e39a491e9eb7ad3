package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	bls "github.com/herumi/bls-eth-go-binary/bls"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	core "transferledger/core"
	pkgconfig "transferledger/pkg/config"
	"transferledger/walletserver/controllers"
	"transferledger/walletserver/routes"
	"transferledger/walletserver/services"
)

func main() {
	root := &cobra.Command{Use: "replicad"}
	root.AddCommand(genesisCmd())
	root.AddCommand(serveCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func genesisCmd() *cobra.Command {
	var rootDir string
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "bootstrap a fresh store directory with the founding genesis credit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(rootDir, 0o755); err != nil {
				return fmt.Errorf("create root dir: %w", err)
			}
			secret, pub := core.GenerateKeyPair()
			peers := &core.PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pub}}
			info := core.NewReplicaInfo(0, secret, peers)
			signing := core.NewSigningService(info)
			routing := core.NewMemoryRouting(core.NodeID("genesis"))
			replicas := core.NewReplicas(rootDir, info, signing, routing, core.NodeID("genesis"), logrus.StandardLogger())

			if err := replicas.Initiate(nil); err != nil {
				return fmt.Errorf("bootstrap genesis: %w", err)
			}
			fmt.Printf("genesis bootstrapped under %s\n", rootDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&rootDir, "root", "./data/wallets", "root directory for the genesis store")
	return cmd
}

func serveCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "load config, wire the replica and account manager, and serve HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pkgconfig.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logrus.StandardLogger()
			if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
				logger.SetLevel(lvl)
			}
			if cfg.Logging.File != "" {
				f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger.SetOutput(f)
			}

			if err := os.MkdirAll(cfg.Replica.RootDir, 0o755); err != nil {
				return fmt.Errorf("create root dir: %w", err)
			}

			secret, pub := core.GenerateKeyPair()
			peers := &core.PublicKeySet{Threshold: cfg.Replica.Threshold, Members: []*bls.PublicKey{pub}}
			info := core.NewReplicaInfo(cfg.Replica.ReplicaIndex, secret, peers)
			signing := core.NewSigningService(info)
			self := core.NodeID(cfg.Replica.NodeID)
			routing := core.NewMemoryRouting(self)

			replicas := core.NewReplicas(cfg.Replica.RootDir, info, signing, routing, self, logger)
			if err := replicas.Initiate(nil); err != nil {
				return fmt.Errorf("bootstrap genesis: %w", err)
			}

			// Zero config fields fall back to core's defaults.
			amCfg := core.AccountManagerConfig{
				Allowance:      cfg.AccountManager.DefaultAllowance,
				DefaultPayment: cfg.AccountManager.DefaultPayment,
				CacheTTL:       time.Duration(cfg.AccountManager.CacheTTLSeconds) * time.Second,
				CacheCapacity:  cfg.AccountManager.CacheCapacity,
			}
			accounts := core.NewAccountManager(amCfg, routing, self, logger)
			defer accounts.Close()

			go func() {
				for ev := range routing.Membership() {
					logger.Infof("membership change (%s, added=%t): running churn", ev.Node, ev.Added)
					accounts.Churn()
				}
			}()

			svc := services.NewService(replicas, accounts)
			ctrl := controllers.NewReplicaController(svc)

			r := mux.NewRouter()
			routes.Register(r, ctrl)

			logger.Infof("replicad serving on %s", cfg.HTTP.ListenAddr)
			return http.ListenAndServe(cfg.HTTP.ListenAddr, r)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "environment config name to merge over default (e.g. devnet)")
	return cmd
}
