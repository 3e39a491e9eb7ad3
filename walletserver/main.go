package main

import (
	"net/http"
	"os"
	"time"

	bls "github.com/herumi/bls-eth-go-binary/bls"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	core "transferledger/core"
	"transferledger/walletserver/config"
	"transferledger/walletserver/controllers"
	"transferledger/walletserver/routes"
	"transferledger/walletserver/services"
)

func main() {
	if err := config.Load(); err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger := logrus.StandardLogger()

	if err := os.MkdirAll(config.AppConfig.RootDir, 0o755); err != nil {
		logger.Fatalf("create wallet root dir: %v", err)
	}

	secret, pub := core.GenerateKeyPair()
	peers := &core.PublicKeySet{Threshold: 1, Members: []*bls.PublicKey{pub}}
	info := core.NewReplicaInfo(config.AppConfig.ReplicaIndex, secret, peers)
	signing := core.NewSigningService(info)
	self := core.NodeID(config.AppConfig.NodeID)
	routing := core.NewMemoryRouting(self)

	replicas := core.NewReplicas(config.AppConfig.RootDir, info, signing, routing, self, logger)
	if err := replicas.Initiate(nil); err != nil {
		logger.Fatalf("bootstrap genesis: %v", err)
	}

	// Zero config fields fall back to core's defaults.
	amCfg := core.AccountManagerConfig{
		Allowance:      config.AppConfig.Allowance,
		DefaultPayment: config.AppConfig.Payment,
		CacheTTL:       time.Duration(config.AppConfig.CacheTTLSeconds) * time.Second,
		CacheCapacity:  config.AppConfig.CacheCapacity,
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

	logger.Infof("wallet server listening on :%s", config.AppConfig.Port)
	if err := http.ListenAndServe(":"+config.AppConfig.Port, r); err != nil {
		logger.Fatal(err)
	}
}
