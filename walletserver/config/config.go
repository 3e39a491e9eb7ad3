package config

import (
	"fmt"

	"github.com/joho/godotenv"

	"transferledger/pkg/utils"
)

// ServerConfig is the standalone wallet server's runtime configuration,
// loaded from walletserver/.env (if present) and the process
// environment. A standalone server runs a single replica with
// threshold 1, since it has no peers to share a section key with.
// Quota fields left at zero fall back to core's defaults.
type ServerConfig struct {
	Port            string
	NodeID          string
	RootDir         string
	ReplicaIndex    int
	Allowance       uint64
	Payment         uint64
	CacheTTLSeconds int
	CacheCapacity   int
}

var AppConfig ServerConfig

// Load reads walletserver/.env, if present, then resolves AppConfig from
// the environment. A missing .env file is not an error: it is entirely
// reasonable to configure the server via the real environment alone.
func Load() error {
	if err := godotenv.Load("walletserver/.env"); err != nil {
		logMissingEnv(err)
	}
	AppConfig = ServerConfig{
		Port:            utils.EnvOrDefault("WALLET_PORT", "8081"),
		NodeID:          utils.EnvOrDefault("WALLET_NODE_ID", "standalone"),
		RootDir:         utils.EnvOrDefault("WALLET_ROOT_DIR", "./data/wallets"),
		ReplicaIndex:    utils.EnvOrDefaultInt("WALLET_REPLICA_INDEX", 0),
		Allowance:       utils.EnvOrDefaultUint64("WALLET_ACCOUNT_ALLOWANCE", 0),
		Payment:         utils.EnvOrDefaultUint64("WALLET_PUT_PAYMENT", 0),
		CacheTTLSeconds: utils.EnvOrDefaultInt("WALLET_CACHE_TTL_SECONDS", 0),
		CacheCapacity:   utils.EnvOrDefaultInt("WALLET_CACHE_CAPACITY", 0),
	}
	return nil
}

func logMissingEnv(err error) {
	fmt.Printf("walletserver: no .env loaded (%v), using process environment\n", err)
}
