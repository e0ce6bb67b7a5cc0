package indexer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/akashx/akashx/pkg/processor"
	"github.com/akashx/akashx/pkg/syncer"
	"github.com/akashx/akashx/pkg/utils"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is read once from the environment at startup.
type Config struct {
	RPCEndpoints     []string
	RPCMaxConcurrent int
	RPCTimeout       time.Duration
	RPCJitterMin     time.Duration
	RPCJitterMax     time.Duration

	MaxHeight       int64
	Production      bool
	DataDir         string
	InsertBatchSize int
	ProcessWindow   int64

	StoreDriver string
	PostgresURL string
	DBName      string

	SyncCron        string
	Addr            string
	RedisEnabled    bool
	RebuildIndexers bool
}

func LoadConfig() Config {
	return Config{
		RPCEndpoints:     utils.EnvList("RPC_ENDPOINTS", []string{"http://localhost:26657"}),
		RPCMaxConcurrent: utils.EnvInt("RPC_MAX_CONCURRENT", 5),
		RPCTimeout:       utils.EnvDuration("RPC_TIMEOUT", 30*time.Second),
		RPCJitterMin:     utils.EnvDuration("RPC_JITTER_MIN", 100*time.Millisecond),
		RPCJitterMax:     utils.EnvDuration("RPC_JITTER_MAX", 500*time.Millisecond),

		MaxHeight:       utils.EnvInt64("MAX_HEIGHT", 0),
		Production:      utils.EnvBool("PRODUCTION", false),
		DataDir:         utils.Env("DATA_DIR", "./data"),
		InsertBatchSize: utils.EnvInt("INSERT_BATCH_SIZE", syncer.DefaultInsertBatchSize),
		ProcessWindow:   int64(utils.EnvInt("PROCESS_WINDOW", processor.DefaultWindow)),

		StoreDriver: utils.Env("STORE_DRIVER", DriverPostgres),
		PostgresURL: utils.Env("POSTGRES_URL", "postgres://localhost:5432/postgres"),
		DBName:      utils.Env("DB_NAME", "akashx"),

		SyncCron:        utils.Env("SYNC_CRON", "*/20 * * * * *"),
		Addr:            utils.Env("ADDR", ":3003"),
		RedisEnabled:    utils.EnvBool("REDIS_ENABLED", false),
		RebuildIndexers: utils.EnvBool("REBUILD_INDEXERS", false),
	}
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("RPC_ENDPOINTS is empty")
	}
	if c.RPCJitterMax < c.RPCJitterMin {
		return fmt.Errorf("RPC_JITTER_MAX %s is below RPC_JITTER_MIN %s", c.RPCJitterMax, c.RPCJitterMin)
	}
	return nil
}

func (c Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

func (c Config) CheckpointDir() string {
	return filepath.Join(c.DataDir, "checkpoints")
}
