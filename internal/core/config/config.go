package config

import (
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/indexer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/nft"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/recovery"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/reorg"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/throttle"
	redisclient "github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/redis"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig             `yaml:"server"`
	Chain       ChainConfig              `yaml:"chain"`
	Indexer     indexer.Config           `yaml:"indexer"`
	Batch       throttle.Config          `yaml:"batch"`
	Reorg       reorg.Config             `yaml:"reorg"`
	Recovery    recovery.RecovererConfig `yaml:"recovery"`
	Nft         nft.Config               `yaml:"nft"`
	Redis       redisclient.Config       `yaml:"redis"`
	Logging     LoggingConfig            `yaml:"logging"`
	Database    postgres.Config          `yaml:"database"`
	Maintenance MaintenanceConfig        `yaml:"maintenance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig holds settings for the indexed chain's RPC endpoint.
type ChainConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	RPCTimeout time.Duration `yaml:"rpc_timeout"`
}

// MaintenanceConfig holds background cleanup settings.
type MaintenanceConfig struct {
	// FailedBlockRetention is how long recovered and abandoned
	// failed-block rows are kept. Zero disables pruning.
	FailedBlockRetention time.Duration `yaml:"failed_block_retention"`
}
