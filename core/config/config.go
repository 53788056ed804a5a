package config

import (
	"fmt"
	"math/big"
	"os"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Config is the resolved node configuration shared by every component.
type Config struct {
	Logger sdklogging.Logger

	DbPath            string
	EntryPointAddress common.Address
	ChainID           *big.Int
	MetricsAddr       string
}

// ConfigRaw is read from the yaml config file.
type ConfigRaw struct {
	Environment       sdklogging.LogLevel `yaml:"environment"`
	DbPath            string              `yaml:"db_path"`
	EntryPointAddress string              `yaml:"entry_point_address"`
	ChainID           int64               `yaml:"chain_id"`
	MetricsAddr       string              `yaml:"metrics_address"`
}

// NewConfig parses the config file and resolves it into a Config, building
// the logger along the way. The entry point address and chain id have no
// sane defaults: the operation hash is bound to both, so they must be
// explicit.
func NewConfig(configFilePath string) (*Config, error) {
	configRaw := ConfigRaw{
		Environment: sdklogging.Production,
		DbPath:      "./data/mempool",
		MetricsAddr: ":9090",
	}

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &configRaw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configFilePath, err)
	}

	logger, err := sdklogging.NewZapLogger(configRaw.Environment)
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(configRaw.EntryPointAddress) {
		return nil, fmt.Errorf("invalid entry_point_address %q", configRaw.EntryPointAddress)
	}
	if configRaw.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain_id %d", configRaw.ChainID)
	}

	return &Config{
		Logger:            logger,
		DbPath:            configRaw.DbPath,
		EntryPointAddress: common.HexToAddress(configRaw.EntryPointAddress),
		ChainID:           big.NewInt(configRaw.ChainID),
		MetricsAddr:       configRaw.MetricsAddr,
	}, nil
}
