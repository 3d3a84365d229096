// Package config loads the settings of a ledger node from a config file, the environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/smartcontractkit/govledger"
	"github.com/smartcontractkit/govledger/types"
)

const (
	DataDirKey           = "data-dir"
	LedgerAddressKey     = "ledger-address"
	SafetyPeriodKey      = "safety-period"
	ProposalThresholdKey = "proposal-threshold"
	ForwarderNameKey     = "forwarder.name"
	ForwarderVersionKey  = "forwarder.version"
	ForwarderAddressKey  = "forwarder.address"
	ChainIDKey           = "forwarder.chain-id"
	ChainSelectorKey     = "forwarder.chain-selector"
	MetricsNamespaceKey  = "metrics-namespace"
	LogLevelKey          = "log-level"

	// EnvPrefix prefixes the environment variables overriding settings, e.g. GOVLEDGER_DATA_DIR.
	EnvPrefix = "GOVLEDGER"
)

const (
	defaultDataDir          = "govledger-data"
	defaultLedgerAddress    = "0x000000000000000000000000000000000000a11c"
	defaultForwarderAddress = "0x000000000000000000000000000000000000f0f0"
	defaultForwarderName    = "GovernanceForwarder"
	defaultForwarderVersion = "1"
	defaultMetricsNamespace = "govledger"
	defaultLogLevel         = "info"
)

// Config holds the settings of a ledger node.
type Config struct {
	DataDir           string        `validate:"required"`
	LedgerAddress     string        `validate:"required,eth_addr"`
	SafetyPeriod      time.Duration `validate:"gte=0"`
	ProposalThreshold string        `validate:"oneof=nonempty contribution"`
	Forwarder         Forwarder
	MetricsNamespace  string        `validate:"required"`
	LogLevel          string        `validate:"oneof=debug info warn error"`
}

// Forwarder holds the EIP-712 domain requests are bound to. The chain id is either given directly
// or resolved from a chain selector.
type Forwarder struct {
	Name          string `validate:"required"`
	Version       string `validate:"required"`
	Address       string `validate:"required,eth_addr"`
	ChainID       uint64 `validate:"required_without=ChainSelector"`
	ChainSelector uint64
}

// AddFlags registers a flag for every setting on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(DataDirKey, defaultDataDir, "Directory holding the ledger database")
	fs.String(LedgerAddressKey, defaultLedgerAddress, "Address the ledger is reachable at")
	fs.Duration(SafetyPeriodKey, govledger.DefaultSafetyPeriod, "Delay between a proposal's deadline and its earliest execution")
	fs.String(ProposalThresholdKey, string(govledger.ThresholdNonEmpty), "Proposal creation gate: nonempty or contribution")
	fs.String(ForwarderNameKey, defaultForwarderName, "EIP-712 domain name of the forwarder")
	fs.String(ForwarderVersionKey, defaultForwarderVersion, "EIP-712 domain version of the forwarder")
	fs.String(ForwarderAddressKey, defaultForwarderAddress, "EIP-712 verifying contract of the forwarder")
	fs.Uint64(ChainIDKey, 0, "EVM chain id requests are bound to")
	fs.Uint64(ChainSelectorKey, 0, "Chain selector resolving the EVM chain id requests are bound to")
	fs.String(MetricsNamespaceKey, defaultMetricsNamespace, "Namespace of the exported metrics")
	fs.String(LogLevelKey, defaultLogLevel, "Log level: debug, info, warn or error")
}

// NewViper returns a viper instance bound to fs that reads GOVLEDGER_* environment variables and,
// when path is set, the config file at path.
func NewViper(fs *pflag.FlagSet, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("unable to bind flags: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
		}
	}

	return v, nil
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		DataDir:           v.GetString(DataDirKey),
		LedgerAddress:     v.GetString(LedgerAddressKey),
		SafetyPeriod:      v.GetDuration(SafetyPeriodKey),
		ProposalThreshold: v.GetString(ProposalThresholdKey),
		Forwarder: Forwarder{
			Name:          v.GetString(ForwarderNameKey),
			Version:       v.GetString(ForwarderVersionKey),
			Address:       v.GetString(ForwarderAddressKey),
			ChainID:       v.GetUint64(ChainIDKey),
			ChainSelector: v.GetUint64(ChainSelectorKey),
		},
		MetricsNamespace: v.GetString(MetricsNamespaceKey),
		LogLevel:         v.GetString(LogLevelKey),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.ChainID(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// ChainID returns the chain id requests are bound to. A chain selector takes part only when it is
// set and must agree with an explicit chain id.
func (c *Config) ChainID() (uint64, error) {
	if c.Forwarder.ChainSelector == 0 {
		if c.Forwarder.ChainID == 0 {
			return 0, errors.New("either a chain id or a chain selector is required")
		}

		return c.Forwarder.ChainID, nil
	}

	id, err := types.ChainSelector(c.Forwarder.ChainSelector).ChainID()
	if err != nil {
		return 0, err
	}
	if c.Forwarder.ChainID != 0 && c.Forwarder.ChainID != id {
		return 0, fmt.Errorf("chain selector %d resolves to chain id %d, not %d",
			c.Forwarder.ChainSelector, id, c.Forwarder.ChainID)
	}

	return id, nil
}

// Domain returns the forwarder domain described by the config.
func (c *Config) Domain() (govledger.Domain, error) {
	chainID, err := c.ChainID()
	if err != nil {
		return govledger.Domain{}, err
	}

	return govledger.Domain{
		Name:              c.Forwarder.Name,
		Version:           c.Forwarder.Version,
		ChainID:           chainID,
		VerifyingContract: common.HexToAddress(c.Forwarder.Address),
	}, nil
}

// Ledger returns the ledger address.
func (c *Config) Ledger() common.Address {
	return common.HexToAddress(c.LedgerAddress)
}

// Options returns the ledger options described by the config.
func (c *Config) Options() []govledger.Option {
	return []govledger.Option{
		govledger.WithSafetyPeriod(c.SafetyPeriod),
		govledger.WithProposalThreshold(govledger.ProposalThreshold(c.ProposalThreshold)),
	}
}
