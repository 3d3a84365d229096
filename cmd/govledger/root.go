package govledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartcontractkit/govledger"
	"github.com/smartcontractkit/govledger/internal/state"
	"github.com/smartcontractkit/govledger/metrics"
	"github.com/smartcontractkit/govledger/pkg/config"
)

// BuildGovLedgerCmd builds the root command. Every subcommand operating on the ledger opens the
// database under --data-dir for the duration of the command.
func BuildGovLedgerCmd() *cobra.Command {
	var (
		configPath  string
		metricsPath string
	)

	cmd := cobra.Command{
		Use:          "govledger",
		Short:        "Operate a governance treasury ledger and its request forwarder",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	cmd.PersistentFlags().StringVar(&metricsPath, "metrics-file", "", "Write metrics in the text exposition format to this file when the command ends")
	config.AddFlags(cmd.PersistentFlags())

	n := &node{configPath: &configPath, metricsPath: &metricsPath}

	cmd.AddCommand(buildFundCmd(n))
	cmd.AddCommand(buildProposeCmd(n))
	cmd.AddCommand(buildVoteCmd(n))
	cmd.AddCommand(buildExecuteCmd(n))
	cmd.AddCommand(buildStatusCmd(n))
	cmd.AddCommand(buildBalanceCmd(n))
	cmd.AddCommand(buildEventsCmd(n))
	cmd.AddCommand(buildNonceCmd(n))
	cmd.AddCommand(buildSignRequestCmd(n))
	cmd.AddCommand(buildVerifyCmd(n))
	cmd.AddCommand(buildRelayCmd(n))
	cmd.AddCommand(buildEncodeCmd())

	return &cmd
}

// node is a ledger and forwarder deployed on the on-disk state.
type node struct {
	configPath  *string
	metricsPath *string

	cfg       *config.Config
	sm        *state.Machine
	ledger    *govledger.Ledger
	forwarder *govledger.Forwarder
	book      *govledger.AccountBook
}

// run opens the node, runs fn and closes the node again.
func (n *node) run(cmd *cobra.Command, fn func(ctx context.Context) error) (err error) {
	v, err := config.NewViper(cmd.Flags(), *n.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	m, err := metrics.New(cfg.MetricsNamespace, registry)
	if err != nil {
		return fmt.Errorf("unable to register metrics: %w", err)
	}

	domain, err := cfg.Domain()
	if err != nil {
		return err
	}

	sm, err := state.OpenLevelDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sm.Close())
		if *n.metricsPath != "" {
			err = errors.Join(err, prometheus.WriteToTextfile(*n.metricsPath, registry))
		}
	}()

	opts := append(cfg.Options(), govledger.WithMetrics(m))
	ledger, forwarder, err := govledger.Deploy(sm, cfg.Ledger(), domain, opts...)
	if err != nil {
		return err
	}

	n.cfg = cfg
	n.sm = sm
	n.ledger = ledger
	n.forwarder = forwarder
	n.book = govledger.NewAccountBook(sm)

	ctx := govledger.WithLogger(cmd.Context(), logger.Sugar())

	return fn(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	return cfg.Build()
}
