package govledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/govledger/internal/utils/safecast"
	"github.com/smartcontractkit/govledger/types"
)

func buildFundCmd(n *node) *cobra.Command {
	var from, amount string

	cmd := cobra.Command{
		Use:   "fund",
		Short: "Add funds to the treasury",
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := parseAddress("from", from)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				if err := n.ledger.Fund(ctx, sender, value); err != nil {
					return err
				}

				bal, err := n.ledger.GetTreasuryBalance(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Treasury balance: %s\n", bal)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Address of the funder")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to add, decimal or 0x-prefixed hex")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("amount")

	return &cmd
}

func buildProposeCmd(n *node) *cobra.Command {
	var (
		from, recipient, amount string
		deadline                uint64
		votingPeriod            time.Duration
	)

	cmd := cobra.Command{
		Use:   "propose",
		Short: "Create a proposal to pay treasury funds to a recipient",
		Long:  `The voting deadline is --deadline (unix seconds) if set, otherwise now plus --voting-period.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creator, err := parseAddress("from", from)
			if err != nil {
				return err
			}
			to, err := parseAddress("recipient", recipient)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if deadline == 0 {
				deadline = uint64(time.Now().Add(votingPeriod).Unix())
			}

			return n.run(cmd, func(ctx context.Context) error {
				id, err := n.ledger.CreateProposal(ctx, creator, to, value, deadline)
				if err != nil {
					return err
				}
				closes, err := safecast.Uint64ToInt64(deadline)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d created, voting closes at %s\n",
					id, time.Unix(closes, 0).UTC().Format(time.RFC3339))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Address of the proposal creator")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Address receiving the funds")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to transfer, decimal or 0x-prefixed hex")
	cmd.Flags().Uint64Var(&deadline, "deadline", 0, "Voting deadline in unix seconds")
	cmd.Flags().DurationVar(&votingPeriod, "voting-period", 72*time.Hour, "Voting period when no deadline is given")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("amount")

	return &cmd
}

func buildVoteCmd(n *node) *cobra.Command {
	var (
		from, choice string
		id           uint64
	)

	cmd := cobra.Command{
		Use:   "vote",
		Short: "Vote for, against or abstain on a proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			voter, err := parseAddress("from", from)
			if err != nil {
				return err
			}
			c, err := types.ParseChoice(choice)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				if err := n.ledger.Vote(ctx, voter, id, c); err != nil {
					return err
				}

				p, err := n.ledger.GetProposal(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d: for %d, against %d, abstain %d\n",
					id, p.ForVotes, p.AgainstVotes, p.AbstainVotes)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Address of the voter")
	cmd.Flags().Uint64Var(&id, "id", 0, "Proposal id")
	cmd.Flags().StringVar(&choice, "choice", "", "for, against or abstain")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("choice")

	return &cmd
}

func buildExecuteCmd(n *node) *cobra.Command {
	var (
		from string
		id   uint64
	)

	cmd := cobra.Command{
		Use:   "execute",
		Short: "Execute a proposal whose safety period has elapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := parseOptionalAddress("from", from)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				if err := n.ledger.ExecuteProposal(ctx, caller, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d executed\n", id)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Address of the caller")
	cmd.Flags().Uint64Var(&id, "id", 0, "Proposal id")
	_ = cmd.MarkFlagRequired("id")

	return &cmd
}

func buildStatusCmd(n *node) *cobra.Command {
	var id uint64

	cmd := cobra.Command{
		Use:   "status",
		Short: "Show a proposal and the phase it is in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return n.run(cmd, func(ctx context.Context) error {
				p, err := n.ledger.GetProposal(ctx, id)
				if err != nil {
					return err
				}
				status, err := n.ledger.ProposalStatus(ctx, id)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), struct {
					types.Proposal
					Status types.ProposalStatus `json:"status"`
				}{p, status})
			})
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Proposal id")
	_ = cmd.MarkFlagRequired("id")

	return &cmd
}

func buildBalanceCmd(n *node) *cobra.Command {
	var account string

	cmd := cobra.Command{
		Use:   "balance",
		Short: "Show the treasury balance, or the payouts received by --account",
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseOptionalAddress("account", account)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				if account == "" {
					bal, err := n.ledger.GetTreasuryBalance(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), bal)

					return nil
				}

				bal, err := n.book.BalanceOf(ctx, holder)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), bal)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account whose received payouts to show")

	return &cmd
}

func buildEventsCmd(n *node) *cobra.Command {
	var (
		after uint64
		limit int
	)

	cmd := cobra.Command{
		Use:   "events",
		Short: "Print logged events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return errors.New("limit must not be negative")
			}

			return n.run(cmd, func(ctx context.Context) error {
				logged, err := n.sm.EventsSince(after, limit)
				if err != nil {
					return err
				}

				for _, l := range logged {
					ev, err := types.EncodeEvent(l.Event)
					if err != nil {
						return err
					}
					if err := writeJSON(cmd.OutOrStdout(), struct {
						Seq   uint64          `json:"seq"`
						Event json.RawMessage `json:"event"`
					}{l.Seq, ev}); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&after, "after", 0, "Only print events with a sequence number above this one")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events to print, 0 for all")

	return &cmd
}
