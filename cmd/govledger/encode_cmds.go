package govledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/govledger"
	"github.com/smartcontractkit/govledger/types"
)

// buildEncodeCmd groups the commands printing ledger calldata for sign-request --data.
func buildEncodeCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "encode",
		Short: "Print the calldata of a ledger operation",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "fund",
		Short: "Calldata of fund()",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCalldata(cmd, govledger.PackFund)
		},
	})

	var (
		recipient, amount string
		deadline          uint64
	)
	propose := &cobra.Command{
		Use:   "propose",
		Short: "Calldata of createProposal(recipient, amount, deadline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress("recipient", recipient)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}

			return printCalldata(cmd, func() ([]byte, error) {
				return govledger.PackCreateProposal(to, value, deadline)
			})
		},
	}
	propose.Flags().StringVar(&recipient, "recipient", "", "Address receiving the funds")
	propose.Flags().StringVar(&amount, "amount", "", "Amount to transfer")
	propose.Flags().Uint64Var(&deadline, "deadline", 0, "Voting deadline in unix seconds")
	_ = propose.MarkFlagRequired("recipient")
	_ = propose.MarkFlagRequired("amount")
	_ = propose.MarkFlagRequired("deadline")
	cmd.AddCommand(propose)

	var (
		voteID uint64
		choice string
	)
	vote := &cobra.Command{
		Use:   "vote",
		Short: "Calldata of vote(id, choice)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := types.ParseChoice(choice)
			if err != nil {
				return err
			}

			return printCalldata(cmd, func() ([]byte, error) {
				return govledger.PackVote(voteID, c)
			})
		},
	}
	vote.Flags().Uint64Var(&voteID, "id", 0, "Proposal id")
	vote.Flags().StringVar(&choice, "choice", "", "for, against or abstain")
	_ = vote.MarkFlagRequired("id")
	_ = vote.MarkFlagRequired("choice")
	cmd.AddCommand(vote)

	var executeID uint64
	execute := &cobra.Command{
		Use:   "execute",
		Short: "Calldata of executeProposal(id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCalldata(cmd, func() ([]byte, error) {
				return govledger.PackExecuteProposal(executeID)
			})
		},
	}
	execute.Flags().Uint64Var(&executeID, "id", 0, "Proposal id")
	_ = execute.MarkFlagRequired("id")
	cmd.AddCommand(execute)

	return &cmd
}

func printCalldata(cmd *cobra.Command, pack func() ([]byte, error)) error {
	data, err := pack()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data))

	return nil
}
