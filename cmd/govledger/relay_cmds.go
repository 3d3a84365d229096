package govledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/govledger"
	"github.com/smartcontractkit/govledger/types"
)

func buildNonceCmd(n *node) *cobra.Command {
	var account string

	cmd := cobra.Command{
		Use:   "nonce",
		Short: "Show the nonce the next request from an account must carry",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := parseAddress("account", account)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				nonce, err := n.forwarder.GetNonce(ctx, signer)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), nonce)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account to show the nonce of")
	_ = cmd.MarkFlagRequired("account")

	return &cmd
}

func buildSignRequestCmd(n *node) *cobra.Command {
	var (
		to, data, value, out   string
		envFile, derivationStr string
		gas                    uint64
		validFor               time.Duration
		useLedger              bool
	)

	cmd := cobra.Command{
		Use:   "sign-request",
		Short: "Sign a request for the forwarder to relay",
		Long: `Signs with the private key configured in the PRIVATE_KEY var of --env-file, or with the first
account of a connected Ledger when --ledger is set. The request carries the signer's current nonce.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseOptionalAddress("to", to)
			if err != nil {
				return err
			}
			payload, err := hexutil.Decode(data)
			if err != nil {
				return fmt.Errorf("invalid data: %w", err)
			}
			amount, err := parseOptionalAmount(value)
			if err != nil {
				return err
			}

			var signer govledger.Signer
			if useLedger {
				path, perr := accounts.ParseDerivationPath(derivationStr)
				if perr != nil {
					return fmt.Errorf("failed to parse derivation path: %w", perr)
				}
				signer = govledger.NewLedgerSigner(path)
			} else {
				pk, perr := loadPrivateKey(envFile)
				if perr != nil {
					return fmt.Errorf("error loading private key: %w", perr)
				}
				signer = govledger.NewPrivateKeySigner(pk)
			}

			from, err := signer.GetAddress()
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				if to == "" {
					target = n.ledger.Address()
				}

				nonce, err := n.forwarder.GetNonce(ctx, from)
				if err != nil {
					return err
				}

				req := types.ForwardRequest{
					From:     from,
					To:       target,
					Value:    amount,
					Gas:      gas,
					Nonce:    nonce,
					Deadline: uint64(time.Now().Add(validFor).Unix()),
					Data:     payload,
				}

				sig, err := govledger.SignRequest(n.forwarder, req, signer)
				if err != nil {
					return fmt.Errorf("error signing request: %w", err)
				}

				signed := types.SignedForwardRequest{Request: req, Signature: sig}
				if out == "" {
					return writeJSON(cmd.OutOrStdout(), signed)
				}

				b, err := json.MarshalIndent(signed, "", "  ")
				if err != nil {
					return err
				}

				return os.WriteFile(out, b, 0o600)
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target of the request, defaults to the ledger")
	cmd.Flags().StringVar(&data, "data", "0x", "Calldata of the request, see the encode command")
	cmd.Flags().StringVar(&value, "value", "", "Value the relayer must attach")
	cmd.Flags().Uint64Var(&gas, "gas", 0, "Gas carried in the signed request")
	cmd.Flags().DurationVar(&validFor, "valid-for", time.Hour, "Time until the request expires")
	cmd.Flags().StringVar(&out, "out", "", "Write the signed request to this file instead of stdout")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "File holding the PRIVATE_KEY var")
	cmd.Flags().BoolVar(&useLedger, "ledger", false, "Sign with a connected Ledger")
	cmd.Flags().StringVar(&derivationStr, "derivationPath", "m/44'/60'/0'/0/0", "The derivation path for the ledger")

	return &cmd
}

func buildVerifyCmd(n *node) *cobra.Command {
	var requestPath string

	cmd := cobra.Command{
		Use:   "verify",
		Short: "Check whether a signed request can be relayed now",
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, err := loadSignedRequest(requestPath)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				fmt.Fprintln(cmd.OutOrStdout(), n.forwarder.Verify(ctx, signed.Request, signed.Signature))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "File containing the signed request")
	_ = cmd.MarkFlagRequired("request")

	return &cmd
}

func buildRelayCmd(n *node) *cobra.Command {
	var requestPath, value string

	cmd := cobra.Command{
		Use:   "relay",
		Short: "Relay a signed request to its target",
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, err := loadSignedRequest(requestPath)
			if err != nil {
				return err
			}
			attached, err := parseOptionalAmount(value)
			if err != nil {
				return err
			}

			return n.run(cmd, func(ctx context.Context) error {
				result, err := n.forwarder.Execute(ctx, signed.Request, signed.Signature, attached)
				if err != nil {
					return err
				}

				out := struct {
					Nonce      uint64        `json:"nonce"`
					Success    bool          `json:"success"`
					ReturnData hexutil.Bytes `json:"returnData,omitempty"`
					Error      string        `json:"error,omitempty"`
				}{Nonce: result.Nonce, Success: result.Success, ReturnData: result.ReturnData}
				if result.Err != nil {
					out.Error = result.Err.Error()
				}

				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "File containing the signed request")
	cmd.Flags().StringVar(&value, "value", "", "Value attached to the relayed call, must match the request")
	_ = cmd.MarkFlagRequired("request")

	return &cmd
}
