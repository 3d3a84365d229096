package govledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/govledger"
	"github.com/smartcontractkit/govledger/types"
)

const (
	testFunder    = "0x00000000000000000000000000000000000000f1"
	testRecipient = "0x00000000000000000000000000000000000000bb"
	testVoter     = "0x00000000000000000000000000000000000000cc"
)

type cli struct {
	t       *testing.T
	dataDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	return &cli{t: t, dataDir: filepath.Join(t.TempDir(), "db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	cmd := BuildGovLedgerCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args,
		"--data-dir="+c.dataDir,
		"--forwarder.chain-id=1337",
		"--log-level=error",
	))
	err := cmd.Execute()

	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, err := c.run(args...)
	require.NoError(c.t, err, "govledger %s", strings.Join(args, " "))

	return out
}

func TestCLI_ProposalLifecycle(t *testing.T) {
	t.Parallel()

	c := newCLI(t)

	assert.Equal(t, "Treasury balance: 100\n", c.mustRun("fund", "--from", testFunder, "--amount", "100"))
	assert.Contains(t, c.mustRun("propose", "--from", testFunder, "--recipient", testRecipient, "--amount", "0x28"),
		"Proposal 1 created")
	assert.Equal(t, "Proposal 1: for 1, against 0, abstain 0\n",
		c.mustRun("vote", "--from", testVoter, "--id", "1", "--choice", "for"))

	var status struct {
		types.Proposal
		Status types.ProposalStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("status", "--id", "1")), &status))
	assert.Equal(t, types.StatusOpen, status.Status)
	assert.Equal(t, int64(40), status.Amount.Int64())
	assert.Equal(t, uint64(1), status.ForVotes)

	_, err := c.run("execute", "--from", testVoter, "--id", "1")
	require.ErrorContains(t, err, "safety period has not elapsed")

	_, err = c.run("vote", "--from", testVoter, "--id", "2", "--choice", "for")
	require.ErrorIs(t, err, govledger.ErrValidation)

	_, err = c.run("vote", "--from", testVoter, "--id", "1", "--choice", "maybe")
	require.EqualError(t, err, `unknown vote choice: "maybe"`)

	assert.Equal(t, "100\n", c.mustRun("balance"))
	assert.Equal(t, "0\n", c.mustRun("balance", "--account", testRecipient))

	lines := strings.Split(strings.TrimSpace(c.mustRun("events")), "\n")
	require.Len(t, lines, 3)

	var first struct {
		Seq   uint64          `json:"seq"`
		Event json.RawMessage `json:"event"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, uint64(1), first.Seq)
	ev, err := types.DecodeEvent(first.Event)
	require.NoError(t, err)
	assert.Equal(t, types.EventFundsReceived, ev.EventName())

	lines = strings.Split(strings.TrimSpace(c.mustRun("events", "--after", "1", "--limit", "1")), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], types.EventProposalCreated)
}

func TestCLI_InvalidInput(t *testing.T) {
	t.Parallel()

	c := newCLI(t)

	_, err := c.run("fund", "--from", testFunder, "--amount", "0")
	require.EqualError(t, err, "amount must be greater than zero")

	_, err = c.run("fund", "--from", testFunder, "--amount", "lots")
	require.EqualError(t, err, `invalid amount "lots"`)

	_, err = c.run("propose", "--from", testFunder, "--recipient", testRecipient, "--amount", "1")
	require.ErrorIs(t, err, govledger.ErrState)

	_, err = c.run("balance", "--proposal-threshold=stake")
	require.ErrorContains(t, err, "invalid config")
}

func TestCLI_InvalidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "fund: truncated funder",
			args:    []string{"fund", "--from", "0x1234", "--amount", "1"},
			wantErr: `invalid --from address "0x1234"`,
		},
		{
			name:    "propose: recipient is not hex",
			args:    []string{"propose", "--from", testFunder, "--recipient", "bob", "--amount", "1"},
			wantErr: `invalid --recipient address "bob"`,
		},
		{
			name:    "vote: voter with a stray character",
			args:    []string{"vote", "--from", testVoter + "z", "--id", "1", "--choice", "for"},
			wantErr: `invalid --from address "` + testVoter + `z"`,
		},
		{
			name:    "execute: malformed caller",
			args:    []string{"execute", "--from", "0x", "--id", "1"},
			wantErr: `invalid --from address "0x"`,
		},
		{
			name:    "balance: malformed account",
			args:    []string{"balance", "--account", "0xabc"},
			wantErr: `invalid --account address "0xabc"`,
		},
		{
			name:    "nonce: malformed account",
			args:    []string{"nonce", "--account", "alice"},
			wantErr: `invalid --account address "alice"`,
		},
		{
			name:    "encode propose: malformed recipient",
			args:    []string{"encode", "propose", "--recipient", "0x12", "--amount", "1"},
			wantErr: `invalid --recipient address "0x12"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newCLI(t)
			_, err := c.run(tt.args...)
			require.EqualError(t, err, tt.wantErr)

			// Nothing reached the ledger.
			_, statErr := os.Stat(c.dataDir)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestCLI_Encode(t *testing.T) {
	t.Parallel()

	c := newCLI(t)

	want, err := govledger.PackVote(3, types.ChoiceAgainst)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(want)+"\n", c.mustRun("encode", "vote", "--id", "3", "--choice", "against"))

	want, err = govledger.PackExecuteProposal(3)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(want)+"\n", c.mustRun("encode", "execute", "--id", "3"))

	want, err = govledger.PackFund()
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(want)+"\n", c.mustRun("encode", "fund"))

	assert.True(t, strings.HasPrefix(
		c.mustRun("encode", "propose", "--recipient", testRecipient, "--amount", "5", "--deadline", "1800000000"), "0x"))
}

//nolint:paralleltest // loads PRIVATE_KEY into the environment
func TestCLI_SignAndRelay(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PRIVATE_KEY="+hex.EncodeToString(crypto.FromECDSA(key))+"\n"), 0o600))
	t.Setenv("PRIVATE_KEY", "")
	require.NoError(t, os.Unsetenv("PRIVATE_KEY"))

	c := newCLI(t)
	c.mustRun("fund", "--from", testFunder, "--amount", "100")
	c.mustRun("propose", "--from", testFunder, "--recipient", testRecipient, "--amount", "10")

	data := strings.TrimSpace(c.mustRun("encode", "vote", "--id", "1", "--choice", "abstain"))
	requestPath := filepath.Join(t.TempDir(), "request.json")
	c.mustRun("sign-request", "--data", data, "--env-file", envFile, "--out", requestPath)

	signed, err := loadSignedRequest(requestPath)
	require.NoError(t, err)
	assert.Equal(t, signer, signed.Request.From)
	assert.Equal(t, uint64(0), signed.Request.Nonce)

	assert.Equal(t, "true\n", c.mustRun("verify", "--request", requestPath))

	var result struct {
		Nonce   uint64 `json:"nonce"`
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("relay", "--request", requestPath)), &result))
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)

	assert.Equal(t, "false\n", c.mustRun("verify", "--request", requestPath))
	_, err = c.run("relay", "--request", requestPath)
	require.ErrorIs(t, err, govledger.ErrSignature)

	assert.Equal(t, "1\n", c.mustRun("nonce", "--account", signer.Hex()))
	assert.Contains(t, c.mustRun("status", "--id", "1"), `"abstainVotes":1`)

	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")
	c.mustRun("fund", "--from", testFunder, "--amount", "1", "--metrics-file", metricsPath)
	b, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "govledger_treasury_balance 101")
}
