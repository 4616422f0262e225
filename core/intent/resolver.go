package intent

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/core/command"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

var (
	// ErrUnparseable means the utterance does not map to exactly one command.
	ErrUnparseable = errors.New("intent: cannot map message to a command")
	// ErrUpstreamUnavailable means the model could not be reached at all.
	ErrUpstreamUnavailable = errors.New("intent: language model unavailable")
)

const cannotComplete = "cannot complete"

// the model must answer in this closed grammar or refuse; anything outside
// it is discarded
const systemPrompt = `You convert a user message into exactly one Solana bot command.

Commands:
sol_balance <address>          - SOL balance of an address
token_info <mint_address>      - supply and decimals of a token mint
account_details <address>      - lamports, owner and flags of an account
transaction <signature>        - look up one transaction
recent_tx <address> [limit]    - recent transactions for an address
token_accounts <address>       - token accounts owned by an address
validators [limit]             - current validators
latest_block                   - latest blockhash
network_status                 - node version info
slot                           - current slot
add_wallet <address> [label]   - save a wallet for the user
my_wallets                     - list saved wallets
remove_wallet <address>        - delete a saved wallet
my_balance                     - balances of saved wallets
verify_wallet <address> [signature] - prove wallet ownership

Reply with one line only: the command word followed by its arguments,
nothing else. Copy addresses and signatures from the message verbatim.
If the message does not clearly map to exactly one of these commands,
reply with exactly: cannot complete`

// Resolver turns free-form text into a validated Command via the model.
type Resolver struct {
	client CompletionClient
}

func NewResolver(client CompletionClient) *Resolver {
	return &Resolver{client: client}
}

// Resolve maps an utterance to a Command. It fails closed: a refusal, an
// unknown command word or an invalid argument all come back as
// ErrUnparseable, never as a guessed command.
func (r *Resolver) Resolve(ctx context.Context, utterance string) (command.Command, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return command.Command{}, ErrUnparseable
	}

	reply, err := r.client.Complete(ctx, systemPrompt, utterance)
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("intent completion failed")
		return command.Command{}, ErrUpstreamUnavailable
	}

	line := strings.TrimSpace(reply)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" || strings.EqualFold(line, cannotComplete) {
		return command.Command{}, ErrUnparseable
	}

	fields := strings.Fields(line)
	cmd, err := command.Parse(fields[0], fields[1:])
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Reply": line, "ErrMsg": err}).Warn("intent reply rejected")
		return command.Command{}, ErrUnparseable
	}
	return cmd, nil
}
