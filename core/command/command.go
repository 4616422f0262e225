package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Kind enumerates every operation the bot can perform. An utterance that
// does not resolve to exactly one Kind never becomes a Command.
type Kind string

const (
	KindSolBalance     Kind = "sol_balance"
	KindTokenInfo      Kind = "token_info"
	KindAccountDetails Kind = "account_details"
	KindTransaction    Kind = "transaction"
	KindRecentTx       Kind = "recent_tx"
	KindTokenAccounts  Kind = "token_accounts"
	KindValidators     Kind = "validators"
	KindLatestBlock    Kind = "latest_block"
	KindNetworkStatus  Kind = "network_status"
	KindSlot           Kind = "slot"
	KindAddWallet      Kind = "add_wallet"
	KindMyWallets      Kind = "my_wallets"
	KindRemoveWallet   Kind = "remove_wallet"
	KindMyBalance      Kind = "my_balance"
	KindVerifyWallet   Kind = "verify_wallet"
)

var (
	ErrUnknownCommand = errors.New("command: unknown command")
	ErrBadArguments   = errors.New("command: bad arguments")
)

// Command carries one resolved operation plus only the parameters that
// operation needs.
type Command struct {
	Kind      Kind
	Address   string
	Signature string
	Label     string
	Limit     int
}

// rate-limit buckets; commands not listed only count against the global
// window
var categories = map[Kind]string{
	KindSolBalance:  "balance",
	KindMyBalance:   "balance",
	KindTokenInfo:   "token_info",
	KindTransaction: "transactions",
	KindRecentTx:    "transactions",
	KindValidators:  "validators",
}

func (c Command) Category() string {
	return categories[c.Kind]
}

// Parse builds a Command from a command word and its arguments, validating
// every parameter. It fails closed: no Command comes out of partially valid
// input.
func Parse(word string, args []string) (Command, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(word)))

	switch kind {
	case KindSolBalance, KindAccountDetails, KindTokenAccounts:
		addr, err := oneAddress(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Address: addr}, nil

	case KindTokenInfo:
		addr, err := oneAddress(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Address: addr}, nil

	case KindTransaction:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: transaction needs a signature", ErrBadArguments)
		}
		if _, err := solana.SignatureFromBase58(args[0]); err != nil {
			return Command{}, fmt.Errorf("%w: %q is not a valid signature", ErrBadArguments, args[0])
		}
		return Command{Kind: kind, Signature: args[0]}, nil

	case KindRecentTx:
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("%w: recent_tx needs an address and optional limit", ErrBadArguments)
		}
		addr, err := oneAddress(args[:1])
		if err != nil {
			return Command{}, err
		}
		limit := 0
		if len(args) == 2 {
			limit, err = parseLimit(args[1])
			if err != nil {
				return Command{}, err
			}
		}
		return Command{Kind: kind, Address: addr, Limit: limit}, nil

	case KindValidators:
		limit := 0
		if len(args) > 1 {
			return Command{}, fmt.Errorf("%w: validators takes one optional limit", ErrBadArguments)
		}
		if len(args) == 1 {
			var err error
			limit, err = parseLimit(args[0])
			if err != nil {
				return Command{}, err
			}
		}
		return Command{Kind: kind, Limit: limit}, nil

	case KindLatestBlock, KindNetworkStatus, KindSlot, KindMyWallets, KindMyBalance:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrBadArguments, kind)
		}
		return Command{Kind: kind}, nil

	case KindAddWallet:
		if len(args) < 1 {
			return Command{}, fmt.Errorf("%w: add_wallet needs an address", ErrBadArguments)
		}
		addr, err := oneAddress(args[:1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Address: addr, Label: strings.Join(args[1:], " ")}, nil

	case KindRemoveWallet:
		addr, err := oneAddress(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: kind, Address: addr}, nil

	case KindVerifyWallet:
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("%w: verify_wallet needs an address and optional signature", ErrBadArguments)
		}
		addr, err := oneAddress(args[:1])
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Kind: kind, Address: addr}
		if len(args) == 2 {
			cmd.Signature = args[1]
		}
		return cmd, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, word)
}

func oneAddress(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: expected exactly one address", ErrBadArguments)
	}
	if _, err := solana.PublicKeyFromBase58(args[0]); err != nil {
		return "", fmt.Errorf("%w: %q is not a valid address", ErrBadArguments, args[0])
	}
	return args[0], nil
}

func parseLimit(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a valid limit", ErrBadArguments, arg)
	}
	return n, nil
}
