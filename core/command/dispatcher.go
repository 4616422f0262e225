package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/core/solrpc"
	"github.com/YingqiDuan/trading-telegram-bot/core/wallet"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

// Dispatcher executes a resolved Command and renders the reply. Every error
// path comes back as user-facing text; the error return only flags that the
// command did not succeed, for accounting.
type Dispatcher struct {
	sol       solrpc.Service
	store     wallet.Store
	verifier  *wallet.Verifier
	maxTxList int
}

func NewDispatcher(sol solrpc.Service, store wallet.Store, verifier *wallet.Verifier, maxTxList int) *Dispatcher {
	if maxTxList <= 0 {
		maxTxList = solrpc.DefaultListLimit
	}
	return &Dispatcher{
		sol:       sol,
		store:     store,
		verifier:  verifier,
		maxTxList: maxTxList,
	}
}

func (d *Dispatcher) Execute(ctx context.Context, userID string, cmd Command) (string, error) {
	switch cmd.Kind {
	case KindSolBalance:
		res, err := d.sol.GetSolBalance(ctx, cmd.Address)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructBalanceMessage(res), nil

	case KindTokenInfo:
		res, err := d.sol.GetTokenInfo(ctx, cmd.Address)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructTokenInfoMessage(res), nil

	case KindAccountDetails:
		res, err := d.sol.GetAccountDetails(ctx, cmd.Address)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructAccountMessage(res), nil

	case KindTransaction:
		res, err := d.sol.GetTransaction(ctx, cmd.Signature)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructTransactionMessage(res), nil

	case KindRecentTx:
		limit := d.clampLimit(cmd.Limit)
		items, err := d.sol.GetRecentTransactions(ctx, cmd.Address, limit)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructRecentTxMessage(cmd.Address, items), nil

	case KindTokenAccounts:
		items, err := d.sol.GetTokenAccounts(ctx, cmd.Address)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructTokenAccountsMessage(cmd.Address, items), nil

	case KindValidators:
		limit := d.clampLimit(cmd.Limit)
		items, err := d.sol.GetValidators(ctx, limit)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructValidatorsMessage(items), nil

	case KindLatestBlock:
		res, err := d.sol.GetLatestBlock(ctx)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructLatestBlockMessage(res), nil

	case KindNetworkStatus:
		res, err := d.sol.GetNetworkStatus(ctx)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructNetworkStatusMessage(res), nil

	case KindSlot:
		slot, err := d.sol.GetSlot(ctx)
		if err != nil {
			return d.rpcErrorReply(cmd, err)
		}
		return ConstructSlotMessage(slot), nil

	case KindAddWallet:
		return d.addWallet(ctx, userID, cmd)

	case KindMyWallets:
		records, err := d.store.List(ctx, userID)
		if err != nil {
			return d.storeErrorReply(cmd, err)
		}
		return ConstructWalletListMessage(records), nil

	case KindRemoveWallet:
		if err := d.store.Remove(ctx, userID, cmd.Address); err != nil {
			return d.storeErrorReply(cmd, err)
		}
		return EscapeSpecialCharacters(fmt.Sprintf("Wallet %s removed.", formatAddr(cmd.Address))), nil

	case KindMyBalance:
		return d.myBalance(ctx, userID, cmd)

	case KindVerifyWallet:
		return d.verifyWallet(ctx, userID, cmd)
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

func (d *Dispatcher) clampLimit(limit int) int {
	if limit <= 0 || limit > d.maxTxList {
		return d.maxTxList
	}
	return limit
}

func (d *Dispatcher) addWallet(ctx context.Context, userID string, cmd Command) (string, error) {
	created, err := d.store.Upsert(ctx, userID, cmd.Address, cmd.Label)
	if err != nil {
		return d.storeErrorReply(cmd, err)
	}
	if created {
		return EscapeSpecialCharacters(fmt.Sprintf("Wallet %s saved. Use verify_wallet %s to prove ownership.", formatAddr(cmd.Address), cmd.Address)), nil
	}
	return EscapeSpecialCharacters(fmt.Sprintf("Wallet %s updated.", formatAddr(cmd.Address))), nil
}

func (d *Dispatcher) myBalance(ctx context.Context, userID string, cmd Command) (string, error) {
	records, err := d.store.List(ctx, userID)
	if err != nil {
		return d.storeErrorReply(cmd, err)
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		res, err := d.sol.GetSolBalance(ctx, rec.Address)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s - %s: unavailable", rec.Label, formatAddr(rec.Address)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s - %s: %.9f SOL", rec.Label, formatAddr(rec.Address), res.Sol))
	}
	return ConstructMyBalanceMessage(lines), nil
}

func (d *Dispatcher) verifyWallet(ctx context.Context, userID string, cmd Command) (string, error) {
	if cmd.Signature == "" {
		challenge, err := d.verifier.RequestChallenge(ctx, userID, cmd.Address)
		if err != nil {
			return d.verifyErrorReply(cmd, err)
		}
		return ConstructChallengeMessage(cmd.Address, challenge, d.verifier.TTL()), nil
	}

	if err := d.verifier.SubmitSignature(ctx, userID, cmd.Address, cmd.Signature); err != nil {
		return d.verifyErrorReply(cmd, err)
	}
	return EscapeSpecialCharacters(fmt.Sprintf("Wallet %s verified. ✅", formatAddr(cmd.Address))), nil
}

func (d *Dispatcher) rpcErrorReply(cmd Command, err error) (string, error) {
	switch {
	case errors.Is(err, solrpc.ErrNotFound):
		return EscapeSpecialCharacters("Nothing found for that request."), err
	case errors.Is(err, solrpc.ErrInvalidInput):
		return EscapeSpecialCharacters("That address or signature was rejected by the network."), err
	default:
		logger.Logrus.WithFields(logrus.Fields{"Command": cmd.Kind, "ErrMsg": err}).Error("rpc command failed")
		return EscapeSpecialCharacters("The Solana network is not responding right now. Please try again later."), err
	}
}

func (d *Dispatcher) storeErrorReply(cmd Command, err error) (string, error) {
	logger.Logrus.WithFields(logrus.Fields{"Command": cmd.Kind, "ErrMsg": err}).Error("wallet store failed")
	return EscapeSpecialCharacters("Could not access your saved wallets right now. Please try again later."), err
}

func (d *Dispatcher) verifyErrorReply(cmd Command, err error) (string, error) {
	switch {
	case errors.Is(err, wallet.ErrNotRegistered):
		return EscapeSpecialCharacters(fmt.Sprintf("Wallet %s is not saved yet. Add it first with add_wallet.", formatAddr(cmd.Address))), err
	case errors.Is(err, wallet.ErrAlreadyVerified):
		return EscapeSpecialCharacters("That wallet is already verified. ✅"), err
	case errors.Is(err, wallet.ErrStaleChallenge):
		return EscapeSpecialCharacters("There is no active challenge for that wallet. Request a new one with verify_wallet."), err
	case errors.Is(err, wallet.ErrChallengeExpired):
		return EscapeSpecialCharacters("That challenge has expired. Request a new one with verify_wallet."), err
	case errors.Is(err, wallet.ErrBadSignature):
		return EscapeSpecialCharacters("That signature is not valid base58."), err
	case errors.Is(err, wallet.ErrSignatureMismatch):
		return EscapeSpecialCharacters("The signature does not match the challenge. Request a new one with verify_wallet."), err
	case errors.Is(err, wallet.ErrBadAddress):
		return EscapeSpecialCharacters("That address is not a valid public key."), err
	default:
		logger.Logrus.WithFields(logrus.Fields{"Command": cmd.Kind, "ErrMsg": err}).Error("wallet verification failed")
		return EscapeSpecialCharacters("Verification is unavailable right now. Please try again later."), err
	}
}
