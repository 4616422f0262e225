package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/YingqiDuan/trading-telegram-bot/core/solrpc"
	"github.com/YingqiDuan/trading-telegram-bot/core/wallet"
)

// EscapeSpecialCharacters makes text safe for Telegram MarkdownV2.
func EscapeSpecialCharacters(text string) string {

	escaped := map[string]string{
		"_": "\\_",
		"*": "\\*",
		"[": "\\[",
		"]": "\\]",
		"(": "\\(",
		")": "\\)",
		"~": "\\~",
		"`": "\\`",
		">": "\\>",
		"#": "\\#",
		"+": "\\+",
		"-": "\\-",
		"=": "\\=",
		"|": "\\|",
		"{": "\\{",
		"}": "\\}",
		".": "\\.",
		"!": "\\!",
	}

	for char, esc := range escaped {
		text = strings.ReplaceAll(text, char, esc)
	}
	return text
}

func formatAddr(input string) string {
	if len(input) <= 10 {
		return input
	}

	prefix := input[:6]
	suffix := input[len(input)-4:]

	return fmt.Sprintf("%s...%s", prefix, suffix)
}

func ConstructBalanceMessage(res *solrpc.BalanceResult) string {
	head := fmt.Sprintf("*SOL Balance*\n💰%s\n\n", EscapeSpecialCharacters("#"+formatAddr(res.Address)))
	body := "*Balance:* " + EscapeSpecialCharacters(fmt.Sprintf("%.9f SOL (%d lamports)", res.Sol, res.Lamports))
	return head + body
}

func ConstructTokenInfoMessage(res *solrpc.TokenInfoResult) string {
	head := fmt.Sprintf("*Token Info*\n🪙%s\n\n", EscapeSpecialCharacters("#"+formatAddr(res.Address)))
	body := "*Supply:* " + EscapeSpecialCharacters(res.Supply) + "\n" +
		"*Decimals:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.Decimals))
	return head + body
}

func ConstructAccountMessage(res *solrpc.AccountResult) string {
	head := fmt.Sprintf("*Account Details*\n📦%s\n\n", EscapeSpecialCharacters("#"+formatAddr(res.Address)))
	body := "*Lamports:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.Lamports)) + "\n" +
		"*Owner:* " + EscapeSpecialCharacters(formatAddr(res.Owner)) + "\n" +
		"*Executable:* " + EscapeSpecialCharacters(fmt.Sprintf("%t", res.Executable)) + "\n" +
		"*Rent Epoch:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.RentEpoch))
	return head + body
}

func ConstructTransactionMessage(res *solrpc.TransactionResult) string {
	status := "✅ Success"
	if !res.Success {
		status = "❌ Failed"
	}
	head := fmt.Sprintf("*Transaction*\n🔎%s\n\n", EscapeSpecialCharacters("#"+formatAddr(res.Signature)))
	body := "*Status:* " + EscapeSpecialCharacters(status) + "\n" +
		"*Slot:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.Slot))
	if res.BlockTime > 0 {
		body += "\n*Time:* " + EscapeSpecialCharacters(time.Unix(res.BlockTime, 0).UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return head + body
}

func ConstructRecentTxMessage(address string, items []solrpc.TransactionResult) string {
	head := fmt.Sprintf("*Recent Transactions*\n📜%s\n\n", EscapeSpecialCharacters("#"+formatAddr(address)))
	if len(items) == 0 {
		return head + EscapeSpecialCharacters("No transactions found.")
	}

	var sb strings.Builder
	sb.WriteString(head)
	for i, tx := range items {
		mark := "✅"
		if !tx.Success {
			mark = "❌"
		}
		sb.WriteString(EscapeSpecialCharacters(fmt.Sprintf("%d. %s %s (slot %d)\n", i+1, mark, formatAddr(tx.Signature), tx.Slot)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func ConstructTokenAccountsMessage(address string, items []solrpc.TokenAccountResult) string {
	head := fmt.Sprintf("*Token Accounts*\n🪪%s\n\n", EscapeSpecialCharacters("#"+formatAddr(address)))
	if len(items) == 0 {
		return head + EscapeSpecialCharacters("No token accounts found.")
	}

	var sb strings.Builder
	sb.WriteString(head)
	for i, acc := range items {
		sb.WriteString(EscapeSpecialCharacters(fmt.Sprintf("%d. %s\n", i+1, acc.Pubkey)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func ConstructValidatorsMessage(items []solrpc.ValidatorResult) string {
	head := "*Validators*\n🗳\n\n"
	if len(items) == 0 {
		return head + EscapeSpecialCharacters("No validators found.")
	}

	var sb strings.Builder
	sb.WriteString(head)
	for i, v := range items {
		sb.WriteString(EscapeSpecialCharacters(fmt.Sprintf("%d. %s stake %.2f SOL commission %d%%\n", i+1, formatAddr(v.NodePubkey), v.ActivatedStake, v.Commission)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func ConstructLatestBlockMessage(res *solrpc.BlockResult) string {
	head := "*Latest Block*\n🧱\n\n"
	body := "*Blockhash:* " + EscapeSpecialCharacters(res.Blockhash) + "\n" +
		"*Valid Until Height:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.LastValidBlockHeight))
	return head + body
}

func ConstructNetworkStatusMessage(res *solrpc.NetworkStatusResult) string {
	head := "*Network Status*\n🌐\n\n"
	body := "*Solana Core:* " + EscapeSpecialCharacters(res.SolanaCore) + "\n" +
		"*Feature Set:* " + EscapeSpecialCharacters(fmt.Sprintf("%d", res.FeatureSet))
	return head + body
}

func ConstructSlotMessage(slot uint64) string {
	return "*Current Slot*\n⏱\n\n" + EscapeSpecialCharacters(fmt.Sprintf("%d", slot))
}

func ConstructWalletListMessage(records []wallet.Record) string {
	head := "*My Wallets*\n👛\n\n"
	if len(records) == 0 {
		return head + EscapeSpecialCharacters("No wallets saved yet. Ask me to add one.")
	}

	var sb strings.Builder
	sb.WriteString(head)
	for i, rec := range records {
		mark := ""
		if rec.Verified {
			mark = " ✅"
		}
		sb.WriteString(EscapeSpecialCharacters(fmt.Sprintf("%d. %s - %s%s\n", i+1, rec.Label, formatAddr(rec.Address), mark)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func ConstructMyBalanceMessage(lines []string) string {
	head := "*Wallet Balances*\n💰\n\n"
	if len(lines) == 0 {
		return head + EscapeSpecialCharacters("No wallets saved yet. Ask me to add one.")
	}

	var sb strings.Builder
	sb.WriteString(head)
	for _, line := range lines {
		sb.WriteString(EscapeSpecialCharacters(line) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func ConstructChallengeMessage(address, challenge string, ttl time.Duration) string {
	head := fmt.Sprintf("*Verify Wallet*\n🔐%s\n\n", EscapeSpecialCharacters("#"+formatAddr(address)))
	body := EscapeSpecialCharacters("Sign this exact text with the wallet's private key:") + "\n\n" +
		"`" + challenge + "`\n\n" +
		EscapeSpecialCharacters(fmt.Sprintf("Then send: verify_wallet %s <base58 signature>", address)) + "\n" +
		EscapeSpecialCharacters(fmt.Sprintf("The challenge expires in %d minutes.", int(ttl.Minutes())))
	return head + body
}
