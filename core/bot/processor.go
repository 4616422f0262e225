package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/YingqiDuan/trading-telegram-bot/core/audit"
	"github.com/YingqiDuan/trading-telegram-bot/core/command"
	"github.com/YingqiDuan/trading-telegram-bot/core/intent"
	"github.com/YingqiDuan/trading-telegram-bot/core/ratelimit"
)

// Processor runs one utterance through resolve, rate limit and dispatch.
// Quota is only consumed once a command actually resolved: garbage input and
// a down model never count against the user.
type Processor struct {
	resolver   *intent.Resolver
	limiter    ratelimit.Limiter
	dispatcher *command.Dispatcher
	recorder   audit.Recorder
}

func NewProcessor(resolver *intent.Resolver, limiter ratelimit.Limiter, dispatcher *command.Dispatcher, recorder audit.Recorder) *Processor {
	return &Processor{
		resolver:   resolver,
		limiter:    limiter,
		dispatcher: dispatcher,
		recorder:   recorder,
	}
}

const helpReply = "I could not map that to a command\\. Try something like " +
	"\"balance of \\<address\\>\", \"recent transactions for \\<address\\>\", " +
	"\"add wallet \\<address\\>\" or \"verify wallet \\<address\\>\"\\."

const upstreamDownReply = "I cannot understand messages right now\\. Please try again in a moment\\."

const commandListReply = "*Commands*\n" +
	"/sol\\_balance \\<address\\>\n" +
	"/token\\_info \\<mint\\>\n" +
	"/account\\_details \\<address\\>\n" +
	"/transaction \\<signature\\>\n" +
	"/recent\\_tx \\<address\\> \\[limit\\]\n" +
	"/token\\_accounts \\<address\\>\n" +
	"/validators \\[limit\\]\n" +
	"/latest\\_block\n" +
	"/network\\_status\n" +
	"/slot\n" +
	"/add\\_wallet \\<address\\> \\[label\\]\n" +
	"/my\\_wallets\n" +
	"/remove\\_wallet \\<address\\>\n" +
	"/my\\_balance\n" +
	"/verify\\_wallet \\<address\\> \\[signature\\]\n\n" +
	"Or just ask in plain language\\."

// HandleUtterance maps text to a reply. Every path returns user-facing
// MarkdownV2; nothing here panics the update loop.
func (p *Processor) HandleUtterance(ctx context.Context, userID, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "/start" || trimmed == "/help" {
		return commandListReply
	}

	cmd, err := p.resolve(ctx, text)
	if err != nil {
		if errors.Is(err, intent.ErrUpstreamUnavailable) {
			return upstreamDownReply
		}
		return helpReply
	}

	if err := p.limiter.Check(userID, cmd.Category()); err != nil {
		var denied *ratelimit.DeniedError
		if errors.As(err, &denied) {
			return command.EscapeSpecialCharacters(
				"You are sending requests too fast. Try again in " + denied.RetryAfter.Round(time.Second).String() + ".")
		}
		return command.EscapeSpecialCharacters("You are sending requests too fast. Try again shortly.")
	}

	start := time.Now()
	reply, err := p.dispatcher.Execute(ctx, userID, cmd)
	p.recorder.Record(userID, string(cmd.Kind), cmd.Category(), err == nil, time.Since(start))
	return reply
}

// a leading slash is the typed-command fast path and skips the model
func (p *Processor) resolve(ctx context.Context, text string) (command.Command, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		fields := strings.Fields(strings.TrimPrefix(trimmed, "/"))
		if len(fields) == 0 {
			return command.Command{}, intent.ErrUnparseable
		}
		cmd, err := command.Parse(fields[0], fields[1:])
		if err != nil {
			return command.Command{}, intent.ErrUnparseable
		}
		return cmd, nil
	}
	return p.resolver.Resolve(ctx, trimmed)
}
