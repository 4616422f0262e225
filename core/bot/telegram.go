package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/config"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

type TgUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

type tgUpdatesResponse struct {
	OK          bool       `json:"ok"`
	Result      []TgUpdate `json:"result"`
	Description string     `json:"description"`
}

type tgSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramBot drives the bot API: long polling in, sendMessage out. Each
// update is handled on its own goroutine so a slow RPC call never stalls
// the poll loop.
type TelegramBot struct {
	token       string
	pollTimeout int
	processor   *Processor
	client      *http.Client
}

func NewTelegramBot(cfg config.TelegramConfig, processor *Processor) *TelegramBot {
	pollTimeout := int(cfg.PollTimeoutSeconds)
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &TelegramBot{
		token:       cfg.BotToken,
		pollTimeout: pollTimeout,
		processor:   processor,
		client:      &http.Client{Timeout: time.Duration(pollTimeout+10) * time.Second},
	}
}

// Run polls getUpdates until ctx is cancelled.
func (b *TelegramBot) Run(ctx context.Context) {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("get telegram updates failed")
			time.Sleep(3 * time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update and replies in the same chat.
func (b *TelegramBot) HandleUpdate(ctx context.Context, update TgUpdate) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	userID := strconv.FormatInt(update.Message.Chat.ID, 10)
	if update.Message.From != nil {
		userID = strconv.FormatInt(update.Message.From.ID, 10)
	}

	reply := b.processor.HandleUtterance(ctx, userID, update.Message.Text)
	if reply == "" {
		return
	}

	if err := b.SendMessage(ctx, update.Message.Chat.ID, reply); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ChatID": update.Message.Chat.ID, "ErrMsg": err}).Error("send telegram message failed")
	}
}

func (b *TelegramBot) getUpdates(ctx context.Context, offset int64) ([]TgUpdate, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?timeout=%d&offset=%d&allowed_updates=[\"message\"]",
		b.token, b.pollTimeout, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var parsed tgUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, fmt.Errorf("getUpdates failed: %s", parsed.Description)
	}
	return parsed.Result, nil
}

// SendMessage posts one MarkdownV2 message to a chat.
func (b *TelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", b.token)

	payload, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var parsed tgSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return err
	}
	if !parsed.OK {
		return fmt.Errorf("sendMessage failed: %s", parsed.Description)
	}
	return nil
}
