package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YingqiDuan/trading-telegram-bot/core/command"
	"github.com/YingqiDuan/trading-telegram-bot/core/intent"
	"github.com/YingqiDuan/trading-telegram-bot/core/ratelimit"
	"github.com/YingqiDuan/trading-telegram-bot/core/solrpc"
	"github.com/YingqiDuan/trading-telegram-bot/core/wallet"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(filepath.Join(os.TempDir(), "tg_bot_test.log"))
	logger.SetLogLevel("error")
	os.Exit(m.Run())
}

const testAddr = "So11111111111111111111111111111111111111112"

type scriptedModel struct {
	reply  string
	err    error
	called bool
}

func (s *scriptedModel) Complete(ctx context.Context, system, user string) (string, error) {
	s.called = true
	return s.reply, s.err
}

type spyLimiter struct {
	checks []string
	deny   error
}

func (s *spyLimiter) Check(userID, category string) error {
	s.checks = append(s.checks, category)
	return s.deny
}

type spyRecorder struct {
	commands []string
	ok       []bool
}

func (s *spyRecorder) Record(userID, cmd, category string, ok bool, elapsed time.Duration) {
	s.commands = append(s.commands, cmd)
	s.ok = append(s.ok, ok)
}

type stubService struct {
	solrpc.Service
	slot uint64
	err  error
}

func (s *stubService) GetSlot(ctx context.Context) (uint64, error) { return s.slot, s.err }

func (s *stubService) GetSolBalance(ctx context.Context, address string) (*solrpc.BalanceResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &solrpc.BalanceResult{Address: address, Lamports: 1000000000, Sol: 1}, nil
}

func newTestProcessor(model intent.CompletionClient, limiter ratelimit.Limiter, recorder *spyRecorder, sol solrpc.Service) *Processor {
	store := wallet.NewMemoryStore()
	verifier := wallet.NewVerifier(store, 10*time.Minute)
	dispatcher := command.NewDispatcher(sol, store, verifier, 10)
	return NewProcessor(intent.NewResolver(model), limiter, dispatcher, recorder)
}

func TestHandleUtterancePipeline(t *testing.T) {
	limiter := &spyLimiter{}
	recorder := &spyRecorder{}
	p := newTestProcessor(&scriptedModel{reply: "sol_balance " + testAddr}, limiter, recorder, &stubService{})

	reply := p.HandleUtterance(context.Background(), "u1", "balance of "+testAddr+" please")

	assert.Contains(t, reply, "1\\.000000000 SOL")
	assert.Equal(t, []string{"balance"}, limiter.checks)
	require.Equal(t, []string{"sol_balance"}, recorder.commands)
	assert.Equal(t, []bool{true}, recorder.ok)
}

func TestHandleUtteranceUnparseableConsumesNoQuota(t *testing.T) {
	limiter := &spyLimiter{}
	recorder := &spyRecorder{}
	p := newTestProcessor(&scriptedModel{reply: "cannot complete"}, limiter, recorder, &stubService{})

	reply := p.HandleUtterance(context.Background(), "u1", "tell me a joke")

	assert.Contains(t, reply, "could not map")
	assert.Empty(t, limiter.checks)
	assert.Empty(t, recorder.commands)
}

func TestHandleUtteranceUpstreamDownConsumesNoQuota(t *testing.T) {
	limiter := &spyLimiter{}
	p := newTestProcessor(&scriptedModel{err: errors.New("dial tcp: refused")}, limiter, &spyRecorder{}, &stubService{})

	reply := p.HandleUtterance(context.Background(), "u1", "current slot")

	assert.Contains(t, reply, "try again in a moment")
	assert.Empty(t, limiter.checks)
}

func TestHandleUtteranceDenied(t *testing.T) {
	limiter := &spyLimiter{deny: &ratelimit.DeniedError{Category: "balance", RetryAfter: 42 * time.Second}}
	recorder := &spyRecorder{}
	p := newTestProcessor(&scriptedModel{reply: "sol_balance " + testAddr}, limiter, recorder, &stubService{})

	reply := p.HandleUtterance(context.Background(), "u1", "balance again")

	assert.Contains(t, reply, "42s")
	assert.Empty(t, recorder.commands, "denied commands never execute")
}

func TestHandleUtteranceSlashBypassesModel(t *testing.T) {
	model := &scriptedModel{reply: "should not be used"}
	limiter := &spyLimiter{}
	p := newTestProcessor(model, limiter, &spyRecorder{}, &stubService{slot: 123})

	reply := p.HandleUtterance(context.Background(), "u1", "/slot")

	assert.Contains(t, reply, "123")
	assert.False(t, model.called)
	assert.Equal(t, []string{""}, limiter.checks)
}

func TestHandleUtteranceBadSlashCommand(t *testing.T) {
	model := &scriptedModel{}
	p := newTestProcessor(model, &spyLimiter{}, &spyRecorder{}, &stubService{})

	reply := p.HandleUtterance(context.Background(), "u1", "/definitely_not_a_command")

	assert.Contains(t, reply, "could not map")
	assert.False(t, model.called)
}

func TestHandleUtteranceHelp(t *testing.T) {
	model := &scriptedModel{}
	limiter := &spyLimiter{}
	p := newTestProcessor(model, limiter, &spyRecorder{}, &stubService{})

	for _, text := range []string{"/help", "/start", "  /help  "} {
		reply := p.HandleUtterance(context.Background(), "u1", text)
		assert.Contains(t, reply, "Commands")
	}
	assert.False(t, model.called)
	assert.Empty(t, limiter.checks)
}

func TestHandleUtteranceRecordsFailures(t *testing.T) {
	recorder := &spyRecorder{}
	p := newTestProcessor(&scriptedModel{reply: "slot"}, &spyLimiter{}, recorder, &stubService{err: solrpc.ErrUnavailable})

	reply := p.HandleUtterance(context.Background(), "u1", "what slot")

	assert.Contains(t, reply, "not responding")
	require.Equal(t, []bool{false}, recorder.ok)
}
