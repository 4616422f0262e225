package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/YingqiDuan/trading-telegram-bot/config"
	"github.com/YingqiDuan/trading-telegram-bot/core/audit"
	"github.com/YingqiDuan/trading-telegram-bot/core/bot"
	"github.com/YingqiDuan/trading-telegram-bot/core/command"
	"github.com/YingqiDuan/trading-telegram-bot/core/db"
	"github.com/YingqiDuan/trading-telegram-bot/core/intent"
	"github.com/YingqiDuan/trading-telegram-bot/core/ratelimit"
	"github.com/YingqiDuan/trading-telegram-bot/core/redis"
	"github.com/YingqiDuan/trading-telegram-bot/core/solrpc"
	"github.com/YingqiDuan/trading-telegram-bot/core/wallet"
	"github.com/YingqiDuan/trading-telegram-bot/core/web"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

func main() {
	configPath := flag.String("config_path", "./", "config file")
	logicLogFile := flag.String("logic_log_file", "./log/tg_bot.log", "logic log file")
	flag.Parse()

	//init logic logger
	logger.Init(*logicLogFile)

	//set log level
	logger.SetLogLevel("debug")

	err := config.LoadConf(*configPath)
	if err != nil {
		log.Fatal("load config failed:", err)
	}

	if config.GetRateLimitConfig().Backend == "redis" {
		redis.InitRedis()
	}

	if config.GetKafkaConfig().Enabled {
		audit.InitKafka()
	}

	var store wallet.Store
	if config.GetWalletConfig().Backend == "postgres" {
		store = wallet.NewBunStore(db.GetDB())
	} else {
		store = wallet.NewMemoryStore()
	}

	solCfg := config.GetSolanaConfig()
	solClient := solrpc.NewClient(solCfg.Endpoint, time.Duration(solCfg.TimeoutSeconds)*time.Second)

	verifier := wallet.NewVerifier(store, time.Duration(config.GetVerifyConfig().ExpirySeconds)*time.Second)
	dispatcher := command.NewDispatcher(solClient, store, verifier, solCfg.MaxTxList)
	resolver := intent.NewResolver(intent.NewOpenAIClient(config.GetOpenAIConfig()))
	limiter := ratelimit.FromConfig(config.GetRateLimitConfig())
	processor := bot.NewProcessor(resolver, limiter, dispatcher, audit.NewRecorder())

	tgCfg := config.GetTelegramConfig()
	tgbot := bot.NewTelegramBot(tgCfg, processor)

	if tgCfg.Mode != "webhook" {
		go tgbot.Run(context.Background())
	}

	web.Run(tgCfg.ListenAddr, tgbot)
}
