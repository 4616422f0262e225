package web

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/core/bot"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

type Response struct {
	Code    int64       `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

func ServerRoute(tgbot *bot.TelegramBot) *gin.Engine {
	router := gin.New()

	// panics still need to land somewhere when the log dir is missing
	var recoverOut io.Writer = os.Stderr
	recoverFile, err := os.OpenFile("./log/recover.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Warn("open recover log file failed, using stderr")
	} else {
		recoverOut = recoverFile
	}

	router.Use(MiddleLogger("./log/visit.log"), gin.RecoveryWithWriter(recoverOut))

	// http router
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{Code: 0, Message: "ok"})
	})
	router.POST("/tg/webhook", TgWebhookHandler(tgbot))

	return router
}

// TgWebhookHandler accepts one telegram update per request, for deployments
// that register a webhook instead of long polling. The update is handled
// async; telegram only needs the 200.
func TgWebhookHandler(tgbot *bot.TelegramBot) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update bot.TgUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Warn("bad webhook payload")
			c.JSON(http.StatusBadRequest, Response{Code: 1, Message: "bad payload"})
			return
		}

		c.Set(ctxKeyUpdateID, update.UpdateID)
		if update.Message != nil {
			c.Set(ctxKeyChatID, update.Message.Chat.ID)
		}

		go tgbot.HandleUpdate(context.Background(), update)

		c.JSON(http.StatusOK, Response{Code: 0, Message: "ok"})
	}
}

func Run(addr string, tgbot *bot.TelegramBot) {
	if addr == "" {
		addr = ":8080"
	}

	router := ServerRoute(tgbot)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Fatal("Server start failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Error("Server forced to shutdown")
	}
}
