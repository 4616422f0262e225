package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// context keys the webhook handler fills in so the access log can tie a
// request to the telegram update it carried
const (
	ctxKeyUpdateID = "tg_update_id"
	ctxKeyChatID   = "tg_chat_id"
)

// MiddleLogger writes one JSON line per request to its own rotating visit
// log. Health probes are always skipped; extra paths to skip can be passed
// in.
func MiddleLogger(visitLogFile string, notLogged ...string) gin.HandlerFunc {

	visitLogInst := logrus.New()
	visitLogInst.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	visitLogInst.Out = &lumberjack.Logger{
		Filename:   visitLogFile,
		MaxSize:    500,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
	}
	visitLogInst.SetLevel(logrus.DebugLevel)

	skip := make(map[string]struct{}, len(notLogged)+1)
	skip["/healthz"] = struct{}{}
	for _, p := range notLogged {
		skip[p] = struct{}{}
	}

	//visit log
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		start := time.Now()
		c.Next()
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		fields := logrus.Fields{
			"statusCode": statusCode,
			"latency":    time.Since(start).String(),
			"clientIP":   c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
			"userAgent":  c.Request.UserAgent(),
		}
		if updateID, ok := c.Get(ctxKeyUpdateID); ok {
			fields["updateID"] = updateID
		}
		if chatID, ok := c.Get(ctxKeyChatID); ok {
			fields["chatID"] = chatID
		}

		entry := visitLogInst.WithFields(fields)

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= http.StatusInternalServerError:
			entry.Error()
		case statusCode >= http.StatusBadRequest:
			entry.Warn()
		default:
			entry.Info()
		}
	}
}
