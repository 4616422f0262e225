package logger

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logrus is the process-wide logic logger; Init must run before anything
// else logs.
var Logrus *logrus.Logger

const defaultLogFile = "./log/tg_bot.log"

func Init(logfile string) {
	if logfile == "" {
		logfile = defaultLogFile
	}

	logger := logrus.New()

	logger.SetReportCaller(true)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger.Out = &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    500,
		MaxBackups: 150,
		MaxAge:     30,
		Compress:   true,
	}

	logger.SetLevel(logrus.DebugLevel)
	Logrus = logger
}

func SetLogLevel(runMode string) {
	modeLevel := logrus.InfoLevel

	switch runMode {
	case "debug":
		modeLevel = logrus.DebugLevel
	case "fatal":
		modeLevel = logrus.FatalLevel
	case "error":
		modeLevel = logrus.ErrorLevel
	case "warn":
		modeLevel = logrus.WarnLevel
	default:
		modeLevel = logrus.InfoLevel
	}

	Logrus.SetLevel(modeLevel)
}
