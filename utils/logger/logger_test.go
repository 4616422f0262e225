package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestInitDefaultsLogFile(t *testing.T) {
	Init("")
	require.NotNil(t, Logrus)

	lj, ok := Logrus.Out.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, defaultLogFile, lj.Filename)
}

func TestSetLogLevel(t *testing.T) {
	Init(filepath.Join(os.TempDir(), "tg_bot_test.log"))

	SetLogLevel("warn")
	assert.Equal(t, logrus.WarnLevel, Logrus.GetLevel())

	SetLogLevel("something-else")
	assert.Equal(t, logrus.InfoLevel, Logrus.GetLevel())
}
