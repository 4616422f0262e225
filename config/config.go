package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

type TelegramConfig struct {
	BotToken           string `mapstructure:"BotToken"`
	Mode               string `mapstructure:"Mode"` // "poll" or "webhook"
	PollTimeoutSeconds int64  `mapstructure:"PollTimeoutSeconds"`
	ListenAddr         string `mapstructure:"ListenAddr"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"APIKey"`
	BaseURL        string `mapstructure:"BaseURL"`
	Model          string `mapstructure:"Model"`
	TimeoutSeconds int64  `mapstructure:"TimeoutSeconds"`
}

type SolanaConfig struct {
	Endpoint       string `mapstructure:"Endpoint"`
	TimeoutSeconds int64  `mapstructure:"TimeoutSeconds"`
	MaxTxList      int    `mapstructure:"MaxTxList"`
}

type CategoryLimit struct {
	MaxCalls      int   `mapstructure:"MaxCalls"`
	WindowSeconds int64 `mapstructure:"WindowSeconds"`
}

type RateLimitConfig struct {
	Enabled       bool                     `mapstructure:"Enabled"`
	Backend       string                   `mapstructure:"Backend"` // "memory" or "redis"
	MaxCalls      int                      `mapstructure:"MaxCalls"`
	WindowSeconds int64                    `mapstructure:"WindowSeconds"`
	Categories    map[string]CategoryLimit `mapstructure:"Categories"`
}

type VerifyConfig struct {
	ExpirySeconds int64 `mapstructure:"ExpirySeconds"`
}

type WalletConfig struct {
	Backend string `mapstructure:"Backend"` // "memory" or "postgres"
}

// one database one instance
type PostgresqlConfig struct {
	Host       string
	Port       int64
	Account    string
	Password   string
	DBName     string
	SchemaName string
}

type RedisConfig struct {
	Host         string `mapstructure:"Host"`
	DB           int64  `mapstructure:"DB"`
	Password     string `mapstructure:"Password"`
	MinIdleConns int64  `mapstructure:"MinIdleConns"`
}

type KafkaConfig struct {
	Enabled    bool   `mapstructure:"Enabled"`
	Host       string `mapstructure:"Host"`
	AuditTopic string `mapstructure:"AuditTopic"`
	Protocol   string `mapstructure:"Protocol"`
	Username   string `mapstructure:"Username"`
	Password   string `mapstructure:"Password"`
	CAPath     string `mapstructure:"CAPath"`
}

// struct decode must has tag
type Config struct {
	TelegramConf   TelegramConfig   `mapstructure:"TelegramConfig"`
	OpenAIConf     OpenAIConfig     `mapstructure:"OpenAIConfig"`
	SolanaConf     SolanaConfig     `mapstructure:"SolanaConfig"`
	RateLimitConf  RateLimitConfig  `mapstructure:"RateLimitConfig"`
	VerifyConf     VerifyConfig     `mapstructure:"VerifyConfig"`
	WalletConf     WalletConfig     `mapstructure:"WalletConfig"`
	PostgresqlConf PostgresqlConfig `mapstructure:"PostgresqlConfig"`
	RedisConf      RedisConfig      `mapstructure:"RedisConfig"`
	KafkaConf      KafkaConfig      `mapstructure:"KafkaConfig"`
}

var (
	configMutex = sync.RWMutex{}
	config      Config

	configViper     *viper.Viper
	configFlyChange []chan bool
)

func RegistConfChange(c chan bool) {
	configFlyChange = append(configFlyChange, c)
}

func notifyConfChange() {
	for i := 0; i < len(configFlyChange); i++ {
		configFlyChange[i] <- true
	}
}

func watchConfig(c *viper.Viper) error {
	c.WatchConfig()
	cfn := func(e fsnotify.Event) {
		logger.Logrus.WithFields(logrus.Fields{"change": e.String()}).Info("config change and reload it")
		reloadConfig(c)
		notifyConfChange()
	}

	c.OnConfigChange(cfn)
	return nil
}

func LoadConf(configFilePath string) error {
	config = Config{}
	configMutex.Lock()
	defer configMutex.Unlock()

	configViper = viper.New()
	configViper.SetConfigName("config")
	configViper.AddConfigPath(configFilePath) //endwith "/"
	configViper.SetConfigType("yaml")

	if err := configViper.ReadInConfig(); err != nil {
		return err
	}
	if err := configViper.Unmarshal(&config); err != nil {
		return err
	}

	logger.Logrus.WithFields(logrus.Fields{"Config": config}).Info("Load config success")

	if err := watchConfig(configViper); err != nil {
		return err
	}
	return nil
}

func reloadConfig(c *viper.Viper) {
	configMutex.Lock()
	defer configMutex.Unlock()

	if err := c.ReadInConfig(); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Error("config ReLoad failed")
	}

	if err := configViper.Unmarshal(&config); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Error("unmarshal config failed")
	}

	logger.Logrus.WithFields(logrus.Fields{"config": config}).Info("Config ReLoad Success")
}

func GetTelegramConfig() TelegramConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.TelegramConf
}

func GetOpenAIConfig() OpenAIConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.OpenAIConf
}

func GetSolanaConfig() SolanaConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.SolanaConf
}

func GetRateLimitConfig() RateLimitConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.RateLimitConf
}

func GetVerifyConfig() VerifyConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.VerifyConf
}

func GetWalletConfig() WalletConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.WalletConf
}

func GetPostgresqlConfig() PostgresqlConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.PostgresqlConf
}

func GetRedisConfig() RedisConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.RedisConf
}

func GetKafkaConfig() KafkaConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.KafkaConf
}
