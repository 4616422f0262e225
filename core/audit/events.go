package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/config"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

// Event is one handled command, published for offline accounting.
type Event struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Command    string `json:"command"`
	Category   string `json:"category"`
	OK         bool   `json:"ok"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	CreateTime int64  `json:"create_time"`
}

// Recorder takes events off the hot path; implementations must not block
// message handling.
type Recorder interface {
	Record(userID, command, category string, ok bool, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Record(string, string, string, bool, time.Duration) {}

// NewRecorder returns the kafka recorder when auditing is enabled, otherwise
// a no-op.
func NewRecorder() Recorder {
	if !config.GetKafkaConfig().Enabled {
		return noopRecorder{}
	}
	return kafkaRecorder{}
}

type kafkaRecorder struct{}

func (kafkaRecorder) Record(userID, command, category string, ok bool, elapsed time.Duration) {
	event := Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Command:    command,
		Category:   category,
		OK:         ok,
		ElapsedMs:  elapsed.Milliseconds(),
		CreateTime: time.Now().Unix(),
	}

	go func() {
		if err := publish(&event); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"EventID": event.ID, "ErrMsg": err}).Error("publish audit event failed")
		}
	}()
}

func publish(in *Event) error {
	data, err := json.Marshal(&in)
	if err != nil {
		return err
	}

	cfg := config.GetKafkaConfig()
	err = GetKafkaInst().Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &cfg.AuditTopic, Partition: kafka.PartitionAny},
		Key:            []byte(in.UserID),
		Value:          []byte(data),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}
