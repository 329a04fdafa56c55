// Package kafka publishes library domain events.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
	Topic string   `yaml:"topic" envconfig:"KAFKA_TOPIC" default:"library.events"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent marshals payload and stamps the event with a fresh id.
func NewEvent(typ, key string, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errors.Wrapf(err, "marshal %s", typ)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        key,
		OccurredAt: at.UTC(),
		Payload:    data,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type producerPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) Publisher {
	return &producerPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("kafka"),
	}
}

func (p *producerPublisher) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "send %s", ev.Type)
	}
	p.log.Debug("event sent",
		zap.String("type", ev.Type),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *producerPublisher) Close() error {
	return p.producer.Close()
}

type logPublisher struct {
	log *zap.Logger
}

// NewLogPublisher is used when no brokers are configured.
func NewLogPublisher(log *zap.Logger) Publisher {
	return &logPublisher{log: log.Named("events")}
}

func (p *logPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info("event",
		zap.String("id", ev.ID),
		zap.String("type", ev.Type),
		zap.String("key", ev.Key),
		zap.ByteString("payload", ev.Payload))
	return nil
}

func (p *logPublisher) Close() error { return nil }
