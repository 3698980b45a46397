package transport

import (
	"context"
	"time"

	"execgate/internal/codec"
	"execgate/internal/model"
	"execgate/pkg/exception"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// KafkaConfig describes the execution event topics and the command topic.
// Each event topic carries a single encoding.
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	BinaryTopic  string
	TextTopic    string
	CommandTopic string
	MaxAttempts  int
}

func (cfg KafkaConfig) topicEncodings() map[string]Encoding {
	m := make(map[string]Encoding, 2)
	if cfg.BinaryTopic != "" {
		m[cfg.BinaryTopic] = EncodingBinary
	}
	if cfg.TextTopic != "" {
		m[cfg.TextTopic] = EncodingText
	}
	return m
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource reads event frames from the configured topics. The topic decides the encoding.
type KafkaSource struct {
	reader    messageReader
	encodings map[string]Encoding
}

// NewKafkaSource joins the consumer group on the binary and text topics.
func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	encodings := cfg.topicEncodings()
	if len(cfg.Brokers) == 0 || len(encodings) == 0 {
		return nil, exception.ErrInvalidArgument
	}
	topics := make([]string, 0, len(encodings))
	for topic := range encodings {
		topics = append(topics, topic)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	logs.Infof("kafka source created, brokers: %v, topics: %v, group: %s", cfg.Brokers, topics, cfg.GroupID)
	return newKafkaSource(reader, encodings), nil
}

func newKafkaSource(reader messageReader, encodings map[string]Encoding) *KafkaSource {
	return &KafkaSource{reader: reader, encodings: encodings}
}

// Next blocks until the next message arrives. Messages from a topic without an
// encoding are returned as frames with no encoding so the caller can report them.
func (s *KafkaSource) Next(ctx context.Context) (Frame, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return Frame{}, err
	}
	received := msg.Time
	if received.IsZero() {
		received = time.Now()
	}
	return Frame{
		Encoding:   s.encodings[msg.Topic],
		Channel:    msg.Topic,
		Payload:    msg.Value,
		ReceivedAt: received.UTC(),
	}, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes order commands, keyed by order id so one order stays on one partition.
type KafkaSender struct {
	writer messageWriter
	topic  string
}

// NewKafkaSender creates a producer on the command topic.
func NewKafkaSender(cfg KafkaConfig) (*KafkaSender, error) {
	if len(cfg.Brokers) == 0 || cfg.CommandTopic == "" {
		return nil, exception.ErrInvalidArgument
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  attempts,
	}

	logs.Infof("kafka sender created, brokers: %v, topic: %s", cfg.Brokers, cfg.CommandTopic)
	return newKafkaSender(writer, cfg.CommandTopic), nil
}

func newKafkaSender(writer messageWriter, topic string) *KafkaSender {
	return &KafkaSender{writer: writer, topic: topic}
}

// Send encodes cmd and writes it to the command topic.
func (s *KafkaSender) Send(ctx context.Context, cmd model.Command) error {
	payload, err := codec.EncodeCommand(cmd)
	if err != nil {
		return errors.Wrap(err, "encode command")
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(cmd.Order.ID),
		Value: payload,
	}); err != nil {
		return errors.Wrapf(err, "write %s to %s", cmd.Kind, s.topic)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
