package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// sendTimeout ограничивает одно сетевое ожидание sarama.
const sendTimeout = 5 * time.Second

type sendResult struct {
	partition int32
	offset    int64
	err       error
}

// Producer представляет Kafka producer для публикации событий
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true // Включаем идемпотентность
	config.Net.MaxOpenRequests = 1    // Для идемпотентности
	config.Producer.Timeout = sendTimeout
	config.Net.DialTimeout = sendTimeout
	config.Net.ReadTimeout = sendTimeout
	config.Net.WriteTimeout = sendTimeout
	config.Metadata.Retry.Max = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducerWithClient(producer), nil
}

func newProducerWithClient(producer sarama.SyncProducer) *Producer {
	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}
}

// PublishEvent публикует событие в Kafka.
// Контекст трассировки из ctx передаётся в заголовках сообщения.
// Если ctx завершился раньше подтверждения брокера, возвращается ошибка
// контекста, а исход отправки пишется в лог позже.
func (p *Producer) PublishEvent(ctx context.Context, topic string, key string, event any, headers ...sarama.RecordHeader) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	carrier := headerCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Headers:   carrier,
		Timestamp: time.Now(),
	}

	done := make(chan sendResult, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(msg)
		res := sendResult{partition: partition, offset: offset, err: err}
		done <- res
		p.logResult(topic, key, res)
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("failed to send message: %w", res.err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka send not acknowledged: %w", ctx.Err())
	}
}

func (p *Producer) logResult(topic, key string, res sendResult) {
	entry := p.logger.WithFields(log.Fields{
		"topic": topic,
		"key":   key,
	})
	if res.err != nil {
		entry.WithError(res.err).Error("failed to send message to kafka")
		return
	}
	entry.WithFields(log.Fields{
		"partition": res.partition,
		"offset":    res.offset,
	}).Debug("message sent to kafka")
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// headerCarrier адаптирует заголовки sarama к propagation.TextMapCarrier.
type headerCarrier []sarama.RecordHeader

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if string(h.Key) == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, string(h.Key))
	}
	return keys
}
