// Package kafka publishes monitor alert signals to a topic so operators can
// consume threshold crossings outside the process log.
package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

type AlertProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func CreateProducer(brokers []string, topic string) (*AlertProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Version = sarama.V2_8_0_0 // Match your Kafka version

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &AlertProducer{producer: producer, topic: topic}, nil
}

// Alert publishes one alert message. Satisfies monitor.AlertSink.
func (p *AlertProducer) Alert(message string) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Value:     sarama.StringEncoder(message),
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (p *AlertProducer) Close() error {
	return p.producer.Close()
}
