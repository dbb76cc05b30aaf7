// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package broadcast

import (
	"context"
	"time"

	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

var ErrUnknownDriver = errors.New("unknown broadcast driver")

// NewPublisher creates the publisher selected by cfg.Driver.
func NewPublisher(log *logging.Logger, cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return &discardPublisher{log: log}, nil
	case DriverKafkaGo:
		return newKafkaGoPublisher(cfg), nil
	case DriverSarama:
		return newSaramaPublisher(cfg)
	}
	return nil, errors.Wrap(ErrUnknownDriver, cfg.Driver)
}

// discardPublisher acks every record so the outbox keeps a bounded size
// when no broker is configured.
type discardPublisher struct {
	log *logging.Logger
}

func (p *discardPublisher) Publish(_ context.Context, key, _ []byte) error {
	p.log.Debug("discarding execution report", logging.String("key", string(key)))
	return nil
}

func (p *discardPublisher) Close() error { return nil }

type kafkaGoPublisher struct {
	writer *kafka.Writer
}

func newKafkaGoPublisher(cfg Config) *kafkaGoPublisher {
	return &kafkaGoPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *kafkaGoPublisher) Publish(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *kafkaGoPublisher) Close() error {
	return p.writer.Close()
}

type saramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func newSaramaPublisher(cfg Config) (*saramaPublisher, error) {
	scfg := sarama.NewConfig()
	scfg.Producer.Return.Successes = true
	scfg.Producer.RequiredAcks = sarama.WaitForAll
	// retries are driven by the broadcaster
	scfg.Producer.Retry.Max = 0
	scfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, scfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create sarama producer")
	}
	return &saramaPublisher{producer: producer, topic: cfg.Topic}, nil
}

func (p *saramaPublisher) Publish(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *saramaPublisher) Close() error {
	return p.producer.Close()
}
