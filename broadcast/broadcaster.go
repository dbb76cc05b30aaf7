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
	"strconv"
	"sync"
	"time"

	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"
	"code.vegaprotocol.io/fixmatch/outbox"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Publisher sends one record to the message bus.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/publisher_mock.go -package mocks code.vegaprotocol.io/fixmatch/broadcast Publisher
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Store is the outbox the broadcaster drains.
type Store interface {
	Pending(limit int, fn func(outbox.Record) error) error
	IncAttempts(seq uint64) error
	MarkAcked(seq uint64) error
	Prune() (int, error)
}

// Broadcaster publishes pending outbox records in sequence order. A record
// that cannot be published ends the scan so later records never overtake it.
type Broadcaster struct {
	log   *logging.Logger
	store Store
	pub   Publisher

	mu  sync.RWMutex
	cfg Config
}

// New creates a broadcaster draining store into pub.
func New(log *logging.Logger, cfg Config, store Store, pub Publisher) *Broadcaster {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Broadcaster{
		log:   log,
		cfg:   cfg,
		store: store,
		pub:   pub,
	}
}

// ReloadConf updates the internal configuration of the broadcaster, the
// driver and brokers are only read at startup.
func (b *Broadcaster) ReloadConf(cfg Config) {
	b.log.Info("reloading configuration")
	if b.log.GetLevel() != cfg.Level.Get() {
		b.log.Info("updating log level",
			logging.String("old", b.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		b.log.SetLevel(cfg.Level.Get())
	}
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
}

func (b *Broadcaster) config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// Run scans the outbox every interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	cfg := b.config()
	b.log.Info("broadcaster started",
		logging.String("driver", cfg.Driver),
		logging.String("topic", cfg.Topic),
		logging.Duration("interval", cfg.Interval.Get()))

	ticker := time.NewTicker(cfg.Interval.Get())
	defer ticker.Stop()

	scans := 0
	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcaster stopped")
			return nil
		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn("scan of the outbox interrupted", logging.Error(err))
			}
			scans++
			if every := b.config().PruneEvery; every > 0 && scans%every == 0 {
				if n, err := b.store.Prune(); err != nil {
					b.log.Error("could not prune the outbox", logging.Error(err))
				} else if n > 0 {
					b.log.Debug("pruned acked records", logging.Int("records", n))
				}
			}
		}
	}
}

// Flush publishes up to BatchSize pending records and returns how many were
// acked.
func (b *Broadcaster) Flush(ctx context.Context) (int, error) {
	cfg := b.config()
	acked := 0
	err := b.store.Pending(cfg.BatchSize, func(rec outbox.Record) error {
		if err := b.publish(ctx, cfg, rec); err != nil {
			metrics.PublishCounterInc(cfg.Driver, "error")
			return errors.Wrapf(err, "could not publish record %d", rec.Seq)
		}
		metrics.PublishCounterInc(cfg.Driver, "ok")
		if err := b.store.MarkAcked(rec.Seq); err != nil {
			return errors.Wrapf(err, "could not ack record %d", rec.Seq)
		}
		acked++
		return nil
	})
	return acked, err
}

func (b *Broadcaster) publish(ctx context.Context, cfg Config, rec outbox.Record) error {
	key := []byte(strconv.FormatUint(rec.Report.OrderID, 10))

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.RetryInitialInterval.Get()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.MaxRetries), ctx)

	return backoff.Retry(func() error {
		if err := b.store.IncAttempts(rec.Seq); err != nil {
			// the record is gone, nothing left to publish
			return backoff.Permanent(err)
		}
		err := b.pub.Publish(ctx, key, rec.Payload)
		if err != nil {
			b.log.Debug("publish attempt failed",
				logging.Uint64("seq", rec.Seq),
				logging.Error(err))
		}
		return err
	}, policy)
}
