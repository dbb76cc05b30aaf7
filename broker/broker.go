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

package broker

import (
	"context"
	"sync"

	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var ErrTooManySubscribers = errors.New("too many subscribers")

// Subscriber receives execution reports from the broker. Required (acking)
// subscribers get Push called synchronously, the others are written to
// through C and dropped when they do not keep up.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/subscriber_mock.go -package mocks code.vegaprotocol.io/fixmatch/broker Subscriber
type Subscriber interface {
	Push(reports ...gateway.ExecutionReport)
	Closed() <-chan struct{}
	C() chan<- []gateway.ExecutionReport
	Session() string
	Halt()
	SetID(id int)
	ID() int
	Ack() bool
}

type subscription struct {
	Subscriber
	required bool
	session  string
}

// Broker fans out execution reports to the subscribers interested in them.
type Broker struct {
	ctx context.Context
	log *logging.Logger
	cfg Config

	mu   sync.RWMutex
	subs map[int]*subscription
	keys []int

	// sendMu keeps batches in the order the gateway emitted them for every
	// subscriber.
	sendMu  sync.Mutex
	dropped *atomic.Uint64
}

// New creates a new broker. Once ctx is cancelled every subscriber is halted
// and further sends are discarded.
func New(ctx context.Context, log *logging.Logger, cfg Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	b := &Broker{
		ctx:     ctx,
		log:     log,
		cfg:     cfg,
		subs:    map[int]*subscription{},
		keys:    []int{},
		dropped: atomic.NewUint64(0),
	}
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for k, s := range b.subs {
			s.Halt()
			delete(b.subs, k)
		}
		metrics.SubscribersGaugeSet(0)
		b.mu.Unlock()
	}()
	return b
}

// ReloadConf updates the internal configuration of the broker.
func (b *Broker) ReloadConf(cfg Config) {
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

// Send delivers the reports to every subscriber, a subscriber bound to a
// session only sees the reports addressed to that session.
func (b *Broker) Send(reports ...gateway.ExecutionReport) {
	if len(reports) == 0 {
		return
	}
	select {
	case <-b.ctx.Done():
		return
	default:
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	logDropped := bool(b.cfg.LogDroppedDebug)
	b.mu.RUnlock()

	unsub := []int{}
	for _, sub := range subs {
		batch := filter(sub.session, reports)
		if len(batch) == 0 {
			continue
		}
		select {
		case <-sub.Closed():
			unsub = append(unsub, sub.ID())
			continue
		default:
		}
		if sub.required {
			sub.Push(batch...)
			continue
		}
		select {
		case sub.C() <- batch:
		default:
			b.dropped.Inc()
			b.log.Warn("subscriber too slow, dropping it",
				logging.Int("id", sub.ID()),
				logging.String("session", sub.session))
			if logDropped {
				for _, r := range batch {
					b.log.Debug("undelivered report", logging.String("exec-id", r.ExecID), logging.OrderID(r.OrderID))
				}
			}
			sub.Halt()
			unsub = append(unsub, sub.ID())
		}
	}
	if len(unsub) != 0 {
		b.mu.Lock()
		b.rmSubs(unsub...)
		b.mu.Unlock()
	}
}

func filter(session string, reports []gateway.ExecutionReport) []gateway.ExecutionReport {
	if len(session) == 0 {
		return reports
	}
	out := make([]gateway.ExecutionReport, 0, len(reports))
	for _, r := range reports {
		if r.SessionID == session {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe registers a new subscriber, returning the key.
func (b *Broker) Subscribe(s Subscriber) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !s.Ack() && b.cfg.MaxSubscriptions > 0 && b.optional() >= b.cfg.MaxSubscriptions {
		return 0, ErrTooManySubscribers
	}
	k := b.getKey()
	s.SetID(k)
	b.subs[k] = &subscription{
		Subscriber: s,
		required:   s.Ack(),
		session:    s.Session(),
	}
	metrics.SubscribersGaugeSet(len(b.subs))
	b.log.Debug("new subscriber",
		logging.Int("id", k),
		logging.Bool("required", s.Ack()),
		logging.String("session", s.Session()))
	return k, nil
}

// Unsubscribe removes subscriber from broker, this does not change the
// state of the subscriber.
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	b.rmSubs(k)
	b.mu.Unlock()
}

// Subscribers returns the number of registered subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many subscribers were dropped for being too slow.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broker) optional() int {
	n := 0
	for _, s := range b.subs {
		if !s.required {
			n++
		}
	}
	return n
}

func (b *Broker) getKey() int {
	if len(b.keys) > 0 {
		k := b.keys[0]
		b.keys = b.keys[1:] // pop first element
		return k
	}
	return len(b.subs) + 1 // add 1 to avoid zero value
}

func (b *Broker) rmSubs(keys ...int) {
	for _, k := range keys {
		// a duplicate call must not put the key back twice
		if _, ok := b.subs[k]; !ok {
			continue
		}
		delete(b.subs, k)
		b.keys = append(b.keys, k)
	}
	metrics.SubscribersGaugeSet(len(b.subs))
}
