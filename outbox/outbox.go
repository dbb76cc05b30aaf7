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

package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"code.vegaprotocol.io/fixmatch/broker"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var ErrRecordNotFound = errors.New("outbox record not found")

// Outbox persists every execution report before it is published. It is a
// required broker subscriber: a report the gateway emitted is never lost to
// a slow publisher.
type Outbox struct {
	*broker.Base
	log *logging.Logger
	cfg Config
	db  *pebble.DB
	wo  *pebble.WriteOptions

	// mu serialises sequence allocation and state rewrites
	mu      sync.Mutex
	seq     uint64
	pending *atomic.Int64
}

// Open opens (or creates) the outbox stored in dir and recovers the last
// sequence number and the number of pending records.
func Open(ctx context.Context, log *logging.Logger, cfg Config, dir string) (*Outbox, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open outbox at %s", dir)
	}
	wo := pebble.NoSync
	if cfg.SyncWrites {
		wo = pebble.Sync
	}
	o := &Outbox{
		Base:    broker.NewBase(ctx, "", 1, true),
		log:     log,
		cfg:     cfg,
		db:      db,
		wo:      wo,
		pending: atomic.NewInt64(0),
	}
	if err := o.recover(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("outbox opened",
		logging.String("dir", dir),
		logging.Uint64("last-seq", o.seq),
		logging.Int64("pending", o.pending.Load()))
	return o, nil
}

func (o *Outbox) recover() error {
	val, closer, err := o.db.Get(lastSeqKey)
	switch {
	case err == nil:
		if len(val) == 8 {
			o.seq = binary.BigEndian.Uint64(val)
		}
		closer.Close()
	case !errors.Is(err, pebble.ErrNotFound):
		return err
	}

	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return err
	}
	defer iter.Close()

	var pending int64
	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		val := iter.Value()
		if len(val) > 0 && State(val[0]) == StatePending {
			pending++
		}
		if seq > o.seq {
			o.seq = seq
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	o.pending.Store(pending)
	metrics.OutboxPendingGaugeSet(int(pending))
	return nil
}

// ReloadConf updates the internal configuration of the outbox.
func (o *Outbox) ReloadConf(cfg Config) {
	o.log.Info("reloading configuration")
	if o.log.GetLevel() != cfg.Level.Get() {
		o.log.Info("updating log level",
			logging.String("old", o.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		o.log.SetLevel(cfg.Level.Get())
	}
	o.mu.Lock()
	o.cfg = cfg
	if cfg.SyncWrites {
		o.wo = pebble.Sync
	} else {
		o.wo = pebble.NoSync
	}
	o.mu.Unlock()
}

// Push is called by the broker for every batch of reports.
func (o *Outbox) Push(reports ...gateway.ExecutionReport) {
	if _, err := o.append(reports...); err != nil {
		o.log.Error("could not persist execution reports",
			logging.Int("count", len(reports)),
			logging.Error(err))
	}
}

// Append persists a single report and returns its sequence number.
func (o *Outbox) Append(report gateway.ExecutionReport) (uint64, error) {
	seqs, err := o.append(report)
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

func (o *Outbox) append(reports ...gateway.ExecutionReport) ([]uint64, error) {
	if len(reports) == 0 {
		return nil, nil
	}
	payloads := make([][]byte, 0, len(reports))
	for _, r := range reports {
		p, err := json.Marshal(r)
		if err != nil {
			return nil, errors.Wrap(err, "could not encode execution report")
		}
		payloads = append(payloads, p)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	batch := o.db.NewBatch()
	defer batch.Close()
	seqs := make([]uint64, 0, len(payloads))
	seq := o.seq
	for _, p := range payloads {
		seq++
		if err := batch.Set(keyFor(seq), encodeValue(StatePending, 0, p), nil); err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	if err := batch.Set(lastSeqKey, encodeSeq(seq), nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(o.wo); err != nil {
		return nil, errors.Wrap(err, "could not commit outbox batch")
	}
	o.seq = seq
	n := o.pending.Add(int64(len(seqs)))
	metrics.OutboxPendingGaugeSet(int(n))
	return seqs, nil
}

// Pending calls fn with up to limit pending records in sequence order,
// limit <= 0 means all of them. Iteration stops at the first error fn returns.
func (o *Outbox) Pending(limit int, fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) > 0 && State(val[0]) != StatePending {
			continue
		}
		rec, err := decodeRecord(iter.Key(), val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return iter.Error()
}

// Get returns the record stored under seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	key := keyFor(seq)
	val, closer, err := o.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(key, val)
}

// IncAttempts records one more publication attempt for seq.
func (o *Outbox) IncAttempts(seq uint64) error {
	return o.update(seq, func(rec *Record) bool {
		rec.Attempts++
		return true
	})
}

// MarkAcked flags seq as published, acking twice is a no-op.
func (o *Outbox) MarkAcked(seq uint64) error {
	var acked bool
	err := o.update(seq, func(rec *Record) bool {
		if rec.State == StateAcked {
			return false
		}
		rec.State = StateAcked
		acked = true
		return true
	})
	if err == nil && acked {
		n := o.pending.Dec()
		metrics.OutboxPendingGaugeSet(int(n))
	}
	return err
}

func (o *Outbox) update(seq uint64, fn func(*Record) bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	if !fn(&rec) {
		return nil
	}
	return o.db.Set(keyFor(seq), encodeValue(rec.State, rec.Attempts, rec.Payload), o.wo)
}

// Prune deletes the acked records and returns how many were removed.
func (o *Outbox) Prune() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return 0, err
	}
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || State(val[0]) != StateAcked {
			continue
		}
		if err := batch.Delete(iter.Key(), nil); err != nil {
			iter.Close()
			return 0, err
		}
		n++
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := batch.Commit(o.wo); err != nil {
		return 0, errors.Wrap(err, "could not prune outbox")
	}
	o.log.Debug("outbox pruned", logging.Int("records", n))
	return n, nil
}

// PendingCount returns the number of records not yet acked.
func (o *Outbox) PendingCount() int64 {
	return o.pending.Load()
}

// LastSeq returns the sequence number of the last appended record.
func (o *Outbox) LastSeq() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq
}

// Close halts the subscriber and closes the database.
func (o *Outbox) Close() error {
	o.Halt()
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.db.Close()
}
