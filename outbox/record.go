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
	"encoding/binary"
	"encoding/json"

	"code.vegaprotocol.io/fixmatch/gateway"

	"github.com/pkg/errors"
)

var ErrInvalidRecord = errors.New("invalid outbox record")

type State uint8

const (
	StatePending State = iota
	StateAcked
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one execution report waiting to be published.
type Record struct {
	Seq      uint64
	State    State
	Attempts uint32
	// Payload is the JSON encoding of Report, as published.
	Payload []byte
	Report  gateway.ExecutionReport
}

const (
	keyPrefix  = 'r'
	headerSize = 1 + 4
)

var (
	lowerBound = []byte{keyPrefix}
	upperBound = []byte{keyPrefix + 1}
	// lastSeqKey survives pruning, sequence numbers are never reused
	lastSeqKey = []byte("meta/last-seq")
)

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// keyFor keeps records in sequence order under the key prefix.
func keyFor(seq uint64) []byte {
	k := make([]byte, 9)
	k[0] = keyPrefix
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

func parseKey(k []byte) (uint64, error) {
	if len(k) != 9 || k[0] != keyPrefix {
		return 0, errors.Wrapf(ErrInvalidRecord, "key %x", k)
	}
	return binary.BigEndian.Uint64(k[1:]), nil
}

// binary encoding: [state:1][attempts:4][payload...]
func encodeValue(state State, attempts uint32, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	buf[0] = byte(state)
	binary.BigEndian.PutUint32(buf[1:5], attempts)
	copy(buf[headerSize:], payload)
	return buf
}

func decodeRecord(key, val []byte) (Record, error) {
	seq, err := parseKey(key)
	if err != nil {
		return Record{}, err
	}
	if len(val) < headerSize {
		return Record{}, errors.Wrapf(ErrInvalidRecord, "seq %d has %d bytes", seq, len(val))
	}
	rec := Record{
		Seq:      seq,
		State:    State(val[0]),
		Attempts: binary.BigEndian.Uint32(val[1:5]),
		// the iterator owns val, keep a copy
		Payload: append([]byte(nil), val[headerSize:]...),
	}
	if err := json.Unmarshal(rec.Payload, &rec.Report); err != nil {
		return Record{}, errors.Wrapf(err, "could not decode report of seq %d", seq)
	}
	return rec, nil
}
