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

	"code.vegaprotocol.io/fixmatch/gateway"
)

// Base carries the plumbing shared by subscribers: the cancellation of the
// subscriber, its buffered channel and the id assigned by the broker.
type Base struct {
	ctx     context.Context
	cfunc   context.CancelFunc
	ch      chan []gateway.ExecutionReport
	session string
	ack     bool
	id      int
}

// NewBase creates the base of a subscriber receiving the reports of session,
// or every report when session is empty. Subscribers acking delivery are
// pushed synchronously and never get dropped.
func NewBase(ctx context.Context, session string, buf int, ack bool) *Base {
	ctx, cfunc := context.WithCancel(ctx)
	if buf < 1 {
		buf = 1
	}
	return &Base{
		ctx:     ctx,
		cfunc:   cfunc,
		ch:      make(chan []gateway.ExecutionReport, buf),
		session: session,
		ack:     ack,
	}
}

// Ack returns whether or not this is a synchronous subscriber.
func (b *Base) Ack() bool {
	return b.ack
}

// C returns the channel the broker writes to.
func (b *Base) C() chan<- []gateway.ExecutionReport {
	return b.ch
}

// Recv returns the channel the subscriber reads from.
func (b *Base) Recv() <-chan []gateway.ExecutionReport {
	return b.ch
}

// Closed indicates to the broker that the subscriber is closed for business.
func (b *Base) Closed() <-chan struct{} {
	return b.ctx.Done()
}

// Halt is called by the broker when the subscriber is dropped. The channel
// is left open, a concurrent send must never panic.
func (b *Base) Halt() {
	b.cfunc()
}

func (b *Base) Session() string {
	return b.session
}

// SetID set the ID (exposed only to broker).
func (b *Base) SetID(id int) {
	b.id = id
}

// ID returns the subscriber ID.
func (b *Base) ID() int {
	return b.id
}
