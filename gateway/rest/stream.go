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

package rest

import (
	"context"
	"sync"
	"time"

	"code.vegaprotocol.io/fixmatch/broker"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/gorilla/websocket"
)

type streamSubscriber struct {
	*broker.Base
	log     *logging.Logger
	conn    *websocket.Conn
	session string

	writeTimeout time.Duration
	pingPeriod   time.Duration
	closeOnce    sync.Once
}

const defaultPingPeriod = 30 * time.Second

func newStreamSubscriber(ctx context.Context, log *logging.Logger, conn *websocket.Conn, session string, cfg gateway.ServerConfig) *streamSubscriber {
	ping := cfg.StreamPingPeriod.Get()
	if ping <= 0 {
		ping = defaultPingPeriod
	}
	return &streamSubscriber{
		Base:         broker.NewBase(ctx, session, cfg.StreamBufferSize, false),
		log:          log,
		conn:         conn,
		session:      session,
		writeTimeout: cfg.WriteTimeout.Get(),
		pingPeriod:   ping,
	}
}

// Push is only used for acking subscribers, the stream reads C.
func (s *streamSubscriber) Push(reports ...gateway.ExecutionReport) {
	select {
	case s.C() <- reports:
	case <-s.Closed():
	}
}

func (s *streamSubscriber) run() {
	go s.readLoop()

	ping := time.NewTicker(s.pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.Closed():
			// halted by the broker, the server, or the read loop
			s.closeWith(websocket.CloseGoingAway, "stream closed")
			return
		case reports := <-s.Recv():
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteJSON(reports); err != nil {
				s.log.Debug("stream write failed", logging.String("session", s.session), logging.Error(err))
				s.Halt()
				s.closeWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				s.Halt()
				s.closeWith(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}

// readLoop drains control frames, any read error ends the stream.
func (s *streamSubscriber) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.Halt()
			return
		}
	}
}

func (s *streamSubscriber) closeWith(code int, text string) {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, text)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
		_ = s.conn.Close()
	})
}
