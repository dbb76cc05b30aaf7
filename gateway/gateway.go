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

package gateway

import (
	"sync"
	"time"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"
)

// Engine is the order book the gateway routes to.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/engine_mock.go -package mocks code.vegaprotocol.io/fixmatch/gateway Engine
type Engine interface {
	SubmitOrder(order types.Order) (*types.OrderConfirmation, error)
	CancelOrder(orderID uint64) (*types.OrderCancellation, bool)
	GetAggregatedBook() types.AggregatedBook
}

// ReportSink receives every execution report the gateway produces.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/report_sink_mock.go -package mocks code.vegaprotocol.io/fixmatch/gateway ReportSink
type ReportSink interface {
	Send(reports ...ExecutionReport)
}

// Gateway translates session messages into book operations and book results
// into execution reports for every session involved.
type Gateway struct {
	log    *logging.Logger
	cfg    Config
	symbol string
	engine Engine
	sink   ReportSink

	// mu is held across the book call, the state updates and the emit, so
	// reports leave the gateway in the order the book produced them.
	mu sync.Mutex
	// live holds every order that can still trade or be cancelled.
	live map[uint64]*orderState
	// done keeps the last OrderCacheSize terminal orders for lookups.
	done *lru.Cache[uint64, *orderState]

	sessions *atomic.Int64
	now      func() time.Time
}

// New creates a gateway routing orders for symbol to engine.
func New(log *logging.Logger, cfg Config, symbol string, engine Engine, sink ReportSink) (*Gateway, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	done, err := lru.New[uint64, *orderState](cfg.OrderCacheSize)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		log:      log,
		cfg:      cfg,
		symbol:   symbol,
		engine:   engine,
		sink:     sink,
		live:     map[uint64]*orderState{},
		done:     done,
		sessions: atomic.NewInt64(0),
		now:      time.Now,
	}, nil
}

// ReloadConf updates the internal configuration of the gateway.
func (g *Gateway) ReloadConf(cfg Config) {
	g.log.Info("reloading configuration")
	if g.log.GetLevel() != cfg.Level.Get() {
		g.log.Info("updating log level",
			logging.String("old", g.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		g.log.SetLevel(cfg.Level.Get())
	}
	g.mu.Lock()
	if cfg.OrderCacheSize != g.cfg.OrderCacheSize && cfg.OrderCacheSize > 0 {
		g.done.Resize(cfg.OrderCacheSize)
	}
	g.cfg = cfg
	g.mu.Unlock()
}

func (g *Gateway) Symbol() string {
	return g.symbol
}

func (g *Gateway) OnLogon(sessionID string) {
	n := g.sessions.Inc()
	g.log.Info("session logged on", logging.String("session", sessionID), logging.Int64("sessions", n))
}

func (g *Gateway) OnLogout(sessionID string) {
	n := g.sessions.Dec()
	g.log.Info("session logged out", logging.String("session", sessionID), logging.Int64("sessions", n))
}

// Sessions returns the number of sessions currently logged on.
func (g *Gateway) Sessions() int64 {
	return g.sessions.Load()
}

// HandleNewOrder routes a NewOrderSingle. The returned reports start with
// the acknowledgement of the new order (or its reject), followed by one
// report per trade for each side involved, and a final cancel when the
// remainder of the order did not rest.
func (g *Gateway) HandleNewOrder(sessionID string, msg NewOrderSingle) []ExecutionReport {
	order, err := g.translate(msg)
	if err != nil {
		return g.emit(g.reject(sessionID, msg.ClOrdID, 0, msg.Side, err))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.live[order.ID]; ok {
		return g.emit(g.reject(sessionID, msg.ClOrdID, order.ID, msg.Side, ErrDuplicateOrderID))
	}

	conf, err := g.engine.SubmitOrder(order)
	if err == nil && conf.Order.Status == types.OrderStatusIgnored {
		err = ErrDuplicateOrderID
	}
	if err != nil {
		g.log.Debug("order rejected by the book", logging.OrderID(order.ID), logging.Error(err))
		return g.emit(g.reject(sessionID, msg.ClOrdID, order.ID, msg.Side, err))
	}

	state := &orderState{
		id:        order.ID,
		clOrdID:   msg.ClOrdID,
		sessionID: sessionID,
		side:      order.Side,
		typ:       order.Type,
		price:     order.Price,
		size:      order.Size,
		status:    OrdStatusNew,
	}
	g.live[order.ID] = state

	reports := make([]ExecutionReport, 0, 2+2*len(conf.Trades))
	reports = append(reports, g.report(state, ExecTypeNew))
	for _, t := range conf.Trades {
		reports = append(reports, g.fill(state, t))
		passive := g.passiveState(t.PassiveOrderID(), conf)
		reports = append(reports, g.fill(passive, t))
	}
	switch conf.Order.Status {
	case types.OrderStatusCancelled, types.OrderStatusDiscarded:
		state.status = OrdStatusCanceled
		r := g.report(state, ExecTypeCanceled)
		if conf.Order.Type == types.OrderTypeMarket {
			r.Text = "no liquidity for remaining quantity"
		} else {
			r.Text = "fill and kill remainder cancelled"
		}
		reports = append(reports, r)
	}
	if state.status.IsTerminal() {
		g.retire(state)
	}

	return g.emit(reports...)
}

// HandleCancel cancels a resting order on behalf of the session that owns it.
func (g *Gateway) HandleCancel(sessionID string, msg OrderCancelRequest) []ExecutionReport {
	id, err := parseOrderID(msg.OrigClOrdID)
	if err != nil {
		return g.emit(g.reject(sessionID, msg.OrigClOrdID, 0, "", err))
	}
	if msg.Symbol != g.symbol {
		return g.emit(g.reject(sessionID, msg.OrigClOrdID, id, "", ErrUnknownSymbol))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	state, known := g.live[id]
	if known && state.sessionID != sessionID {
		return g.emit(g.reject(sessionID, msg.OrigClOrdID, id, "", ErrNotOrderOwner))
	}

	cancel, ok := g.engine.CancelOrder(id)
	if !ok {
		return g.emit(g.reject(sessionID, msg.OrigClOrdID, id, "", ErrUnknownOrder))
	}

	if !known {
		state = &orderState{
			id:        id,
			clOrdID:   msg.OrigClOrdID,
			sessionID: sessionID,
			side:      cancel.Order.Side,
			typ:       cancel.Order.Type,
			price:     cancel.Order.Price,
			size:      cancel.Order.Size,
			cumQty:    cancel.Order.Filled(),
		}
	}
	state.status = OrdStatusCanceled
	g.retire(state)

	return g.emit(g.report(state, ExecTypeCanceled))
}

// Book returns the aggregated levels of the book.
func (g *Gateway) Book() types.AggregatedBook {
	return g.engine.GetAggregatedBook()
}

// Order returns what the gateway knows about a live or recently finished order.
func (g *Gateway) Order(orderID uint64) (OrderView, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if state, ok := g.live[orderID]; ok {
		return state.view(), true
	}
	if state, ok := g.done.Peek(orderID); ok {
		return state.view(), true
	}
	return OrderView{}, false
}

// LiveOrders returns the number of orders that can still trade.
func (g *Gateway) LiveOrders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// passiveState returns the state of a resting order. Without one the order
// was placed on the book directly, it is rebuilt from the book summary as it
// was before this confirmation's trades.
func (g *Gateway) passiveState(id uint64, conf *types.OrderConfirmation) *orderState {
	if state, ok := g.live[id]; ok {
		return state
	}
	state := &orderState{id: id, status: OrdStatusNew}
	for _, o := range conf.PassiveOrdersAffected {
		if o.ID != id {
			continue
		}
		var traded uint64
		for _, t := range conf.Trades {
			if t.PassiveOrderID() == id {
				traded += t.Size()
			}
		}
		state.side, state.typ, state.price, state.size = o.Side, o.Type, o.Price, o.Size
		state.cumQty = o.Filled() - traded
		break
	}
	g.live[id] = state
	return state
}

// retire moves a terminal order out of the live set, caller holds g.mu.
func (g *Gateway) retire(state *orderState) {
	delete(g.live, state.id)
	g.done.Add(state.id, state)
}

// fill accounts a trade on one side, caller holds g.mu.
func (g *Gateway) fill(state *orderState, t types.Trade) ExecutionReport {
	state.cumQty += t.Size()
	if state.cumQty >= state.size {
		state.status = OrdStatusFilled
	} else {
		state.status = OrdStatusPartiallyFilled
	}
	r := g.report(state, ExecTypeTrade)
	r.LastQty = t.Size()
	r.LastPx = t.Price()
	r.TradeSeq = t.Seq
	if state.status.IsTerminal() && state.id != t.AggressiveOrderID() {
		g.retire(state)
	}
	return r
}

func (g *Gateway) report(state *orderState, execType ExecType) ExecutionReport {
	return ExecutionReport{
		ExecID:       uuid.NewString(),
		SessionID:    state.sessionID,
		OrderID:      state.id,
		ClOrdID:      state.clOrdID,
		Symbol:       g.symbol,
		Side:         state.side.String(),
		ExecType:     execType,
		OrdStatus:    state.status,
		Price:        state.price,
		OrderQty:     state.size,
		LeavesQty:    state.leaves(),
		CumQty:       state.cumQty,
		TransactTime: g.now(),
	}
}

func (g *Gateway) reject(sessionID, clOrdID string, orderID uint64, side string, err error) ExecutionReport {
	metrics.RejectCounterInc(rejectReason(err))
	g.log.Debug("message rejected",
		logging.String("session", sessionID),
		logging.String("cl-ord-id", clOrdID),
		logging.Error(err))
	return ExecutionReport{
		ExecID:       uuid.NewString(),
		SessionID:    sessionID,
		OrderID:      orderID,
		ClOrdID:      clOrdID,
		Symbol:       g.symbol,
		Side:         side,
		ExecType:     ExecTypeRejected,
		OrdStatus:    OrdStatusRejected,
		Text:         err.Error(),
		TransactTime: g.now(),
	}
}

func (g *Gateway) emit(reports ...ExecutionReport) []ExecutionReport {
	for _, r := range reports {
		metrics.ExecutionReportCounterInc(string(r.ExecType))
	}
	if g.sink != nil {
		g.sink.Send(reports...)
	}
	return reports
}
