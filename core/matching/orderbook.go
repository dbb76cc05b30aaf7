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

package matching

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"
)

// OrderBook is a price-time priority limit order book for a single market.
//
// Locking: every OrderBook carries one sync.RWMutex. SubmitOrder, CancelOrder
// and ReloadConf hold the write lock for the whole operation, so no two
// mutations ever interleave and the order index always agrees with the
// levels. GetAggregatedBook and the other read methods hold the read lock and
// observe the book between two mutations. Nothing inside the critical section
// blocks on I/O.
type OrderBook struct {
	Config

	mu       sync.RWMutex
	log      *logging.Logger
	marketID string
	buy      *OrderBookSide
	sell     *OrderBookSide

	ordersByID map[uint64]*orderEntry
	seq        uint64
	tradeSeq   uint64
}

// NewOrderBook create an order book with a given name.
func NewOrderBook(log *logging.Logger, config Config, marketID string) *OrderBook {
	// setup logger
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &OrderBook{
		log:        log,
		Config:     config,
		marketID:   marketID,
		buy:        newOrderBookSide(log, types.SideBuy),
		sell:       newOrderBookSide(log, types.SideSell),
		ordersByID: map[uint64]*orderEntry{},
	}
}

// ReloadConf is used in order to reload the internal configuration of
// the OrderBook.
func (b *OrderBook) ReloadConf(cfg Config) {
	b.log.Info("reloading configuration")
	if b.log.GetLevel() != cfg.Level.Get() {
		b.log.Info("updating log level",
			logging.String("old", b.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		b.log.SetLevel(cfg.Level.Get())
	}

	b.mu.Lock()
	b.LogPriceLevelsDebug = cfg.LogPriceLevelsDebug
	b.LogRemovedOrdersDebug = cfg.LogRemovedOrdersDebug
	b.mu.Unlock()
}

func (b *OrderBook) MarketID() string {
	return b.marketID
}

// SubmitOrder admits an order and matches it against the book.
//
// A submission whose id is already resting is ignored. A FillAndKill order
// that cannot cross is never admitted, one that can is matched like a limit
// order and whatever remains is cancelled. A market order trades against the
// opposite side and its remainder is discarded. Only structurally invalid
// orders return an error. Validation runs before the duplicate check, so a
// malformed order reusing a resting id is rejected rather than ignored.
func (b *OrderBook) SubmitOrder(order types.Order) (*types.OrderConfirmation, error) {
	if err := b.validateOrder(&order); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer metrics.StartMatchingTimer(b.marketID, "SubmitOrder")()

	if _, ok := b.ordersByID[order.ID]; ok {
		b.log.Debug("order id already on the book, submission ignored", logging.OrderID(order.ID))
		order.Status = types.OrderStatusIgnored
		return &types.OrderConfirmation{Order: order.Summary()}, nil
	}
	metrics.OrderCounterInc(b.marketID, order.Type.String())

	var conf *types.OrderConfirmation
	switch order.Type {
	case types.OrderTypeMarket:
		conf = b.submitMarket(order)
	case types.OrderTypeFillAndKill:
		if !b.canMatch(&order) {
			order.Status = types.OrderStatusCancelled
			conf = &types.OrderConfirmation{Order: order.Summary()}
			break
		}
		conf = b.submitLimit(order)
	default:
		conf = b.submitLimit(order)
	}

	metrics.TradesAdd(b.marketID, len(conf.Trades), conf.TradedVolume())
	metrics.RestingOrdersGaugeSet(b.marketID, len(b.ordersByID))
	if b.LogPriceLevelsDebug {
		b.printState("after submit order")
	}
	return conf, nil
}

func (b *OrderBook) submitLimit(order types.Order) *types.OrderConfirmation {
	order.Status = types.OrderStatusActive
	e := b.insert(order)
	trades, passive := b.match(e.order.Side, e.order.ID)

	if e.order.Type == types.OrderTypeFillAndKill && !e.order.IsFilled() {
		b.remove(e)
		e.order.Status = types.OrderStatusCancelled
	}
	return &types.OrderConfirmation{
		Order:                 e.order.Summary(),
		Trades:                trades,
		PassiveOrdersAffected: passive,
	}
}

// canMatch tells whether the order would trade on arrival.
func (b *OrderBook) canMatch(order *types.Order) bool {
	opposite := b.getOppositeSide(order.Side)
	if order.Type == types.OrderTypeMarket {
		return opposite.best() != nil
	}
	return opposite.crosses(order.Price)
}

func (b *OrderBook) insert(order types.Order) *orderEntry {
	b.seq++
	e := &orderEntry{
		order: order,
		loc: locator{
			side:  order.Side,
			price: order.Price,
			seq:   b.seq,
		},
	}
	b.getSide(order.Side).addOrder(e)
	b.ordersByID[order.ID] = e
	return e
}

// remove takes a resting order out of both its level and the index.
func (b *OrderBook) remove(e *orderEntry) {
	if err := b.getSide(e.loc.side).removeOrder(e); err != nil {
		b.log.Panic("order in the index is missing from its level",
			logging.Order(e.order),
			logging.Uint64("level", e.loc.price),
			logging.Error(err))
	}
	delete(b.ordersByID, e.order.ID)
	if b.LogRemovedOrdersDebug {
		b.log.Debug("order removed from the book", logging.Order(e.order))
	}
}

// match runs until the best bid no longer reaches the best ask. aggressor is
// the side and id of the order whose arrival triggered the run.
func (b *OrderBook) match(aggressor types.Side, aggressorID uint64) ([]types.Trade, []types.OrderSummary) {
	var (
		trades  []types.Trade
		passive []types.OrderSummary
	)
	for {
		bidLevel, askLevel := b.buy.best(), b.sell.best()
		if bidLevel == nil || askLevel == nil || bidLevel.price < askLevel.price {
			break
		}
		bid, ask := bidLevel.head(), askLevel.head()
		qty := min(bid.order.Remaining, ask.order.Remaining)

		b.fillEntry(bidLevel, bid, qty)
		b.fillEntry(askLevel, ask, qty)
		trades = append(trades, b.newTrade(bid.order.ID, ask.order.ID, askLevel.price, qty, aggressor))

		for _, e := range []*orderEntry{bid, ask} {
			if e.order.ID != aggressorID {
				passive = append(passive, e.order.Summary())
			}
			if e.order.IsFilled() {
				b.remove(e)
			}
		}
	}
	return trades, passive
}

// submitMarket walks the opposite side best level first. The order never
// touches the index or the levels.
func (b *OrderBook) submitMarket(order types.Order) *types.OrderConfirmation {
	var (
		trades   []types.Trade
		passive  []types.OrderSummary
		opposite = b.getOppositeSide(order.Side)
	)
	for !order.IsFilled() {
		lvl := opposite.best()
		if lvl == nil {
			break
		}
		resting := lvl.head()
		qty := min(order.Remaining, resting.order.Remaining)

		b.fillEntry(lvl, resting, qty)
		b.fill(&order, qty)

		if order.Side == types.SideBuy {
			trades = append(trades, b.newTrade(order.ID, resting.order.ID, lvl.price, qty, order.Side))
		} else {
			trades = append(trades, b.newTrade(resting.order.ID, order.ID, lvl.price, qty, order.Side))
		}
		passive = append(passive, resting.order.Summary())
		if resting.order.IsFilled() {
			b.remove(resting)
		}
	}

	if !order.IsFilled() {
		order.Status = types.OrderStatusDiscarded
	}
	return &types.OrderConfirmation{
		Order:                 order.Summary(),
		Trades:                trades,
		PassiveOrdersAffected: passive,
	}
}

func (b *OrderBook) fillEntry(lvl *PriceLevel, e *orderEntry, qty uint64) {
	b.fill(&e.order, qty)
	lvl.reduceVolume(qty)
}

// fill panics when qty exceeds the remaining size, the book is corrupted at
// that point and must not produce further trades.
func (b *OrderBook) fill(o *types.Order, qty uint64) {
	if err := o.Fill(qty); err != nil {
		b.log.Panic("overfill in matching loop",
			logging.Order(*o),
			logging.Uint64("fill", qty),
			logging.Error(err))
	}
}

func (b *OrderBook) newTrade(bidID, askID, price, qty uint64, aggressor types.Side) types.Trade {
	b.tradeSeq++
	return types.Trade{
		Seq:       b.tradeSeq,
		Bid:       types.TradeInfo{OrderID: bidID, Price: price, Quantity: qty},
		Ask:       types.TradeInfo{OrderID: askID, Price: price, Quantity: qty},
		Aggressor: aggressor,
	}
}

// CancelOrder removes a resting order. Unknown ids are not an error, the
// second return value reports whether anything was removed.
func (b *OrderBook) CancelOrder(orderID uint64) (*types.OrderCancellation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer metrics.StartMatchingTimer(b.marketID, "CancelOrder")()

	e, ok := b.ordersByID[orderID]
	if !ok {
		b.log.Debug("cancel for unknown order ignored", logging.OrderID(orderID))
		return nil, false
	}
	b.remove(e)
	e.order.Status = types.OrderStatusCancelled

	metrics.CancelCounterInc(b.marketID)
	metrics.RestingOrdersGaugeSet(b.marketID, len(b.ordersByID))
	return &types.OrderCancellation{Order: e.order.Summary()}, true
}

// GetAggregatedBook returns both sides' levels, best price first.
func (b *OrderBook) GetAggregatedBook() types.AggregatedBook {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return types.AggregatedBook{
		Bids: b.buy.aggregated(),
		Asks: b.sell.aggregated(),
	}
}

// BestBidPriceAndVolume : Return the best bid and volume for the buy side of the book.
func (b *OrderBook) BestBidPriceAndVolume() (uint64, uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buy.BestPriceAndVolume()
}

// BestOfferPriceAndVolume : Return the best bid and volume for the sell side of the book.
func (b *OrderBook) BestOfferPriceAndVolume() (uint64, uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sell.BestPriceAndVolume()
}

// GetOrderByID returns the current state of a resting order.
func (b *OrderBook) GetOrderByID(orderID uint64) (types.OrderSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.ordersByID[orderID]
	if !ok {
		return types.OrderSummary{}, types.ErrOrderNotFound
	}
	return e.order.Summary(), nil
}

// GetTotalNumberOfOrders is true for resting orders only.
func (b *OrderBook) GetTotalNumberOfOrders() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buy.getOrderCount() + b.sell.getOrderCount()
}

// GetTotalVolume returns the total resting quantity of both sides.
func (b *OrderBook) GetTotalVolume() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.buy.getTotalVolume() + b.sell.getTotalVolume()
}

// Hash fingerprints the aggregated state of the book.
func (b *OrderBook) Hash() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h := sha256.New()
	h.Write([]byte(b.marketID))
	h.Write(b.buy.hashBytes())
	h.Write(b.sell.hashBytes())
	return h.Sum(nil)
}

func (b *OrderBook) getSide(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.buy
	}
	return b.sell
}

func (b *OrderBook) getOppositeSide(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.sell
	}
	return b.buy
}

// printState logs the aggregated levels, caller holds the lock.
func (b *OrderBook) printState(msg string) {
	b.log.Debug(fmt.Sprintf("%s: order book state", msg),
		logging.String("market", b.marketID),
		logging.Int("orders", len(b.ordersByID)))
	for _, side := range []*OrderBookSide{b.sell, b.buy} {
		for _, lvl := range side.getLevels() {
			b.log.Debug("price level",
				logging.String("side", side.side.String()),
				logging.PriceLevel(lvl.info()))
			lvl.each(func(e *orderEntry) bool {
				b.log.Debug("resting order", logging.Order(e.order))
				return true
			})
		}
	}
}
