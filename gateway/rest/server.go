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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"code.vegaprotocol.io/fixmatch/broker"
	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

const namedLogger = "rest"

const maxBodySize = 1 << 16

var (
	ErrInvalidRequest = newError("invalid request")
	ErrMissingSession = newError("missing session id")
	ErrOrderNotFound  = newError("order not found")
)

// Gateway is the session gateway orders are routed through.
type Gateway interface {
	HandleNewOrder(sessionID string, msg gateway.NewOrderSingle) []gateway.ExecutionReport
	HandleCancel(sessionID string, msg gateway.OrderCancelRequest) []gateway.ExecutionReport
	Order(orderID uint64) (gateway.OrderView, bool)
	Book() types.AggregatedBook
	Symbol() string
	OnLogon(sessionID string)
	OnLogout(sessionID string)
}

// Broker is where the streaming sessions subscribe to their reports.
type Broker interface {
	Subscribe(s broker.Subscriber) (int, error)
	Unsubscribe(k int)
}

// Server exposes the gateway over HTTP, with a websocket stream of
// execution reports per session.
type Server struct {
	*httprouter.Router

	log    *logging.Logger
	cfg    gateway.ServerConfig
	gw     Gateway
	broker Broker

	ctx      context.Context
	cfunc    context.CancelFunc
	upgrader websocket.Upgrader
	s        *http.Server
}

// SubmitResponse is the body of a new order or cancel request.
type SubmitResponse struct {
	Reports []gateway.ExecutionReport `json:"reports"`
}

// BookResponse is the aggregated view of the book.
type BookResponse struct {
	Symbol string            `json:"symbol"`
	Bids   []types.LevelInfo `json:"bids"`
	Asks   []types.LevelInfo `json:"asks"`
}

func New(log *logging.Logger, cfg gateway.ServerConfig, gw Gateway, b Broker) *Server {
	log = log.Named(namedLogger)
	ctx, cfunc := context.WithCancel(context.Background())
	s := &Server{
		Router: httprouter.New(),
		log:    log,
		cfg:    cfg,
		gw:     gw,
		broker: b,
		ctx:    ctx,
		cfunc:  cfunc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}

	s.POST("/api/v1/orders", s.SubmitOrder)
	s.DELETE("/api/v1/orders/:id", s.CancelOrder)
	s.GET("/api/v1/orders/:id", s.GetOrder)
	s.GET("/api/v1/book", s.GetBook)
	s.GET("/api/v1/stream", s.Stream)

	s.s = &http.Server{
		Addr:         net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout.Get(),
		WriteTimeout: cfg.WriteTimeout.Get(),
	}
	return s
}

// Handler returns the router wrapped into the middlewares.
func (s *Server) Handler() http.Handler {
	corz := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	})
	return corz.Handler(MetricCollectionMiddleware(RemoteAddrMiddleware(s.log, s)))
}

func (s *Server) SubmitOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	msg := gateway.NewOrderSingle{}
	if err := unmarshalBody(r, &msg); err != nil {
		writeError(w, newError(err.Error()), http.StatusBadRequest)
		return
	}
	if len(msg.Symbol) == 0 {
		msg.Symbol = s.gw.Symbol()
	}
	s.writeReports(w, s.gw.HandleNewOrder(session, msg))
}

func (s *Server) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	msg := gateway.OrderCancelRequest{
		OrigClOrdID: ps.ByName("id"),
		Symbol:      s.gw.Symbol(),
	}
	s.writeReports(w, s.gw.HandleCancel(session, msg))
}

func (s *Server) GetOrder(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseUint(ps.ByName("id"), 10, 64)
	if err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	view, ok := s.gw.Order(id)
	if !ok {
		writeError(w, ErrOrderNotFound, http.StatusNotFound)
		return
	}
	writeSuccess(w, view, http.StatusOK)
}

func (s *Server) GetBook(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	book := s.gw.Book()
	resp := BookResponse{
		Symbol: s.gw.Symbol(),
		Bids:   book.Bids,
		Asks:   book.Asks,
	}
	if resp.Bids == nil {
		resp.Bids = []types.LevelInfo{}
	}
	if resp.Asks == nil {
		resp.Asks = []types.LevelInfo{}
	}
	writeSuccess(w, resp, http.StatusOK)
}

// Stream upgrades the connection and pushes every execution report of the
// session until either side goes away.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	session := r.Header.Get(s.cfg.SessionHeaderName)
	if len(session) == 0 {
		session = r.URL.Query().Get("session")
	}
	if len(session) == 0 {
		writeError(w, ErrMissingSession, http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied to the client
		s.log.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	sub := newStreamSubscriber(s.ctx, s.log, conn, session, s.cfg)
	if _, err := s.broker.Subscribe(sub); err != nil {
		s.log.Warn("could not subscribe stream", logging.String("session", session), logging.Error(err))
		sub.closeWith(websocket.CloseTryAgainLater, err.Error())
		return
	}
	s.gw.OnLogon(session)
	defer func() {
		s.broker.Unsubscribe(sub.ID())
		s.gw.OnLogout(session)
	}()
	sub.run()
}

// Start serves until Stop is called. It returns straight away once the
// server was stopped, even when Stop ran first.
func (s *Server) Start() error {
	if s.ctx.Err() != nil {
		return nil
	}
	s.log.Info("starting rest server", logging.String("address", s.s.Addr))
	if err := s.s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "rest server failed")
	}
	return nil
}

// Stop closes the streams and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.cfunc()
	s.log.Info("stopping rest server")
	return s.s.Shutdown(ctx)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := r.Header.Get(s.cfg.SessionHeaderName)
	if len(session) == 0 {
		writeError(w, ErrMissingSession, http.StatusBadRequest)
		return "", false
	}
	return session, true
}

func (s *Server) writeReports(w http.ResponseWriter, reports []gateway.ExecutionReport) {
	status := http.StatusOK
	if len(reports) > 0 && reports[0].ExecType == gateway.ExecTypeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeSuccess(w, SubmitResponse{Reports: reports}, status)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(origin) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func unmarshalBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return ErrInvalidRequest
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, e error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(e)
	w.Write(buf)
}

func writeSuccess(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(data)
	w.Write(buf)
}

type HTTPError struct {
	ErrorStr string `json:"error"`
}

func (e HTTPError) Error() string {
	return e.ErrorStr
}

func newError(e string) HTTPError {
	return HTTPError{
		ErrorStr: e,
	}
}
