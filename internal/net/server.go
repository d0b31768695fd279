package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"orderengine/internal/common"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

// Engine is the subset of engine.OrderBook the server drives. It is an
// interface so the server can be tested against a fake without dragging in
// the matching loop, and so this package never needs to know the core is
// single-threaded under the hood — it just happens to be the sole caller
// that relies on that (see sessionHandler).
type Engine interface {
	Add(order common.Order) ([]common.Trade, error)
	Cancel(id common.OrderId)
	Modify(mod common.OrderModify) ([]common.Trade, error)
	DepthSnapshot() (bids, asks []common.LevelInfo)
	Size() int
}

// clientMessage links a decoded message to the client address it arrived
// from, so replies can be routed back.
type clientMessage struct {
	clientAddress string
	message       Message
}

// Server is the TCP driver in front of a single-symbol Engine. It owns no
// matching logic: handleMessage is the entire translation layer between
// wire bytes and engine calls.
type Server struct {
	address string
	port    int
	engine  Engine
	metrics *metrics

	pool   WorkerPool
	cancel context.CancelFunc

	clientSessionsLock sync.Mutex
	clientSessions     map[string]net.Conn
	orderOwners        map[common.OrderId]string

	clientMessages chan clientMessage
}

// New constructs a Server bound to address:port, driving engine.
func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		metrics:        newMetrics(),
		pool:           NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]net.Conn),
		orderOwners:    make(map[common.OrderId]string),
		clientMessages: make(chan clientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections and drives the matching engine until ctx is
// cancelled. It blocks.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	go serveMetrics(ctx, fmt.Sprintf("%s:%d", s.address, s.port+1))

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client added")
			s.addClientSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// sessionHandler is the sole caller of s.engine's methods. Every
// client-originated request, regardless of which worker parsed it, is
// applied here one at a time, in the order it was enqueued — this is what
// lets a synchronous, single-threaded engine sit behind a
// multi-connection, multi-worker server.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error handling message")
				s.reportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch m := msg.message.(type) {
	case NewOrderMessage:
		order := common.NewOrder(common.OrderId(uuid.New().String()), m.Side, m.OrderType, m.Price, m.Quantity)
		order.Owner = m.Username
		log.Debug().Msg(order.String())

		s.setOrderOwner(order.OrderId, msg.clientAddress)
		trades, err := s.engine.Add(order)
		if err != nil {
			s.metrics.ordersRejected.Inc()
			return err
		}
		s.metrics.ordersPlaced.Inc()
		s.reportTrades(trades)

	case CancelOrderMessage:
		s.engine.Cancel(m.OrderId)
		s.metrics.ordersCanceled.Inc()

	case ModifyOrderMessage:
		trades, err := s.engine.Modify(common.OrderModify{
			OrderId:  m.OrderId,
			Side:     m.Side,
			Price:    m.Price,
			Quantity: m.Quantity,
		})
		if err != nil {
			s.metrics.ordersRejected.Inc()
			return err
		}
		s.reportTrades(trades)

	case BaseMessage:
		if m.GetType() == LogBook {
			s.logBook()
		}

	default:
		return ErrInvalidMessageType
	}
	return nil
}

func (s *Server) logBook() {
	bids, asks := s.engine.DepthSnapshot()
	log.Info().Int("size", s.engine.Size()).Int("bidLevels", len(bids)).Int("askLevels", len(asks)).Msg("book snapshot")
	for _, lvl := range bids {
		log.Info().Str("side", "BUY").Int64("price", int64(lvl.Price)).Uint64("quantity", uint64(lvl.Quantity)).Msg("level")
	}
	for _, lvl := range asks {
		log.Info().Str("side", "SELL").Int64("price", int64(lvl.Price)).Uint64("quantity", uint64(lvl.Quantity)).Msg("level")
	}
}

// reportTrades sends each side of each trade to whichever client placed
// that side's order, if that client is still connected.
func (s *Server) reportTrades(trades []common.Trade) {
	for _, trade := range trades {
		s.metrics.tradesExecuted.Inc()
		log.Info().Msg(trade.String())
		bidReport, askReport := executionReports(trade)
		s.sendTo(s.ownerOf(trade.BidFill.OrderId), bidReport)
		s.sendTo(s.ownerOf(trade.AskFill.OrderId), askReport)
	}
}

func (s *Server) reportError(clientAddress string, err error) {
	s.sendTo(clientAddress, errorReport(err))
}

func (s *Server) sendTo(clientAddress string, payload []byte) {
	if clientAddress == "" {
		return
	}
	s.clientSessionsLock.Lock()
	conn, ok := s.clientSessions[clientAddress]
	s.clientSessionsLock.Unlock()
	if !ok {
		return
	}
	if _, err := conn.Write(payload); err != nil {
		log.Error().Err(err).Str("clientAddress", clientAddress).Msg("unable to send report")
		s.deleteClientSession(clientAddress)
	}
}

// handleConnection is a short-lived worker task: it reads exactly one
// message off conn, decodes it, and hands it to the session handler. It
// never calls into the engine directly. Any error returned here is fatal
// to the tomb, so connection-level failures are swallowed and logged
// instead of returned.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("worker pool: unexpected task type %T", task)
	}

	keepOpen := false
	defer func() {
		if keepOpen {
			return
		}
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error closing connection")
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting deadline")
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("connection closed")
		s.deleteClientSession(conn.RemoteAddr().String())
		return nil
	}

	message, err := parseMessage(buffer[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
		s.deleteClientSession(conn.RemoteAddr().String())
		return nil
	}

	s.clientMessages <- clientMessage{
		clientAddress: conn.RemoteAddr().String(),
		message:       message,
	}

	// Keep serving this connection's next message.
	keepOpen = true
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	s.clientSessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	delete(s.clientSessions, address)
}

func (s *Server) setOrderOwner(id common.OrderId, clientAddress string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	s.orderOwners[id] = clientAddress
}

func (s *Server) ownerOf(id common.OrderId) string {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	return s.orderOwners[id]
}
