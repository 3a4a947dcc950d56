package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"skoll/internal/book"
	"skoll/internal/common"
	"skoll/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn net.Conn
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Server fronts one book over TCP. All book mutations funnel through the
// single sessionHandler goroutine: the engine is single-threaded by
// contract, and that goroutine is its serialization point.
type Server struct {
	address            string
	port               int
	book               *book.Book
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan ClientMessage

	// Owner name -> session address, learned from order flow. Touched only
	// by the sessionHandler goroutine.
	owners map[string]string
}

func New(address string, port int, b *book.Book) *Server {
	return &Server{
		address:        address,
		port:           port,
		book:           b,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		clientMessages: make(chan ClientMessage, 1),
		owners:         make(map[string]string),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	// Close the listener once the context ends so a blocked Accept returns
	// and Run can exit promptly.
	t.Go(func() error {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		return nil
	})

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("book", s.book.Name()).Msg("server running")

	// Start accepting connections.
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		log.Info().
			Str("address", conn.RemoteAddr().String()).
			Msg("new client added")
		// Add the client to client sessions we are tracking.
		// We expect to potentially maintain a long TCP session.
		s.addClientSession(conn)

		// Pass over the connection to be read from.
		s.pool.AddTask(conn)
	}
}

// ReportTrade implements book.Reporter: both parties to the fill get an
// execution report addressed to their session, each carrying its own settled
// price and the counterparty's.
func (s *Server) ReportTrade(trade common.Trade) error {
	takerReport := Report{
		TypeOf:       ExecutionReport,
		Side:         trade.TakerSide,
		Timestamp:    uint64(trade.Timestamp.Unix()),
		Quantity:     trade.Quantity,
		Price:        trade.TakerPrice.InexactFloat64(),
		CounterPrice: trade.MakerPrice.InexactFloat64(),
		Ticker:       trade.Ticker,
		TradeID:      trade.ID,
		Counterparty: trade.Maker,
	}
	makerReport := Report{
		TypeOf:       ExecutionReport,
		Side:         trade.TakerSide.Opposite(),
		Timestamp:    uint64(trade.Timestamp.Unix()),
		Quantity:     trade.Quantity,
		Price:        trade.MakerPrice.InexactFloat64(),
		CounterPrice: trade.TakerPrice.InexactFloat64(),
		Ticker:       trade.Ticker,
		TradeID:      trade.ID,
		Counterparty: trade.Taker,
	}

	if err := s.sendToOwner(trade.Taker, takerReport.Serialize()); err != nil {
		return err
	}
	return s.sendToOwner(trade.Maker, makerReport.Serialize())
}

// sessionHandler reads off incoming messages from clients and applies them
// to the book. Messages are received from the pool of workers; this is the
// only goroutine that touches the book.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			s.handleMessage(message)
		}
	}
}

func (s *Server) handleMessage(cm ClientMessage) {
	switch m := cm.message.(type) {
	case *NewOrderMessage:
		order, err := m.Order()
		if err != nil {
			s.sendError(cm.clientAddress, err)
			return
		}
		// Remember which session speaks for this owner so execution
		// reports can find them later.
		s.owners[m.Owner] = cm.clientAddress

		placement, err := s.book.Add(order)
		if err != nil {
			log.Info().
				Str("owner", m.Owner).
				Err(err).
				Msg("order rejected")
			s.sendError(cm.clientAddress, err)
			return
		}

		log.Info().
			Str("owner", m.Owner).
			Stringer("outcome", placement.Outcome).
			Uint64("order_id", uint64(placement.OrderID)).
			Msg("order admitted")
		s.sendAck(cm.clientAddress, order, placement)

	case *CancelOrderMessage:
		s.book.Cancel(book.OrderID(m.OrderID))
		log.Info().
			Uint64("order_id", m.OrderID).
			Msg("order cancelled")
		s.sendCancelAck(cm.clientAddress, m.OrderID)

	case BaseMessage:
		// Heartbeats keep the session warm, nothing to do.

	default:
		log.Error().
			Str("address", cm.clientAddress).
			Msg("unhandled message type")
	}
}

func (s *Server) sendAck(address string, order *book.Order, placement book.Placement) {
	report := Report{
		TypeOf:    OrderAck,
		Side:      order.Side,
		Outcome:   uint8(placement.Outcome),
		OrderID:   uint64(placement.OrderID),
		Timestamp: uint64(time.Now().Unix()),
		Quantity:  order.Quantity,
		Price:     order.Price.InexactFloat64(),
		Ticker:    order.Ticker,
	}
	if err := s.send(address, report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send ack")
	}
}

func (s *Server) sendCancelAck(address string, orderID uint64) {
	// Cancellation always succeeds, so the ack only confirms receipt.
	report := Report{
		TypeOf:    CancelAck,
		OrderID:   orderID,
		Timestamp: uint64(time.Now().Unix()),
	}
	if err := s.send(address, report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send cancel ack")
	}
}

func (s *Server) sendError(address string, cause error) {
	report := Report{
		TypeOf:    ErrorReport,
		Timestamp: uint64(time.Now().Unix()),
		Err:       cause.Error(),
	}
	if err := s.send(address, report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send error report")
	}
}

func (s *Server) sendToOwner(owner string, frame []byte) error {
	address, ok := s.owners[owner]
	if !ok {
		// Owner seeded out of band (e.g. at startup) with no live session.
		return nil
	}
	return s.send(address, frame)
}

func (s *Server) send(address string, frame []byte) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[address]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(frame); err != nil {
		delete(s.clientSessions, address)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// handleConnection is a short-lived worker method which reads the next message off the
// connection, parses and passes it forward to sessionHandler to handle it. If the connection
// dies, the client session is cleaned up. This method does not lock any client session
// directly and gives up early if the connection is terminated. Therefore this method is
// thread safe on map accesses.
// Note, any error returned from here is fatal.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	address := conn.RemoteAddr().String()

	// Set max read timeout.
	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", address).
			Err(err).
			Msg("failed setting deadline for connection")
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				// Quiet session; requeue and let another worker poll it.
				s.pool.AddTask(conn)
				return nil
			}
			// If a read from a client fails, it is likely that the client
			// has exited. Clean up the client session.
			log.Info().
				Err(err).
				Str("address", address).
				Msg("dropping client connection")
			s.deleteClientSession(address)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", address).
				Msg("error parsing message")
			s.deleteClientSession(address)
			return nil
		}

		// Pass over to the message handling buffer and exit this worker.
		s.clientMessages <- ClientMessage{
			message:       message,
			clientAddress: address,
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.clientSessions[conn.RemoteAddr().String()] = ClientSession{
		conn: conn,
	}
}

// deleteClientSession is an atomic map remove
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if client, ok := s.clientSessions[address]; ok {
		_ = client.conn.Close()
	}
	delete(s.clientSessions, address)
}
