package net

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"skoll/internal/book"
	"skoll/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

type ReportMessageType int

const (
	OrderAck ReportMessageType = iota
	ExecutionReport
	ErrorReport
	CancelAck
)

type Message interface {
	GetType() MessageType
}

// Message format constants. Payload lengths exclude the 2-byte base header.
const (
	BaseMessageHeaderLen  = 2
	NewOrderPayloadLen    = 1 + 4 + 8 + 8 + 1 // side, ticker, price, qty, owner len
	CancelOrderPayloadLen = 8                 // order id
	tickerLen             = 4
	tradeIDLen            = 36 // uuid string form
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	Side     common.Side // 1 byte
	Ticker   string      // 4 bytes
	Price    float64     // 8 bytes
	Quantity uint64      // 8 bytes
	OwnerLen uint8       // 1 byte
	Owner    string      // n bytes
}

// Order validates and builds the book order this message describes. The wire
// carries the price as float64 bits; it becomes an exact decimal here at the
// boundary and stays decimal everywhere past it.
func (m *NewOrderMessage) Order() (*book.Order, error) {
	return book.NewOrder(m.Owner, m.Side, m.Ticker, decimal.NewFromFloat(m.Price), m.Quantity)
}

func parseNewOrder(msg []byte) (*NewOrderMessage, error) {
	if len(msg) < NewOrderPayloadLen {
		return nil, ErrMessageTooShort
	}

	m := &NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.Side = common.Side(msg[0])
	m.Ticker = trimFixed(msg[1:5])
	m.Price = math.Float64frombits(binary.BigEndian.Uint64(msg[5:13]))
	m.Quantity = binary.BigEndian.Uint64(msg[13:21])
	m.OwnerLen = msg[21]

	if len(msg) < NewOrderPayloadLen+int(m.OwnerLen) {
		return nil, ErrMessageTooShort
	}
	m.Owner = string(msg[22 : 22+m.OwnerLen])

	return m, nil
}

// Serialize packs the message for the wire, base header included.
func (m *NewOrderMessage) Serialize() []byte {
	buf := make([]byte, BaseMessageHeaderLen+NewOrderPayloadLen+len(m.Owner))
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf[2] = byte(m.Side)
	copy(buf[3:7], m.Ticker)
	binary.BigEndian.PutUint64(buf[7:15], math.Float64bits(m.Price))
	binary.BigEndian.PutUint64(buf[15:23], m.Quantity)
	buf[23] = uint8(len(m.Owner))
	copy(buf[24:], m.Owner)
	return buf
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID uint64 // 8 bytes
}

func parseCancelOrder(msg []byte) (*CancelOrderMessage, error) {
	if len(msg) < CancelOrderPayloadLen {
		return nil, ErrMessageTooShort
	}
	return &CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderID:     binary.BigEndian.Uint64(msg[0:8]),
	}, nil
}

func (m *CancelOrderMessage) Serialize() []byte {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	return buf
}

// Report is the single outbound frame: order acks, per-fill execution
// reports, and errors all share it.
type Report struct {
	TypeOf          ReportMessageType // 1 byte
	Side            common.Side       // 1 byte
	Outcome         uint8             // 1 byte (acks: book admission outcome)
	OrderID         uint64            // 8 bytes (acks: assigned id, 0 if filled)
	Timestamp       uint64            // 8 bytes
	Quantity        uint64            // 8 bytes
	Price           float64           // 8 bytes (this party's settled price)
	CounterPrice    float64           // 8 bytes (counterparty's settled price)
	CounterpartyLen uint16            // 2 bytes
	ErrStrLen       uint32            // 4 bytes
	Ticker          string            // 4 bytes
	TradeID         string            // 36 bytes
	Err             string            // n bytes
	Counterparty    string            // n bytes
}

const reportFixedHeaderLen = 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8 + 2 + 4 + tickerLen + tradeIDLen

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() []byte {
	r.CounterpartyLen = uint16(len(r.Counterparty))
	r.ErrStrLen = uint32(len(r.Err))

	buf := make([]byte, reportFixedHeaderLen+len(r.Err)+len(r.Counterparty))
	buf[0] = byte(r.TypeOf)
	buf[1] = byte(r.Side)
	buf[2] = r.Outcome
	binary.BigEndian.PutUint64(buf[3:11], r.OrderID)
	binary.BigEndian.PutUint64(buf[11:19], r.Timestamp)
	binary.BigEndian.PutUint64(buf[19:27], r.Quantity)
	binary.BigEndian.PutUint64(buf[27:35], math.Float64bits(r.Price))
	binary.BigEndian.PutUint64(buf[35:43], math.Float64bits(r.CounterPrice))
	binary.BigEndian.PutUint16(buf[43:45], r.CounterpartyLen)
	binary.BigEndian.PutUint32(buf[45:49], r.ErrStrLen)

	// Fixed-width string fields; copy never overruns on short strings.
	copy(buf[49:49+tickerLen], r.Ticker)
	copy(buf[49+tickerLen:reportFixedHeaderLen], r.TradeID)

	offset := reportFixedHeaderLen
	copy(buf[offset:], r.Err)
	offset += int(r.ErrStrLen)
	copy(buf[offset:], r.Counterparty)

	return buf
}

// ParseReport decodes a report frame; clients use this to read acks and
// execution reports off the session.
func ParseReport(msg []byte) (Report, error) {
	if len(msg) < reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}

	r := Report{
		TypeOf:          ReportMessageType(msg[0]),
		Side:            common.Side(msg[1]),
		Outcome:         msg[2],
		OrderID:         binary.BigEndian.Uint64(msg[3:11]),
		Timestamp:       binary.BigEndian.Uint64(msg[11:19]),
		Quantity:        binary.BigEndian.Uint64(msg[19:27]),
		Price:           math.Float64frombits(binary.BigEndian.Uint64(msg[27:35])),
		CounterPrice:    math.Float64frombits(binary.BigEndian.Uint64(msg[35:43])),
		CounterpartyLen: binary.BigEndian.Uint16(msg[43:45]),
		ErrStrLen:       binary.BigEndian.Uint32(msg[45:49]),
	}
	r.Ticker = trimFixed(msg[49 : 49+tickerLen])
	r.TradeID = trimFixed(msg[49+tickerLen : reportFixedHeaderLen])

	expected := reportFixedHeaderLen + int(r.ErrStrLen) + int(r.CounterpartyLen)
	if len(msg) < expected {
		return Report{}, ErrMessageTooShort
	}
	offset := reportFixedHeaderLen
	r.Err = string(msg[offset : offset+int(r.ErrStrLen)])
	offset += int(r.ErrStrLen)
	r.Counterparty = string(msg[offset : offset+int(r.CounterpartyLen)])

	return r, nil
}

// trimFixed strips the zero padding off a fixed-width string field.
func trimFixed(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
