// Package net implements the TCP wire protocol that drives the matching
// engine from outside: parsing client messages into engine calls and
// serializing engine results back onto the wire. None of this is part of
// the core's correctness surface — it is the external collaborator the
// core's specification explicitly leaves to a higher layer.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"orderengine/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for declared field lengths")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ModifyOrder
	LogBook
)

type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message is the decoded form of anything a client can send.
type Message interface {
	GetType() MessageType
}

// Wire format constants. BaseMessageHeaderLen is the 2-byte MessageType
// every message starts with; the remaining constants are the fixed-size
// portion of each message body, not counting its length-prefixed strings.
const (
	BaseMessageHeaderLen = 2

	// OrderType(2) + Side(1) + Price(8) + Quantity(8) + TickerLen(1) + UsernameLen(1)
	NewOrderFixedLen = 2 + 1 + 8 + 8 + 1 + 1
	// OrderIdLen(1)
	CancelOrderFixedLen = 1
	// OrderIdLen(1) + Side(1) + Price(8) + Quantity(8)
	ModifyOrderFixedLen = 1 + 1 + 8 + 8
)

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case ModifyOrder:
		return parseModifyOrder(body)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage carries everything needed to construct a common.Order,
// except its OrderId: the server assigns that on admission via uuid.New().
type NewOrderMessage struct {
	BaseMessage
	OrderType common.OrderType
	Side      common.Side
	Price     common.Price
	Quantity  common.Quantity
	Ticker    string
	Username  string
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderFixedLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.OrderType = common.OrderType(binary.BigEndian.Uint16(msg[0:2]))
	m.Side = common.Side(msg[2])
	m.Price = common.Price(binary.BigEndian.Uint64(msg[3:11]))
	m.Quantity = common.Quantity(binary.BigEndian.Uint64(msg[11:19]))
	tickerLen := int(msg[19])
	usernameLen := int(msg[20])

	rest := msg[NewOrderFixedLen:]
	if len(rest) < tickerLen+usernameLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Ticker = string(rest[:tickerLen])
	m.Username = string(rest[tickerLen : tickerLen+usernameLen])
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	OrderId common.OrderId
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderFixedLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	idLen := int(msg[0])
	rest := msg[CancelOrderFixedLen:]
	if len(rest) < idLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderId:     common.OrderId(rest[:idLen]),
	}, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	OrderId  common.OrderId
	Side     common.Side
	Price    common.Price
	Quantity common.Quantity
}

func parseModifyOrder(msg []byte) (ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderFixedLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}
	idLen := int(msg[0])
	side := common.Side(msg[1])
	price := common.Price(binary.BigEndian.Uint64(msg[2:10]))
	qty := common.Quantity(binary.BigEndian.Uint64(msg[10:18]))

	rest := msg[ModifyOrderFixedLen:]
	if len(rest) < idLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}
	return ModifyOrderMessage{
		BaseMessage: BaseMessage{TypeOf: ModifyOrder},
		OrderId:     common.OrderId(rest[:idLen]),
		Side:        side,
		Price:       price,
		Quantity:    qty,
	}, nil
}

// Report is the wire form of a message sent back to a client: either one
// side of an executed trade, or an error describing a rejected request.
type Report struct {
	Type                ReportMessageType
	Side                common.Side
	Price               common.Price
	Quantity            common.Quantity
	OrderId             common.OrderId
	CounterpartyOrderId common.OrderId
	Err                 string
}

// reportFixedLen: Type(1) + Side(1) + Price(8) + Quantity(8) + OrderIdLen(1) +
// CounterpartyOrderIdLen(1) + ErrStrLen(4)
const reportFixedLen = 1 + 1 + 8 + 8 + 1 + 1 + 4

// Serialize converts the report to its wire representation.
func (r *Report) Serialize() []byte {
	total := reportFixedLen + len(r.OrderId) + len(r.CounterpartyOrderId) + len(r.Err)
	buf := make([]byte, total)

	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Price))
	binary.BigEndian.PutUint64(buf[10:18], uint64(r.Quantity))
	buf[18] = byte(len(r.OrderId))
	buf[19] = byte(len(r.CounterpartyOrderId))
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(r.Err)))

	offset := reportFixedLen
	offset += copy(buf[offset:], r.OrderId)
	offset += copy(buf[offset:], r.CounterpartyOrderId)
	copy(buf[offset:], r.Err)
	return buf
}

// executionReports builds the pair of reports addressed to each counterparty
// of a trade: one from the bid side's perspective, one from the ask side's.
func executionReports(trade common.Trade) (bidReport, askReport []byte) {
	bid := Report{
		Type:                ExecutionReport,
		Side:                common.Buy,
		Price:               trade.BidFill.Price,
		Quantity:            trade.BidFill.Quantity,
		OrderId:             trade.BidFill.OrderId,
		CounterpartyOrderId: trade.AskFill.OrderId,
	}
	ask := Report{
		Type:                ExecutionReport,
		Side:                common.Sell,
		Price:               trade.AskFill.Price,
		Quantity:            trade.AskFill.Quantity,
		OrderId:             trade.AskFill.OrderId,
		CounterpartyOrderId: trade.BidFill.OrderId,
	}
	return bid.Serialize(), ask.Serialize()
}

func errorReport(err error) []byte {
	r := Report{Type: ErrorReport, Err: fmt.Sprintf("%v", err)}
	return r.Serialize()
}
