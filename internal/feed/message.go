// Package feed is the collaborator that drives a book: it decodes the
// ordered L3 event stream for one instrument, applies each event to the
// engine, and owns the resynchronization policy when the stream and the
// book diverge. The engine itself stays single-threaded and lock-free;
// this package provides the external serialization the engine's contract
// requires.
package feed

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"depthd/internal/book"
)

// Message types on the wire.
const (
	TypeOpen     = "open"
	TypeMatch    = "match"
	TypeDone     = "done"
	TypeChange   = "change"
	TypeSnapshot = "snapshot"
)

// Message is one L3 feed event. Prices and sizes travel as decimal
// strings; snapshot sides are [price, size, order_id] triplets in
// exchange-assigned priority order.
type Message struct {
	Type     string `json:"type"`
	Sequence uint64 `json:"sequence"`

	Side         string `json:"side,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
	MakerOrderID string `json:"maker_order_id,omitempty"`
	Price        string `json:"price,omitempty"`
	Size         string `json:"size,omitempty"`
	NewSize      string `json:"new_size,omitempty"`

	Bids [][3]string `json:"bids,omitempty"`
	Asks [][3]string `json:"asks,omitempty"`
}

// parseDecimal converts a wire decimal string to float64. Going through
// decimal keeps the parse strict (no inf/hex/whitespace forms) and makes
// the single binary conversion point explicit.
func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("feed: bad order id %q: %w", s, err)
	}
	return id, nil
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "buy":
		return book.Buy, nil
	case "sell":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("feed: unknown side %q", s)
	}
}

// record builds a BookRecord from price/size strings and an order id.
func record(price, size, orderID string) (book.BookRecord, error) {
	p, err := parseDecimal(price)
	if err != nil {
		return book.BookRecord{}, fmt.Errorf("feed: bad price %q: %w", price, err)
	}
	sz, err := parseDecimal(size)
	if err != nil {
		return book.BookRecord{}, fmt.Errorf("feed: bad size %q: %w", size, err)
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return book.BookRecord{}, fmt.Errorf("feed: bad order id %q: %w", orderID, err)
	}
	return book.BookRecord{Price: p, Size: sz, ID: id}, nil
}

// side parses one snapshot side of [price, size, order_id] triplets,
// preserving input order.
func side(entries [][3]string) ([]book.BookRecord, error) {
	out := make([]book.BookRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := record(e[0], e[1], e[2])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
