// Package book implements an in-memory L3 limit order book over a flat
// price grid. The grid is a fixed array of price levels indexed by the
// quantized price; each level is a FIFO queue of resting orders. Two
// cursors track the touch (best bid, best ask) and are repaired
// incrementally instead of rescanning the grid on every query.
//
// A Book is single-writer: the caller must apply feed events in order and
// provide its own synchronization if readers run concurrently.
package book

import (
	"math"

	"github.com/google/uuid"
)

// Side of a resting order relative to the touch.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// BookRecord is one resting order as delivered by an L3 feed.
type BookRecord struct {
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	ID    uuid.UUID `json:"id"`
}

// entry is a resting order inside a level queue.
type entry struct {
	size float64
	id   uuid.UUID
}

// Book holds the full depth of one instrument.
type Book struct {
	levels [][]entry
	scale  float64

	// bid is -1 and ask is len(levels) while the respective side is empty.
	bid int
	ask int

	// lastMatch is the index of the most recent fully filled level, -1
	// until the first full fill.
	lastMatch int
}

// DefaultScale quantizes prices to cents.
const DefaultScale = 100

// New creates an empty book with maxLevels price levels. scale is the
// number of grid steps per unit of price (100 for cent ticks).
func New(maxLevels int, scale float64) *Book {
	return &Book{
		levels:    make([][]entry, maxLevels),
		scale:     scale,
		bid:       -1,
		ask:       maxLevels,
		lastMatch: -1,
	}
}

// MaxLevels returns the grid capacity.
func (b *Book) MaxLevels() int { return len(b.levels) }

// Scale returns the grid steps per unit of price.
func (b *Book) Scale() float64 { return b.scale }

// quantEps absorbs representation error before truncation: a price that
// is an exact decimal tick often lands a hair under the tick as a float64
// (0.29*100 is 28.999...), and bare floor would drop it a full level.
// Anything more than a micro-tick below the boundary still truncates.
const quantEps = 1e-6

// index quantizes a price onto the grid. Negative prices and prices past
// the end of the grid are rejected; nothing downstream may ever see an
// unchecked index.
func (b *Book) index(price float64) (int, error) {
	if price < 0 {
		return 0, &RangeError{Price: price, MaxLevels: len(b.levels)}
	}
	idx := int(math.Floor(price*b.scale + quantEps))
	if idx >= len(b.levels) {
		return 0, &RangeError{Price: price, MaxLevels: len(b.levels)}
	}
	return idx, nil
}

func (b *Book) price(idx int) float64 {
	return float64(idx) / b.scale
}

// Open rests a new order at the tail of its price level, advancing the
// touch cursor when the order improves it. The prospective cursors are
// checked against the no-cross invariant before anything is mutated, so a
// crossing event leaves the book untouched.
func (b *Book) Open(side Side, rec BookRecord) error {
	idx, err := b.index(rec.Price)
	if err != nil {
		return err
	}

	bid, ask := b.bid, b.ask
	switch {
	case side == Buy && idx > bid:
		bid = idx
	case side == Sell && idx < ask:
		ask = idx
	}
	if bid >= ask {
		return &CrossedBookError{Bid: b.price(bid), Ask: b.price(ask)}
	}

	b.bid, b.ask = bid, ask
	b.levels[idx] = append(b.levels[idx], entry{size: rec.Size, id: rec.ID})
	return nil
}

// Match executes size against the head of the level at price. The feed
// names the resting order it matched against; if that order is not at the
// head of our queue the feed and the book have diverged and the caller
// must resynchronize. A partial fill shrinks the head in place, keeping
// its time priority; a full fill pops it and repairs the touch.
func (b *Book) Match(price, size float64, id uuid.UUID) error {
	idx, err := b.index(price)
	if err != nil {
		return err
	}
	q := b.levels[idx]
	if len(q) == 0 {
		return &MatchMismatchError{Price: price, Got: id}
	}
	if q[0].id != id {
		return &MatchMismatchError{Price: price, Want: q[0].id, Got: id}
	}

	rem := q[0].size - size
	if sizeIsZero(rem, q[0].size) {
		b.popHead(idx)
		b.repair(idx)
		b.lastMatch = idx
		return nil
	}
	q[0].size = rem
	return nil
}

// Done cancels the order with the given id at price. Removal is by
// predicate so a duplicate cancel, or an id that was never there, is a
// no-op rather than an error.
func (b *Book) Done(price float64, id uuid.UUID) error {
	idx, err := b.index(price)
	if err != nil {
		return err
	}
	q := b.levels[idx]
	kept := q[:0]
	for _, e := range q {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	b.levels[idx] = kept
	b.repair(idx)
	return nil
}

// Change resizes the order with the given id at price without moving it in
// the queue: a size-only modify keeps its original time priority. A zero
// newSize is a cancel. Unknown ids are ignored.
func (b *Book) Change(price, newSize float64, id uuid.UUID) error {
	if newSize == 0 {
		return b.Done(price, id)
	}
	idx, err := b.index(price)
	if err != nil {
		return err
	}
	q := b.levels[idx]
	for i := range q {
		if q[i].id == id {
			q[i].size = newSize
		}
	}
	return nil
}

// Reload rebuilds the book from a full L3 snapshot. Records must arrive in
// exchange-assigned priority order; their input order becomes the
// intra-level time priority. The rebuild is all-or-nothing: records are
// opened into a scratch grid and swapped in only once every record landed,
// so a bad snapshot leaves the previous state intact.
func (b *Book) Reload(bids, asks []BookRecord) error {
	fresh := New(len(b.levels), b.scale)
	for _, rec := range bids {
		if err := fresh.Open(Buy, rec); err != nil {
			return err
		}
	}
	for _, rec := range asks {
		if err := fresh.Open(Sell, rec); err != nil {
			return err
		}
	}
	*b = *fresh
	return nil
}

// SimulateMatch pops the head of the level at price if it carries the
// reserved nil order id. Simulation and test rigs seed the book with
// nil-id entries so they can consume liquidity without knowing real
// exchange ids; production feeds never issue the nil id, so a real entry
// at the head reports false and is left alone. Not part of the production
// mutation API.
func (b *Book) SimulateMatch(price float64) (bool, error) {
	idx, err := b.index(price)
	if err != nil {
		return false, err
	}
	q := b.levels[idx]
	if len(q) == 0 {
		return false, &MatchMismatchError{Price: price, Got: uuid.Nil}
	}
	if q[0].id != uuid.Nil {
		return false, nil
	}
	b.popHead(idx)
	b.repair(idx)
	b.lastMatch = idx
	return true, nil
}

// Bid returns the best bid price. ok is false when no buy level is
// occupied; the price is meaningless then.
func (b *Book) Bid() (float64, bool) {
	if b.bid < 0 {
		return 0, false
	}
	return b.price(b.bid), true
}

// Ask returns the best ask price. ok is false when no sell level is
// occupied.
func (b *Book) Ask() (float64, bool) {
	if b.ask >= len(b.levels) {
		return 0, false
	}
	return b.price(b.ask), true
}

// LastMatch returns the price of the most recent fully filled level. ok is
// false before any full fill.
func (b *Book) LastMatch() (float64, bool) {
	if b.lastMatch < 0 {
		return 0, false
	}
	return b.price(b.lastMatch), true
}

// Bids returns aggregate resting size for the n levels up to and including
// the best bid, in ascending index order (far from touch first, touch
// last). Positions outside the grid, and every position while the side is
// empty, contribute zero. A non-positive n yields nil.
func (b *Book) Bids(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if b.bid < 0 {
		return out
	}
	for i := 0; i < n; i++ {
		idx := b.bid - n + 1 + i
		if idx < 0 {
			continue
		}
		out[i] = levelSize(b.levels[idx])
	}
	return out
}

// Asks returns aggregate resting size for the n levels from the best ask
// outward, in ascending index order (touch first). A non-positive n
// yields nil.
func (b *Book) Asks(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if b.ask >= len(b.levels) {
		return out
	}
	for i := 0; i < n; i++ {
		idx := b.ask + i
		if idx >= len(b.levels) {
			break
		}
		out[i] = levelSize(b.levels[idx])
	}
	return out
}

// Snapshot lists every resting order, bids from the touch downward and
// asks from the touch upward, entries within a level in queue order.
// Feeding the result back through Reload reproduces the book exactly,
// which is what the persistence layer relies on. Side membership follows
// the cursors: an occupied level at or below the bid cursor is a buy
// level, at or above the ask cursor a sell level.
func (b *Book) Snapshot() (bids, asks []BookRecord) {
	for idx := b.bid; idx >= 0; idx-- {
		for _, e := range b.levels[idx] {
			bids = append(bids, BookRecord{Price: b.price(idx), Size: e.size, ID: e.id})
		}
	}
	for idx := b.ask; idx < len(b.levels); idx++ {
		for _, e := range b.levels[idx] {
			asks = append(asks, BookRecord{Price: b.price(idx), Size: e.size, ID: e.id})
		}
	}
	return bids, asks
}

// popHead removes the first entry of a level. The remaining entries are
// shifted down so the level keeps reusing its backing array instead of
// leaking the consumed head.
func (b *Book) popHead(idx int) {
	q := b.levels[idx]
	copy(q, q[1:])
	b.levels[idx] = q[:len(q)-1]
}

// repair re-anchors a touch cursor after the level it pointed at may have
// emptied. The scan walks inward-to-outward from the vacated index and is
// bounded at the grid edges: a fully emptied side parks its cursor on the
// empty-side sentinel instead of running off the array.
func (b *Book) repair(idx int) {
	if idx == b.bid {
		for b.bid >= 0 && len(b.levels[b.bid]) == 0 {
			b.bid--
		}
	}
	if idx == b.ask {
		for b.ask < len(b.levels) && len(b.levels[b.ask]) == 0 {
			b.ask++
		}
	}
}

func levelSize(q []entry) float64 {
	var sum float64
	for _, e := range q {
		sum += e.size
	}
	return sum
}

// sizeTolerance bounds the relative error accepted when deciding a resting
// size has reached zero. Sizes are accumulated through floating-point
// subtraction, so exact equality would strand dust entries at the head of
// a level forever.
const sizeTolerance = 1e-9

func sizeIsZero(rem, orig float64) bool {
	return math.Abs(rem) <= sizeTolerance*math.Max(1, math.Abs(orig))
}
