package feed

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"depthd/internal/book"
	"depthd/internal/infra/health"
	"depthd/internal/infra/metrics"
)

// TouchUpdate describes the best bid/ask after an applied event.
type TouchUpdate struct {
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	BidOK      bool      `json:"bid_ok"`
	AskOK      bool      `json:"ask_ok"`
	Sequence   uint64    `json:"sequence"`
	Time       time.Time `json:"time"`
}

// TouchFunc receives touch updates; see Applier.OnTouch.
type TouchFunc func(TouchUpdate)

// Applier serializes feed events onto one book and owns the desync
// policy: after a sequence gap, a match mismatch, or a crossed insertion
// it stops applying events and waits for the next full snapshot instead
// of guessing. Readers (HTTP, snapshot job) take the read lock, so the
// engine never sees concurrent access.
type Applier struct {
	mu         sync.RWMutex
	instrument string
	book       *book.Book
	logger     zerolog.Logger

	seq    uint64
	synced bool

	touch TouchFunc
}

func NewApplier(instrument string, b *book.Book, logger zerolog.Logger) *Applier {
	return &Applier{
		instrument: instrument,
		book:       b,
		logger:     logger.With().Str("component", "applier").Logger(),
	}
}

// OnTouch registers a hook fired after every applied event that moved the
// touch (and after every resync). Set it before the feed starts; it runs
// under the applier's write lock and must not call back in.
func (a *Applier) OnTouch(fn TouchFunc) { a.touch = fn }

// Apply processes one feed event. Errors are returned for visibility but
// the applier has already enforced its policy by the time Apply returns:
// data-integrity errors flip it into the unsynced state, rejected events
// are counted and skipped.
func (a *Applier) Apply(m Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := time.Now()
	defer func() { metrics.ApplyLatencySeconds.Observe(time.Since(start).Seconds()) }()

	if m.Type == TypeSnapshot {
		return a.applySnapshot(m)
	}

	if !a.synced {
		metrics.FeedDroppedTotal.Inc()
		return nil
	}
	if m.Sequence != 0 {
		if m.Sequence <= a.seq {
			metrics.FeedRejectedTotal.WithLabelValues("stale").Inc()
			return nil
		}
		if a.seq != 0 && m.Sequence != a.seq+1 {
			a.desync("sequence_gap", nil)
			return nil
		}
	}

	prevBid, prevBidOK := a.book.Bid()
	prevAsk, prevAskOK := a.book.Ask()

	if err := a.dispatch(m); err != nil {
		var mismatch *book.MatchMismatchError
		var crossed *book.CrossedBookError
		var rng *book.RangeError
		switch {
		case errors.As(err, &mismatch):
			a.desync("match_mismatch", err)
		case errors.As(err, &crossed):
			a.desync("crossed_book", err)
		case errors.As(err, &rng):
			// Grid misconfiguration, not desynchronization: the book is
			// still coherent, the event just cannot land on it.
			metrics.FeedRejectedTotal.WithLabelValues("range").Inc()
			a.logger.Warn().Err(err).Uint64("seq", m.Sequence).Msg("event outside grid")
			a.advance(m.Sequence)
		default:
			metrics.FeedRejectedTotal.WithLabelValues("parse").Inc()
			a.logger.Warn().Err(err).Uint64("seq", m.Sequence).Str("type", m.Type).Msg("malformed event")
			a.advance(m.Sequence)
		}
		return err
	}

	a.advance(m.Sequence)
	metrics.FeedEventsTotal.WithLabelValues(m.Type).Inc()
	a.publishGauges()

	bid, bidOK := a.book.Bid()
	ask, askOK := a.book.Ask()
	if bid != prevBid || ask != prevAsk || bidOK != prevBidOK || askOK != prevAskOK {
		a.fireTouch()
	}
	return nil
}

func (a *Applier) dispatch(m Message) error {
	switch m.Type {
	case TypeOpen:
		s, err := parseSide(m.Side)
		if err != nil {
			return err
		}
		rec, err := record(m.Price, m.Size, m.OrderID)
		if err != nil {
			return err
		}
		return a.book.Open(s, rec)

	case TypeMatch:
		price, err := parseDecimal(m.Price)
		if err != nil {
			return err
		}
		size, err := parseDecimal(m.Size)
		if err != nil {
			return err
		}
		maker, err := parseUUID(m.MakerOrderID)
		if err != nil {
			return err
		}
		return a.book.Match(price, size, maker)

	case TypeDone:
		price, err := parseDecimal(m.Price)
		if err != nil {
			return err
		}
		id, err := parseUUID(m.OrderID)
		if err != nil {
			return err
		}
		return a.book.Done(price, id)

	case TypeChange:
		price, err := parseDecimal(m.Price)
		if err != nil {
			return err
		}
		newSize, err := parseDecimal(m.NewSize)
		if err != nil {
			return err
		}
		id, err := parseUUID(m.OrderID)
		if err != nil {
			return err
		}
		return a.book.Change(price, newSize, id)

	default:
		// Heartbeats and similar advisory types carry no book state.
		return nil
	}
}

func (a *Applier) applySnapshot(m Message) error {
	bids, err := side(m.Bids)
	if err == nil {
		var asks []book.BookRecord
		asks, err = side(m.Asks)
		if err == nil {
			err = a.book.Reload(bids, asks)
		}
	}
	if err != nil {
		metrics.FeedRejectedTotal.WithLabelValues("snapshot").Inc()
		a.logger.Error().Err(err).Uint64("seq", m.Sequence).Msg("snapshot rejected, staying unsynced")
		a.synced = false
		health.SetReady(false)
		return err
	}

	a.seq = m.Sequence
	a.synced = true
	health.SetReady(true)
	metrics.BookResyncsTotal.Inc()
	metrics.FeedEventsTotal.WithLabelValues(TypeSnapshot).Inc()
	a.publishGauges()
	a.fireTouch()
	a.logger.Info().Uint64("seq", m.Sequence).Msg("book resynced from snapshot")
	return nil
}

// Restore warm-starts the book from persisted state, typically before the
// feed begins. Events at or below seq will be skipped as stale; a gap
// above it degrades into the usual wait-for-snapshot path.
func (a *Applier) Restore(bids, asks []book.BookRecord, seq uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.book.Reload(bids, asks); err != nil {
		return err
	}
	a.seq = seq
	a.synced = true
	health.SetReady(true)
	a.publishGauges()
	return nil
}

// advance records the sequence of a consumed event. Unsequenced
// messages (heartbeats and other advisories omit the field) must not
// rewind the counter to zero and disarm the stale check.
func (a *Applier) advance(seq uint64) {
	if seq != 0 {
		a.seq = seq
	}
}

func (a *Applier) desync(reason string, err error) {
	a.synced = false
	health.SetReady(false)
	metrics.FeedDesyncsTotal.WithLabelValues(reason).Inc()
	a.logger.Warn().Err(err).Str("reason", reason).Uint64("seq", a.seq).
		Msg("book desynced, waiting for snapshot")
}

func (a *Applier) publishGauges() {
	bid, _ := a.book.Bid()
	ask, _ := a.book.Ask()
	metrics.BookBestBid.Set(bid)
	metrics.BookBestAsk.Set(ask)
	metrics.FeedSequence.Set(float64(a.seq))
}

func (a *Applier) fireTouch() {
	if a.touch == nil {
		return
	}
	bid, bidOK := a.book.Bid()
	ask, askOK := a.book.Ask()
	a.touch(TouchUpdate{
		Instrument: a.instrument,
		Bid:        bid,
		Ask:        ask,
		BidOK:      bidOK,
		AskOK:      askOK,
		Sequence:   a.seq,
		Time:       time.Now().UTC(),
	})
}

// ---- read views ----

func (a *Applier) Instrument() string { return a.instrument }

func (a *Applier) Synced() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.synced
}

func (a *Applier) Sequence() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.seq
}

// Touch returns the current best bid and ask; the ok flags are false for
// an empty side.
func (a *Applier) Touch() (bid, ask float64, bidOK, askOK bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bid, bidOK = a.book.Bid()
	ask, askOK = a.book.Ask()
	return bid, ask, bidOK, askOK
}

// Depth returns aggregate sizes for n levels on each side of the touch.
func (a *Applier) Depth(n int) (bids, asks []float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.book.Bids(n), a.book.Asks(n)
}

// RenderBook returns the fixed-width diagnostic rendering.
func (a *Applier) RenderBook(width int) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return book.Render(a.book, width)
}

// State returns every resting order plus the feed sequence, for the
// snapshot persistence job.
func (a *Applier) State() (bids, asks []book.BookRecord, seq uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bids, asks = a.book.Snapshot()
	return bids, asks, a.seq
}
