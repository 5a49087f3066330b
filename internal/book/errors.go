package book

import (
	"fmt"

	"github.com/google/uuid"
)

// The mutation API returns one of three typed errors. RangeError is
// recoverable (the instrument/tick configuration does not fit the grid);
// MatchMismatchError and CrossedBookError mean the feed and the book have
// diverged and the caller must resynchronize from a fresh snapshot rather
// than keep applying events.

// RangeError reports a price that quantizes outside the grid.
type RangeError struct {
	Price     float64
	MaxLevels int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("book: price %v outside grid of %d levels", e.Price, e.MaxLevels)
}

// MatchMismatchError reports a match event naming an order that is not at
// the head of its price level. Want is the head id actually resting there
// (zero when the level was empty), Got the id the feed named.
type MatchMismatchError struct {
	Price float64
	Want  uuid.UUID
	Got   uuid.UUID
}

func (e *MatchMismatchError) Error() string {
	if e.Want == uuid.Nil {
		return fmt.Sprintf("book: match at %v against empty or mismatched level (order %s)", e.Price, e.Got)
	}
	return fmt.Sprintf("book: match at %v names order %s but head is %s", e.Price, e.Got, e.Want)
}

// CrossedBookError reports an insertion that would leave the best bid at
// or above the best ask.
type CrossedBookError struct {
	Bid float64
	Ask float64
}

func (e *CrossedBookError) Error() string {
	return fmt.Sprintf("book: insertion would cross, bid %.2f >= ask %.2f", e.Bid, e.Ask)
}
