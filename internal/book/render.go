package book

import (
	"fmt"
	"strconv"
	"strings"
)

// Render formats a fixed-width view of the book for diagnostics: width
// aggregate bid sizes, the touch prices, then width aggregate ask sizes.
// This is a presentation convenience layered over the query API, not part
// of the engine contract.
func Render(b *Book, width int) string {
	bid, okBid := b.Bid()
	ask, okAsk := b.Ask()
	if !okBid || !okAsk {
		return "OB: empty"
	}
	return fmt.Sprintf("OB: %s | %.2f   %.2f | %s",
		joinSizes(b.Bids(width)), bid, ask, joinSizes(b.Asks(width)))
}

func joinSizes(sizes []float64) string {
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
