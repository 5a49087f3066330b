// Package rest exposes the read-only query surface over the applier's
// locked views. It never mutates the book.
package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// BookView is the slice of the feed applier the API reads from.
type BookView interface {
	Instrument() string
	Synced() bool
	Sequence() uint64
	Touch() (bid, ask float64, bidOK, askOK bool)
	Depth(n int) (bids, asks []float64)
	RenderBook(width int) string
}

const (
	defaultDepth = 20
	maxDepth     = 500
)

type Server struct {
	mux  *http.ServeMux
	view BookView
}

func New(view BookView) *Server {
	s := &Server{mux: http.NewServeMux(), view: view}
	s.mux.HandleFunc("/book", s.handleBook)
	s.mux.HandleFunc("/depth", s.handleDepth)
	s.mux.HandleFunc("/render", s.handleRender)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type bookResponse struct {
	Instrument string  `json:"instrument"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	BidOK      bool    `json:"bid_ok"`
	AskOK      bool    `json:"ask_ok"`
	Sequence   uint64  `json:"sequence"`
	Synced     bool    `json:"synced"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	bid, ask, bidOK, askOK := s.view.Touch()
	writeJSON(w, bookResponse{
		Instrument: s.view.Instrument(),
		Bid:        bid,
		Ask:        ask,
		BidOK:      bidOK,
		AskOK:      askOK,
		Sequence:   s.view.Sequence(),
		Synced:     s.view.Synced(),
	})
}

type depthResponse struct {
	Instrument string    `json:"instrument"`
	Levels     int       `json:"levels"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	BidOK      bool      `json:"bid_ok"`
	AskOK      bool      `json:"ask_ok"`
	Bids       []float64 `json:"bids"`
	Asks       []float64 `json:"asks"`
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	n := defaultDepth
	if v := r.URL.Query().Get("levels"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			http.Error(w, "levels must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if n > maxDepth {
		n = maxDepth
	}

	bid, ask, bidOK, askOK := s.view.Touch()
	bids, asks := s.view.Depth(n)
	writeJSON(w, depthResponse{
		Instrument: s.view.Instrument(),
		Levels:     n,
		Bid:        bid,
		Ask:        ask,
		BidOK:      bidOK,
		AskOK:      askOK,
		Bids:       bids,
		Asks:       asks,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.view.RenderBook(defaultDepth) + "\n"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
