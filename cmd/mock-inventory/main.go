// Command mock-inventory is an in-memory stand-in for the inventory service,
// useful for local development and demos.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
)

type store struct {
	mu    sync.Mutex
	stock map[string]int64
}

func (s *store) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("productId")

	s.mu.Lock()
	qty, ok := s.stock[id]
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"inventory": map[string]any{"quantityAvailable": qty},
	})
}

func (s *store) adjust(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("productId")
	if id == "" {
		http.Error(w, `{"error":"productId is required"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		QuantityChange int64  `json:"quantityChange"`
		Notes          string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.stock[id] + req.QuantityChange
	if next < 0 {
		http.Error(w, `{"error":"insufficient stock"}`, http.StatusConflict)
		return
	}
	s.stock[id] = next
	slog.Info("adjusted", "product", id, "change", req.QuantityChange, "available", next, "notes", req.Notes)

	writeJSON(w, map[string]any{
		"inventory": map[string]any{"quantityAvailable": next},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// parseSeed parses "id:qty,id:qty" pairs into an initial stock map.
func parseSeed(s string) (map[string]int64, error) {
	stock := make(map[string]int64)
	if s == "" {
		return stock, nil
	}
	for _, pair := range strings.Split(s, ",") {
		id, qtyStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, strconv.ErrSyntax
		}
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil {
			return nil, err
		}
		stock[id] = qty
	}
	return stock, nil
}

func main() {
	var (
		addr string
		seed string
	)
	flag.StringVar(&addr, "addr", "0.0.0.0:9090", "listen address")
	flag.StringVar(&seed, "seed", "", "initial stock as id:qty pairs, e.g. book-1:10,book-2:5")
	flag.Parse()

	stock, err := parseSeed(seed)
	if err != nil {
		slog.Error("invalid -seed value", "err", err)
		os.Exit(1)
	}
	s := &store{stock: stock}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/inventory/{productId}", s.get)
	mux.HandleFunc("POST /api/v1/inventory/adjust", s.adjust)

	slog.Info("mock inventory listening", "addr", addr, "products", len(stock))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
