package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/domain/product"
)

const streamHeartbeat = 25 * time.Second

// StreamProducts pushes the filtered catalog as a Server-Sent Event each
// time it changes. The subscription ends when the client disconnects.
// A slow client only ever sees the latest snapshot.
func (h *Handlers) StreamProducts(w http.ResponseWriter, r *http.Request) {
	cfg, err := parseFilter(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	// Load the snapshot first so Subscribe has something to deliver.
	if _, err := h.hub.Snapshot(ctx); err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	updates := make(chan []product.Product, 1)
	cancel := h.hub.Subscribe(func(products []product.Product) {
		for {
			select {
			case updates <- products:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.Warn("stream flush unsupported", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case products := <-updates:
			data, err := json.Marshal(product.ApplyFilters(products, cfg))
			if err != nil {
				h.log.Error("encoding snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
