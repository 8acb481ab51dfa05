package printing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pharma-billing/internal/obs"
)

// Sink receives documents ready to print.
type Sink interface {
	Print(ctx context.Context, doc Document) error
}

// LogSink writes each document as a structured log entry.
type LogSink struct {
	Logger zerolog.Logger
}

// Print implements Sink.
func (s LogSink) Print(_ context.Context, doc Document) error {
	evt := s.Logger.Info().
		Str("invoice_id", doc.InvoiceID.String()).
		Str("number", doc.Number).
		Str("regime", string(doc.Regime)).
		Int("lines", len(doc.Lines)).
		Float64("payable", doc.Totals.Payable).
		Str("amount_in_words", doc.AmountInWords)
	for _, tl := range doc.TaxLines {
		evt = evt.Interface(fmt.Sprintf("tax_%g", tl.RatePercent), tl)
	}
	evt.Msg("invoice rendered")
	return nil
}

// Handler processes render tasks.
type Handler struct {
	Sink   Sink
	Logger zerolog.Logger
}

// Register mounts the handler on an asynq mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskRender, h)
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h.Sink == nil {
		return errors.New("printing: sink not configured")
	}
	var doc Document
	if err := json.Unmarshal(t.Payload(), &doc); err != nil {
		obs.CountRender("render", "invalid")
		h.Logger.Error().Err(err).Str("task", t.Type()).Msg("decode render payload")
		return fmt.Errorf("decode render payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Sink.Print(ctx, doc); err != nil {
		obs.CountRender("render", "error")
		return fmt.Errorf("print invoice %s: %w", doc.Number, err)
	}
	obs.CountRender("render", "ok")
	return nil
}
