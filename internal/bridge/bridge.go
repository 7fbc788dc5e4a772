// Package bridge forwards the application's page notifications to an
// analytics client.
//
// Analytics is telemetry, not a correctness path: a client that is missing,
// returns an error, or panics loses the event and nothing more. The bridge
// holds no state between events.
package bridge

import (
	"fmt"
	"log/slog"

	"github.com/vincentbai/pageview-bridge/internal/analytics"
	"github.com/vincentbai/pageview-bridge/internal/metrics"
)

const (
	opSetPage      = "set_page"
	opSendPageview = "send_pageview"
)

// Source is anything that delivers page identifiers to one handler, such as
// the application's updateAnalytics port.
type Source interface {
	Subscribe(handler func(page string)) error
}

type Bridge struct {
	client  analytics.Client
	logger  *slog.Logger
	metrics *metrics.Bridge
}

// New builds a bridge. A nil client is allowed and behaves like an analytics
// script that never loaded. logger and m may be nil.
func New(client analytics.Client, logger *slog.Logger, m *metrics.Bridge) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{client: client, logger: logger, metrics: m}
}

// Attach registers the bridge as the source's listener.
func (b *Bridge) Attach(source Source) error {
	if err := source.Subscribe(b.Handle); err != nil {
		return fmt.Errorf("failed to subscribe analytics bridge: %w", err)
	}
	return nil
}

// Handle forwards one page event: set the page, then send a pageview.
func (b *Bridge) Handle(page string) {
	b.metrics.Event()
	if b.client == nil {
		b.metrics.Unavailable()
		b.logger.Debug("analytics client unavailable, dropping page event", "page", page)
		return
	}

	// A failed set still gets its send, matching the fire-and-forget tracker calls.
	setOK := b.call(opSetPage, page, func() error { return b.client.SetPage(page) })
	sendOK := b.call(opSendPageview, page, b.client.SendPageview)
	if setOK && sendOK {
		b.metrics.Forwarded()
	}
}

func (b *Bridge) call(op, page string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.Failure(op)
			b.logger.Warn("analytics client panicked", "op", op, "page", page, "panic", r)
			ok = false
		}
	}()
	if err := fn(); err != nil {
		b.metrics.Failure(op)
		b.logger.Warn("analytics client call failed", "op", op, "page", page, "error", err)
		return false
	}
	return true
}
