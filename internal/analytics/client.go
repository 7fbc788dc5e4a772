// Package analytics holds the analytics clients the bridge can forward to.
//
// A Client mirrors the two tracker commands the page used to issue directly:
// set("page", id) and send("pageview"). Clients are expected to be safe for
// use from one goroutine at a time; the bridge never calls them concurrently.
package analytics

import (
	"errors"
	"fmt"
	"log/slog"
)

type Client interface {
	SetPage(page string) error
	SendPageview() error
}

// Noop discards everything.
type Noop struct{}

func (Noop) SetPage(string) error { return nil }
func (Noop) SendPageview() error  { return nil }

// Logger reports each command through slog instead of a backend.
type Logger struct {
	Log  *slog.Logger
	page string
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{Log: logger}
}

func (l *Logger) SetPage(page string) error {
	l.page = page
	l.Log.Debug("analytics set", "field", "page", "value", page)
	return nil
}

func (l *Logger) SendPageview() error {
	l.Log.Info("analytics pageview", "page", l.page)
	return nil
}

type tee []Client

// Tee forwards each command to every client in order. A failing or
// panicking client does not stop the others; their errors are joined.
func Tee(clients ...Client) Client {
	if len(clients) == 1 {
		return clients[0]
	}
	return tee(clients)
}

func (t tee) SetPage(page string) error {
	var errs []error
	for _, c := range t {
		if err := guard(func() error { return c.SetPage(page) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) SendPageview() error {
	var errs []error
	for _, c := range t {
		if err := guard(c.SendPageview); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analytics client panicked: %v", r)
		}
	}()
	return fn()
}
