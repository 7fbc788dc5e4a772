package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCollectURL is the Universal Analytics hit endpoint, the backend the
// page's ga("set")/ga("send") calls targeted. Google retired Universal
// Analytics; GA4 properties take events at /mp/collect with a different
// payload, which this client does not speak. Point PAGEBRIDGE_COLLECT_URL at
// a compatible collector when forwarding elsewhere.
const DefaultCollectURL = "https://www.google-analytics.com/collect"

var ErrMissingTrackingID = errors.New("measurement: tracking id is required")

type MeasurementConfig struct {
	TrackingID string
	ClientID   string // random UUID when empty
	CollectURL string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Measurement speaks the Universal Analytics Measurement Protocol. Like the
// browser tracker it keeps the current page as tracker state and attaches it
// to every pageview hit.
type Measurement struct {
	trackingID string
	clientID   string
	collectURL string
	timeout    time.Duration
	httpClient *http.Client

	mu   sync.Mutex
	page string
}

func NewMeasurement(cfg MeasurementConfig) (*Measurement, error) {
	if cfg.TrackingID == "" {
		return nil, ErrMissingTrackingID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.CollectURL == "" {
		cfg.CollectURL = DefaultCollectURL
	}
	if _, err := url.Parse(cfg.CollectURL); err != nil {
		return nil, fmt.Errorf("measurement: invalid collect url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Measurement{
		trackingID: cfg.TrackingID,
		clientID:   cfg.ClientID,
		collectURL: cfg.CollectURL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
	}, nil
}

func (m *Measurement) ClientID() string {
	return m.clientID
}

func (m *Measurement) SetPage(page string) error {
	m.mu.Lock()
	m.page = page
	m.mu.Unlock()
	return nil
}

func (m *Measurement) SendPageview() error {
	m.mu.Lock()
	page := m.page
	m.mu.Unlock()

	form := url.Values{}
	form.Set("v", "1")
	form.Set("tid", m.trackingID)
	form.Set("cid", m.clientID)
	form.Set("t", "pageview")
	form.Set("dp", page)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.collectURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("measurement: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("measurement: send pageview: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("measurement: collect returned %s", resp.Status)
	}
	return nil
}
