package analytics

import (
	"fmt"
	"time"

	"github.com/vincentbai/pageview-bridge/internal/models"
)

// PageviewStore is the slice of the database the local client needs.
type PageviewStore interface {
	InsertPageviews(pageviews []models.Pageview) error
}

// Local records pageviews in the agent's own store.
type Local struct {
	store PageviewStore
	now   func() time.Time
	page  string
}

func NewLocal(store PageviewStore) *Local {
	return &Local{store: store, now: time.Now}
}

func (l *Local) SetPage(page string) error {
	l.page = page
	return nil
}

func (l *Local) SendPageview() error {
	ts := l.now().UTC()
	pageview := models.Pageview{
		TSUTC: ts.UnixMilli(),
		TSISO: ts.Format(time.RFC3339Nano),
		Page:  l.page,
	}
	if err := l.store.InsertPageviews([]models.Pageview{pageview}); err != nil {
		return fmt.Errorf("local: record pageview: %w", err)
	}
	return nil
}
