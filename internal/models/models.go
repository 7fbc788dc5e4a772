package models

// PageEvent is emitted by the page whenever its route changes.
type PageEvent struct {
	Page string `json:"page"` // forwarded as-is, empty included
}

type Batch struct {
	Events []PageEvent `json:"events"`
}

// Pageview is one row of the local pageview store.
type Pageview struct {
	ID    int64  `json:"id"`
	TSUTC int64  `json:"ts_utc"` // unix millis
	TSISO string `json:"ts_iso"`
	Page  string `json:"page"`
}

type PageCount struct {
	Page  string `json:"page"`
	Views int64  `json:"views"`
}
