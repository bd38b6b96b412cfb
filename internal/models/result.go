package models

// Counts holds one number per written entity type.
type Counts struct {
	Artists int `json:"artists"`
	Albums  int `json:"albums"`
	Tracks  int `json:"tracks"`
	History int `json:"history"`
	Links   int `json:"links"`
}

// Total sums every entity count.
func (c Counts) Total() int {
	return c.Artists + c.Albums + c.Tracks + c.History + c.Links
}

// ImportResult reports what an import run inserted. Counts embeds the rows actually written,
// so conflict-skipped rows are not included. Dropped counts candidates filtered out because
// a dependency could not be resolved.
type ImportResult struct {
	Counts
	Dropped     Counts `json:"dropped"`
	Events      int    `json:"events"`
	UserID      string `json:"user_id"`
	UserCreated bool   `json:"user_created"`
	RunID       string `json:"run_id"`
	DurationMS  int64  `json:"duration_ms"`
}
