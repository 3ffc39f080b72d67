package domain

import "time"

// SavedCondition is a named, previously persisted strategy filter.
// The definition is opaque to the compare dashboard.
type SavedCondition struct {
	Name       string         // display name, unique
	Definition map[string]any // search parameters as saved by the strategy page
	CreatedAt  time.Time
}
