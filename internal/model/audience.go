package model

import "time"

// AudienceFilters is the declarative predicate stored with an audience.
// Omitted fields are no-ops; supplied fields combine with logical AND.
type AudienceFilters struct {
	Industry    string     `json:"industry,omitempty"`
	Location    string     `json:"location,omitempty"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	Country     string     `json:"country,omitempty"`
	IntentLevel string     `json:"intent_level,omitempty"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// Empty reports whether no predicate is set.
func (f AudienceFilters) Empty() bool {
	return f.Industry == "" && f.Location == "" && f.City == "" &&
		f.State == "" && f.Country == "" && f.IntentLevel == "" &&
		f.DateFrom == nil && f.DateTo == nil && f.SearchQuery == ""
}

// Audience is a named, materialized set of contacts matching a saved filter.
// Memberships are fully rebuilt whenever the filter specification changes.
type Audience struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Filters      AudienceFilters `json:"filters"`
	ContactCount int             `json:"contact_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AudienceContact joins one audience and one contact.
// Identity is the (AudienceID, ContactID) pair.
type AudienceContact struct {
	AudienceID int64     `json:"audience_id"`
	ContactID  int64     `json:"contact_id"`
	AddedAt    time.Time `json:"added_at"`
}

// AudiencePatch carries a partial audience update. A nil Filters means the
// filter specification (and therefore the membership set) is untouched.
type AudiencePatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Filters     *AudienceFilters `json:"filters,omitempty"`
}
