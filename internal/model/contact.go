// Package model defines the core domain types shared across the engine.
package model

import "time"

// Source identifies which ingestion path produced a contact.
type Source string

const (
	SourceManual  Source = "manual"
	SourceCSV     Source = "csv"
	SourceSerpAPI Source = "serpapi"
)

// Contact represents a lead record. All identity, firmographic and geographic
// attributes are optional; Email is unique across contacts when present.
type Contact struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Company      string         `json:"company,omitempty"`
	Industry     string         `json:"industry,omitempty"`
	Location     string         `json:"location,omitempty"`
	City         string         `json:"city,omitempty"`
	State        string         `json:"state,omitempty"`
	Country      string         `json:"country,omitempty"`
	Source       Source         `json:"source,omitempty"`
	RawData      map[string]any `json:"raw_data,omitempty"`
	EnrichedData map[string]any `json:"enriched_data,omitempty"`
	EnrichedAt   *time.Time     `json:"enriched_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Scores holds the contact's intent scores, latest first. Only the
	// first entry is semantically meaningful after a recalculation.
	Scores []IntentScore `json:"intent_scores,omitempty"`
}

// LatestTier returns the tier label of the most recent score, or "" if the
// contact has never been scored.
func (c *Contact) LatestTier() string {
	if len(c.Scores) == 0 {
		return ""
	}
	return string(c.Scores[0].Score)
}

// ContactPatch carries a partial contact update. Nil fields are left untouched.
type ContactPatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Company   *string `json:"company,omitempty"`
	Industry  *string `json:"industry,omitempty"`
	Location  *string `json:"location,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Country   *string `json:"country,omitempty"`
}

// Apply copies the non-nil patch fields onto the contact.
func (p ContactPatch) Apply(c *Contact) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.FirstName, p.FirstName)
	set(&c.LastName, p.LastName)
	set(&c.Email, p.Email)
	set(&c.Phone, p.Phone)
	set(&c.Company, p.Company)
	set(&c.Industry, p.Industry)
	set(&c.Location, p.Location)
	set(&c.City, p.City)
	set(&c.State, p.State)
	set(&c.Country, p.Country)
}
