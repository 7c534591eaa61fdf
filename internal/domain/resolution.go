// Package domain contains the core business entities for the Dishplay image
// resolution service.
package domain

import (
	"strings"
	"time"
)

// Tier identifies which resolution strategy produced a candidate or satisfied
// a query. Tiers escalate in cost: catalog lookup, web image search, then
// generative imaging.
type Tier string

// Resolution tiers, in escalation order.
const (
	TierCatalog   Tier = "catalog"
	TierWebSearch Tier = "web_search"
	TierGenerated Tier = "generated"
	TierNone      Tier = "none"
)

// Cacheable reports whether outcomes satisfied by this tier may be stored in
// the result cache. Catalog lookups are cheap and must always be re-evaluated
// fresh so that catalog growth is visible immediately; NONE outcomes are never
// cached so a later retry can succeed once upstream conditions change.
func (t Tier) Cacheable() bool {
	return t == TierWebSearch || t == TierGenerated
}

// Query is an immutable dish lookup request: a name plus free-text description
// as extracted from a menu.
type Query struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Text returns the embedding input for the query, using the same
// "name. description" convention the catalog embeddings were built with.
func (q Query) Text() string {
	name := strings.TrimSpace(q.Name)
	desc := strings.TrimSpace(q.Description)
	if desc == "" {
		return name
	}
	return name + ". " + desc
}

// Candidate is a single image reference proposed for a query.
type Candidate struct {
	ImageURL string `json:"image_url"`
	Source   Tier   `json:"source"`

	// Score is cosine similarity, set only for catalog candidates.
	Score float64 `json:"score,omitzero"`

	// Rank is the provider relevance rank, set only for web search candidates
	// (0 = best).
	Rank int `json:"rank,omitzero"`

	// Title, Description, Category, and CatalogKey carry catalog metadata
	// for catalog candidates.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CatalogKey  string `json:"catalog_key,omitempty"`

	// BlurHash is a compact placeholder computed when the image has been
	// downloaded and stored locally.
	BlurHash string `json:"blur_hash,omitempty"`
}

// Outcome is the result of running a query through the resolution cascade.
//
// Invariants:
//   - SatisfiedTier is TierNone iff Candidates is empty after all tiers
//     were exhausted.
//   - Candidates never mix tiers: the cascade stops escalating as soon as a
//     tier yields at least one accepted candidate.
//   - Catalog candidates are sorted descending by score and all meet the
//     configured acceptance threshold.
type Outcome struct {
	Query         Query       `json:"query"`
	Candidates    []Candidate `json:"candidates"`
	SatisfiedTier Tier        `json:"satisfied_tier"`
	ResolvedAt    time.Time   `json:"resolved_at"`
}

// CacheEntry is a stored web-search or generated outcome, keyed by the
// query's normalized key. Entries are immutable once written; they are only
// replaced when the cache is explicitly cleared.
type CacheEntry struct {
	Key       string    `json:"key"`
	Outcome   Outcome   `json:"outcome"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmatchedRecord marks a query that exhausted the catalog tier without a
// confident match. These records drive offline catalog curation; they are
// written regardless of whether a lower tier later produced an image.
type UnmatchedRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	LoggedAt    time.Time `json:"logged_at"`
}

// MenuItem is one extracted menu entry submitted for batch resolution.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
