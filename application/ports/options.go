package ports

import (
	"time"

	"entstore/domain/events"
)

// SortDirection orders list results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListOptions filters, orders and pages a list call. Where is an
// equality filter over validated field names. Records missing the
// orderBy field sort last ascending and first descending.
type ListOptions struct {
	Where     map[string]interface{} `json:"where,omitempty"`
	OrderBy   string                 `json:"orderBy,omitempty"`
	Direction SortDirection          `json:"direction,omitempty"`
	Offset    int                    `json:"offset,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// SearchOptions tunes substring search. An empty Fields list searches
// the serialized record minus the reserved keys.
type SearchOptions struct {
	Fields   []string `json:"fields,omitempty"`
	MinScore float64  `json:"minScore,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// SemanticSearchOptions tunes cosine-similarity search.
type SemanticSearchOptions struct {
	MinScore float64 `json:"minScore,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// Reciprocal rank fusion defaults.
const (
	DefaultRRFK         = 60.0
	DefaultRRFFTSWeight = 0.5
	DefaultRRFSemWeight = 0.5
)

// HybridSearchOptions tunes RRF fusion of substring and semantic
// ranks. Zero weights and K fall back to the defaults above.
type HybridSearchOptions struct {
	K         float64 `json:"k,omitempty"`
	FTSWeight float64 `json:"ftsWeight,omitempty"`
	SemWeight float64 `json:"semWeight,omitempty"`
	MinScore  float64 `json:"minScore,omitempty"`
	Offset    int     `json:"offset,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// UnionSearchMode selects how union fallback search walks its types.
type UnionSearchMode string

const (
	// UnionOrdered searches types in declaration order and stops at the
	// first type with a result above the threshold.
	UnionOrdered UnionSearchMode = "ordered"
	// UnionParallel searches every type concurrently.
	UnionParallel UnionSearchMode = "parallel"
)

// UnionErrorPolicy governs per-type failures in parallel mode.
type UnionErrorPolicy string

const (
	UnionErrorContinue UnionErrorPolicy = "continue"
	UnionErrorFail     UnionErrorPolicy = "fail"
)

// UnionSearchOptions tunes union fallback search over "<~A|B|C" style
// type lists. Thresholds may be set globally or per type.
type UnionSearchOptions struct {
	Mode          UnionSearchMode    `json:"mode,omitempty"`
	MinScore      float64            `json:"minScore,omitempty"`
	TypeMinScores map[string]float64 `json:"typeMinScores,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	ReturnAll     bool               `json:"returnAll,omitempty"`
	OnError       UnionErrorPolicy   `json:"onError,omitempty"`
	Debug         bool               `json:"debug,omitempty"`
}

// UnionSearchResult reports both the matches and how the fallback
// proceeded through the type list.
type UnionSearchResult struct {
	Results               []Projection `json:"results"`
	SearchedTypes         []string     `json:"searchedTypes"`
	SearchOrder           []string     `json:"searchOrder"`
	MatchedType           string       `json:"matchedType,omitempty"`
	FallbackTriggered     bool         `json:"fallbackTriggered"`
	AllTypesExhausted     bool         `json:"allTypesExhausted,omitempty"`
	BelowThresholdMatches []Projection `json:"belowThresholdMatches,omitempty"`
	Errors                []string     `json:"errors,omitempty"`
}

// EventFilter narrows listEvents. Event accepts the subscription
// pattern syntax. Limit keeps the most recent N after filtering.
type EventFilter struct {
	Event  string     `json:"event,omitempty"`
	Actor  string     `json:"actor,omitempty"`
	Object string     `json:"object,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
	Limit  int        `json:"limit,omitempty"`
}

// ReplayOptions re-invokes a handler over the filtered history in
// timestamp order.
type ReplayOptions struct {
	Event   string     `json:"event,omitempty"`
	Actor   string     `json:"actor,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Handler events.Handler
}

// ActionFilter narrows listActions.
type ActionFilter struct {
	Actor  string `json:"actor,omitempty"`
	Action string `json:"action,omitempty"`
	Status string `json:"status,omitempty"`
	Object string `json:"object,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// MigrateOptions selects the target schema version. Nil means the
// highest version provided; an explicit 0 rolls everything back.
type MigrateOptions struct {
	TargetVersion *int `json:"targetVersion,omitempty"`
}
