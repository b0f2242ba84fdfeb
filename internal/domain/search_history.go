package domain

import "time"

// HistoryStatus marks a search-history row as visible or soft-deleted.
type HistoryStatus string

const (
	HistoryStatusActive  HistoryStatus = "ACTIVE"
	HistoryStatusDeleted HistoryStatus = "DELETED"
)

// SearchHistory is a per-user snapshot of a media item the user looked up.
type SearchHistory struct {
	ID         string
	AccountID  string
	SearchID   string
	SearchType SearchType
	Status     HistoryStatus

	Title             string
	Creator           string
	CreatorURL        string
	URL               string
	Thumbnail         string
	Provider          string
	Source            string
	License           string
	LicenseVersion    string
	LicenseURL        string
	Attribution       string
	Category          string
	Genres            string
	FileSize          int64
	FileType          string
	ForeignLandingURL string
	RelatedURL        string
	IndexedOn         time.Time

	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt time.Time
	ModifiedBy string
}

// HistoryFilter narrows search-history listings.
type HistoryFilter struct {
	Title     string
	StartDate *time.Time
	EndDate   *time.Time
	// Email filters by creator email; admin listings only.
	Email string
	// Status filters by row status; admin listings only, defaults to active.
	Status    HistoryStatus
	Ascending bool
	Page      int
}

// HistoryPage is a paginated history listing.
type HistoryPage struct {
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
	Results      []SearchHistory `json:"results"`
}
