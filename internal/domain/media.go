package domain

import "time"

// SearchType differentiates media categories.
type SearchType string

const (
	SearchTypeImage SearchType = "IMAGE"
	SearchTypeAudio SearchType = "AUDIO"
)

// MediaItem is a normalized catalog entry (image or audio).
type MediaItem struct {
	SearchID          string     `json:"search_id"`
	Type              SearchType `json:"type"`
	Title             string     `json:"title"`
	Creator           string     `json:"creator"`
	CreatorURL        string     `json:"creator_url"`
	URL               string     `json:"url"`
	Thumbnail         string     `json:"thumbnail"`
	Provider          string     `json:"provider"`
	Source            string     `json:"source"`
	License           string     `json:"license"`
	LicenseVersion    string     `json:"license_version"`
	LicenseURL        string     `json:"license_url"`
	Attribution       string     `json:"attribution"`
	Category          string     `json:"category"`
	Genres            []string   `json:"genres,omitempty"`
	FileSize          int64      `json:"file_size"`
	FileType          string     `json:"file_type"`
	ForeignLandingURL string     `json:"foreign_landing_url"`
	RelatedURL        string     `json:"related_url"`
	IndexedOn         time.Time  `json:"indexed_on"`
}

// MediaPage is a paginated catalog search response.
type MediaPage struct {
	Page         int         `json:"page"`
	PageSize     int         `json:"page_size"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []MediaItem `json:"results"`
}
