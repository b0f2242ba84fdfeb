package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// MediaSearchRequest carries catalog search query parameters.
type MediaSearchRequest struct {
	Query       string `query:"q"`
	License     string `query:"license"`
	LicenseType string `query:"license_type"`
	Categories  string `query:"categories"`
	PageSize    int    `query:"page_size"`
	Page        int    `query:"page"`
}

// Validate applies the search validation rules.
func (r MediaSearchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.PageSize, validation.Min(0), validation.Max(50)),
		validation.Field(&r.Page, validation.Min(0)),
	)
}

// AddHistoryRequest payload for saving a search-history entry.
type AddHistoryRequest struct {
	SearchID   string `json:"search_id"`
	SearchType string `json:"search_type"`
}

// Validate applies the add-history validation rules.
func (r AddHistoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SearchID, validation.Required),
		validation.Field(&r.SearchType, validation.Required, validation.In("IMAGE", "AUDIO")),
	)
}

// HistoryListRequest carries history listing filters.
type HistoryListRequest struct {
	Title     string `query:"title"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	Email     string `query:"email"`
	Status    string `query:"status"`
	Ascending bool   `query:"ascending"`
	Page      int    `query:"page"`
}
