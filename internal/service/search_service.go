package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/catalog"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/persistence"
	"github.com/spec-kit/media-locator/internal/repository"
)

const detailCacheTTL = 24 * time.Hour

// SearchService proxies catalog searches, caches details, and records
// per-user search history.
type SearchService struct {
	catalog catalog.Client
	cache   persistence.Cache
	history repository.SearchHistoryRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewSearchService builds the service.
func NewSearchService(catalogClient catalog.Client, cache persistence.Cache, history repository.SearchHistoryRepository, logger *zap.Logger) *SearchService {
	return &SearchService{
		catalog: catalogClient,
		cache:   cache,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// SearchImages queries the image catalog.
func (s *SearchService) SearchImages(ctx context.Context, query string, opts catalog.SearchOptions) (*domain.MediaPage, error) {
	return s.catalog.SearchImages(ctx, query, opts)
}

// SearchAudio queries the audio catalog.
func (s *SearchService) SearchAudio(ctx context.Context, query string, opts catalog.SearchOptions) (*domain.MediaPage, error) {
	return s.catalog.SearchAudio(ctx, query, opts)
}

// GetImageDetail fetches image details, served from cache when possible.
func (s *SearchService) GetImageDetail(ctx context.Context, imageID string) (*domain.MediaItem, error) {
	return s.cachedDetail(ctx, "image_detail_"+imageID, func() (*domain.MediaItem, error) {
		return s.catalog.GetImageDetail(ctx, imageID)
	})
}

// GetAudioDetail fetches audio details, served from cache when possible.
func (s *SearchService) GetAudioDetail(ctx context.Context, audioID string) (*domain.MediaItem, error) {
	return s.cachedDetail(ctx, "audio_detail_"+audioID, func() (*domain.MediaItem, error) {
		return s.catalog.GetAudioDetail(ctx, audioID)
	})
}

func (s *SearchService) cachedDetail(ctx context.Context, key string, fetch func() (*domain.MediaItem, error)) (*domain.MediaItem, error) {
	var cached domain.MediaItem
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil && cached.SearchID != "" {
		return &cached, nil
	}

	item, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, item, detailCacheTTL); err != nil {
		s.logger.Warn("failed to cache media detail", zap.String("key", key), zap.Error(err))
	}
	return item, nil
}

// DailyMedia returns a deterministic daily selection: one image and one audio
// picked from the catalog using the date as the query seed, cached until the
// day rolls over.
func (s *SearchService) DailyMedia(ctx context.Context) ([]domain.MediaItem, error) {
	day := s.now().UTC().Format("2006-01-02")
	key := "daily_media_" + day

	var cached []domain.MediaItem
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	// Rotate through a small set of evergreen themes by day of month.
	themes := []string{"nature", "music", "city", "ocean", "mountains", "space", "animals"}
	theme := themes[s.now().UTC().Day()%len(themes)]

	picks := make([]domain.MediaItem, 0, 2)
	images, err := s.catalog.SearchImages(ctx, theme, catalog.SearchOptions{PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(images.Results) > 0 {
		picks = append(picks, images.Results[0])
	}
	audio, err := s.catalog.SearchAudio(ctx, theme, catalog.SearchOptions{PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(audio.Results) > 0 {
		picks = append(picks, audio.Results[0])
	}

	if err := s.cache.SetJSON(ctx, key, picks, 24*time.Hour); err != nil {
		s.logger.Warn("failed to cache daily media", zap.Error(err))
	}
	return picks, nil
}

// AddSearchHistory snapshots a media item into the caller's history. Saving
// the same item twice is reported as success without a duplicate row.
func (s *SearchService) AddSearchHistory(ctx context.Context, accountID, accountEmail, searchID string, searchType domain.SearchType) (domain.Result, error) {
	var (
		item *domain.MediaItem
		err  error
	)
	switch searchType {
	case domain.SearchTypeImage:
		item, err = s.GetImageDetail(ctx, searchID)
	case domain.SearchTypeAudio:
		item, err = s.GetAudioDetail(ctx, searchID)
	default:
		return domain.Failure("Invalid search type", "Search type is not valid"), nil
	}
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return domain.Failure("Media details not found", "Media could not be retrieved"), nil
		}
		return domain.Result{}, err
	}

	exists, err := s.history.Exists(ctx, accountID, searchID)
	if err != nil {
		return domain.Result{}, err
	}
	if exists {
		return domain.Success("Search history already saved"), nil
	}

	history := &domain.SearchHistory{
		AccountID:         accountID,
		SearchID:          searchID,
		SearchType:        searchType,
		Status:            domain.HistoryStatusActive,
		Title:             item.Title,
		Creator:           item.Creator,
		CreatorURL:        item.CreatorURL,
		URL:               item.URL,
		Thumbnail:         item.Thumbnail,
		Provider:          item.Provider,
		Source:            item.Source,
		License:           item.License,
		LicenseVersion:    item.LicenseVersion,
		LicenseURL:        item.LicenseURL,
		Attribution:       item.Attribution,
		Category:          item.Category,
		Genres:            strings.Join(item.Genres, "|"),
		FileSize:          item.FileSize,
		FileType:          item.FileType,
		ForeignLandingURL: item.ForeignLandingURL,
		RelatedURL:        item.RelatedURL,
		IndexedOn:         item.IndexedOn,
		CreatedBy:         accountEmail,
		ModifiedBy:        accountEmail,
	}
	if err := s.history.Create(ctx, history); err != nil {
		return domain.Result{}, err
	}
	return domain.Success("Search history added successfully"), nil
}

// DeleteSearchHistory soft-deletes a history row owned by the caller.
func (s *SearchService) DeleteSearchHistory(ctx context.Context, historyID, accountID, accountEmail string) (domain.Result, error) {
	err := s.history.SoftDelete(ctx, historyID, accountID, accountEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Failure("Search history not found", "Search history could not be found"), nil
	}
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Success("Search history deleted successfully"), nil
}

// UsersSearchHistory lists the caller's active history. Without an explicit
// date range the listing covers the last 30 days.
func (s *SearchService) UsersSearchHistory(ctx context.Context, accountID string, filter domain.HistoryFilter) (*domain.HistoryPage, error) {
	if filter.StartDate == nil && filter.EndDate == nil {
		start := s.now().UTC().AddDate(0, 0, -30)
		filter.StartDate = &start
	}
	return s.history.ListByAccount(ctx, accountID, filter)
}

// AdminSearchHistory lists history across accounts with admin-only filters.
func (s *SearchService) AdminSearchHistory(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryPage, error) {
	return s.history.ListAll(ctx, filter)
}
