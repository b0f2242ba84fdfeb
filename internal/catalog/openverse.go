package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/persistence"
)

// ErrNotFound is returned when the catalog has no entry for the given id.
var ErrNotFound = errors.New("catalog entry not found")

const (
	authTokenCacheKey = "openverse_auth_token"
	// The upstream token lasts an hour; refresh a little early.
	authTokenCacheTTL = 55 * time.Minute
	defaultPageSize   = 21
)

// SearchOptions narrows a catalog search.
type SearchOptions struct {
	License     string
	LicenseType string
	Categories  string
	PageSize    int
	Page        int
}

// Client is the media catalog surface consumed by the search service.
type Client interface {
	SearchImages(ctx context.Context, query string, opts SearchOptions) (*domain.MediaPage, error)
	SearchAudio(ctx context.Context, query string, opts SearchOptions) (*domain.MediaPage, error)
	GetImageDetail(ctx context.Context, imageID string) (*domain.MediaItem, error)
	GetAudioDetail(ctx context.Context, audioID string) (*domain.MediaItem, error)
}

// OpenVerseClient talks to an OpenVerse-compatible catalog API using
// client-credential auth. The auth token is cached between calls.
type OpenVerseClient struct {
	baseURL    string
	clientID   string
	secret     string
	maxRetries int
	httpClient *http.Client
	cache      persistence.Cache
	logger     *zap.Logger
}

// NewOpenVerseClient builds a catalog client from configuration.
func NewOpenVerseClient(cfg config.OpenVerseConfig, cache persistence.Cache, logger *zap.Logger) *OpenVerseClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenVerseClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *OpenVerseClient) authToken(ctx context.Context) (string, error) {
	var cached string
	if err := c.cache.GetJSON(ctx, authTokenCacheKey, &cached); err == nil && cached != "" {
		return cached, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/auth_tokens/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("fetch auth token: %w", err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode auth token: %w", err)
	}
	if err := c.cache.SetJSON(ctx, authTokenCacheKey, token.AccessToken, authTokenCacheTTL); err != nil {
		c.logger.Warn("failed to cache catalog auth token", zap.Error(err))
	}
	return token.AccessToken, nil
}

// do executes a request with retries and exponential backoff with jitter.
// 4xx responses are not retried.
func (c *OpenVerseClient) do(req *http.Request) ([]byte, error) {
	var lastErr error
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			backoff += time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			// The previous attempt drained the body; rewind it or the
			// resend goes out empty.
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("catalog request rejected: %s", resp.Status)
		default:
			lastErr = fmt.Errorf("catalog request failed: %s", resp.Status)
			c.logger.Warn("catalog request failed, retrying",
				zap.String("url", req.URL.Path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
		}
	}
	return nil, lastErr
}

func (c *OpenVerseClient) getJSON(ctx context.Context, path string, dest any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

func searchQuery(query string, opts SearchOptions) string {
	values := url.Values{}
	values.Set("q", query)
	if opts.License != "" {
		values.Set("license", opts.License)
	}
	if opts.LicenseType != "" {
		values.Set("license_type", opts.LicenseType)
	}
	if opts.Categories != "" {
		values.Set("categories", opts.Categories)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	values.Set("page_size", strconv.Itoa(pageSize))
	values.Set("page", strconv.Itoa(page))
	return values.Encode()
}

type searchResponse struct {
	ResultCount int            `json:"result_count"`
	PageCount   int            `json:"page_count"`
	PageSize    int            `json:"page_size"`
	Page        int            `json:"page"`
	Results     []catalogEntry `json:"results"`
}

type catalogEntry struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Creator           string   `json:"creator"`
	CreatorURL        string   `json:"creator_url"`
	URL               string   `json:"url"`
	Thumbnail         string   `json:"thumbnail"`
	Provider          string   `json:"provider"`
	Source            string   `json:"source"`
	License           string   `json:"license"`
	LicenseVersion    string   `json:"license_version"`
	LicenseURL        string   `json:"license_url"`
	Attribution       string   `json:"attribution"`
	Category          string   `json:"category"`
	Genres            []string `json:"genres"`
	FileSize          int64    `json:"filesize"`
	FileType          string   `json:"filetype"`
	ForeignLandingURL string   `json:"foreign_landing_url"`
	RelatedURL        string   `json:"related_url"`
	IndexedOn         string   `json:"indexed_on"`
}

func (e catalogEntry) toMediaItem(mediaType domain.SearchType) domain.MediaItem {
	indexedOn, _ := time.Parse(time.RFC3339, e.IndexedOn)
	return domain.MediaItem{
		SearchID:          e.ID,
		Type:              mediaType,
		Title:             e.Title,
		Creator:           e.Creator,
		CreatorURL:        e.CreatorURL,
		URL:               e.URL,
		Thumbnail:         e.Thumbnail,
		Provider:          e.Provider,
		Source:            e.Source,
		License:           e.License,
		LicenseVersion:    e.LicenseVersion,
		LicenseURL:        e.LicenseURL,
		Attribution:       e.Attribution,
		Category:          e.Category,
		Genres:            e.Genres,
		FileSize:          e.FileSize,
		FileType:          e.FileType,
		ForeignLandingURL: e.ForeignLandingURL,
		RelatedURL:        e.RelatedURL,
		IndexedOn:         indexedOn,
	}
}

func (c *OpenVerseClient) search(ctx context.Context, path string, mediaType domain.SearchType, query string, opts SearchOptions) (*domain.MediaPage, error) {
	var resp searchResponse
	if err := c.getJSON(ctx, path+"?"+searchQuery(query, opts), &resp); err != nil {
		return nil, err
	}

	results := make([]domain.MediaItem, 0, len(resp.Results))
	for _, entry := range resp.Results {
		results = append(results, entry.toMediaItem(mediaType))
	}
	return &domain.MediaPage{
		Page:         resp.Page,
		PageSize:     resp.PageSize,
		TotalPages:   resp.PageCount,
		TotalResults: resp.ResultCount,
		Results:      results,
	}, nil
}

// SearchImages queries the image catalog.
func (c *OpenVerseClient) SearchImages(ctx context.Context, query string, opts SearchOptions) (*domain.MediaPage, error) {
	return c.search(ctx, "/v1/images/", domain.SearchTypeImage, query, opts)
}

// SearchAudio queries the audio catalog.
func (c *OpenVerseClient) SearchAudio(ctx context.Context, query string, opts SearchOptions) (*domain.MediaPage, error) {
	return c.search(ctx, "/v1/audio/", domain.SearchTypeAudio, query, opts)
}

// GetImageDetail fetches a single image entry by id.
func (c *OpenVerseClient) GetImageDetail(ctx context.Context, imageID string) (*domain.MediaItem, error) {
	var entry catalogEntry
	if err := c.getJSON(ctx, "/v1/images/"+url.PathEscape(imageID)+"/", &entry); err != nil {
		return nil, err
	}
	item := entry.toMediaItem(domain.SearchTypeImage)
	return &item, nil
}

// GetAudioDetail fetches a single audio entry by id.
func (c *OpenVerseClient) GetAudioDetail(ctx context.Context, audioID string) (*domain.MediaItem, error) {
	var entry catalogEntry
	if err := c.getJSON(ctx, "/v1/audio/"+url.PathEscape(audioID)+"/", &entry); err != nil {
		return nil, err
	}
	item := entry.toMediaItem(domain.SearchTypeAudio)
	return &item, nil
}
