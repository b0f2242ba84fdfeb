package repository

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/media-locator/internal/domain"
)

const historyPageSize = 20

// SearchHistoryRepository defines persistence access for search history rows.
type SearchHistoryRepository interface {
	Create(ctx context.Context, history *domain.SearchHistory) error
	Exists(ctx context.Context, accountID, searchID string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.SearchHistory, error)
	SoftDelete(ctx context.Context, id, accountID, modifiedBy string) error
	ListByAccount(ctx context.Context, accountID string, filter domain.HistoryFilter) (*domain.HistoryPage, error)
	ListAll(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryPage, error)
}

type searchHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewSearchHistoryRepository returns a Postgres-backed implementation.
func NewSearchHistoryRepository(pool *pgxpool.Pool) SearchHistoryRepository {
	return &searchHistoryRepository{pool: pool}
}

const historyColumns = `
        id, account_id, search_id, search_type, status, title, creator, creator_url,
        url, thumbnail, provider, source, license, license_version, license_url,
        attribution, category, genres, file_size, file_type, foreign_landing_url,
        related_url, indexed_on, created_at, created_by, modified_at, modified_by`

func (r *searchHistoryRepository) Create(ctx context.Context, history *domain.SearchHistory) error {
	const query = `
        INSERT INTO search_histories (account_id, search_id, search_type, status, title,
                creator, creator_url, url, thumbnail, provider, source, license,
                license_version, license_url, attribution, category, genres, file_size,
                file_type, foreign_landing_url, related_url, indexed_on, created_by, modified_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
        RETURNING id, created_at, modified_at`

	return r.pool.QueryRow(ctx, query,
		history.AccountID,
		history.SearchID,
		history.SearchType,
		history.Status,
		history.Title,
		history.Creator,
		history.CreatorURL,
		history.URL,
		history.Thumbnail,
		history.Provider,
		history.Source,
		history.License,
		history.LicenseVersion,
		history.LicenseURL,
		history.Attribution,
		history.Category,
		history.Genres,
		history.FileSize,
		history.FileType,
		history.ForeignLandingURL,
		history.RelatedURL,
		history.IndexedOn,
		history.CreatedBy,
		history.ModifiedBy,
	).Scan(&history.ID, &history.CreatedAt, &history.ModifiedAt)
}

func (r *searchHistoryRepository) Exists(ctx context.Context, accountID, searchID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM search_histories WHERE account_id=$1 AND search_id=$2)`,
		accountID, searchID,
	).Scan(&exists)
	return exists, err
}

func (r *searchHistoryRepository) GetByID(ctx context.Context, id string) (*domain.SearchHistory, error) {
	query := `SELECT` + historyColumns + ` FROM search_histories WHERE id=$1`
	return r.scanHistory(r.pool.QueryRow(ctx, query, id))
}

func (r *searchHistoryRepository) SoftDelete(ctx context.Context, id, accountID, modifiedBy string) error {
	const query = `
        UPDATE search_histories SET status=$1, modified_at=NOW(), modified_by=$2
        WHERE id=$3 AND account_id=$4 AND status=$5`

	cmd, err := r.pool.Exec(ctx, query,
		domain.HistoryStatusDeleted, modifiedBy, id, accountID, domain.HistoryStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *searchHistoryRepository) ListByAccount(ctx context.Context, accountID string, filter domain.HistoryFilter) (*domain.HistoryPage, error) {
	where := []string{"account_id=$1", "status=$2"}
	args := []any{accountID, domain.HistoryStatusActive}
	where, args = appendCommonFilters(where, args, filter)
	return r.list(ctx, where, args, filter)
}

func (r *searchHistoryRepository) ListAll(ctx context.Context, filter domain.HistoryFilter) (*domain.HistoryPage, error) {
	status := filter.Status
	if status == "" {
		status = domain.HistoryStatusActive
	}
	where := []string{"status=$1"}
	args := []any{status}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		where = append(where, fmt.Sprintf("created_by ILIKE $%d", len(args)))
	}
	where, args = appendCommonFilters(where, args, filter)
	return r.list(ctx, where, args, filter)
}

func appendCommonFilters(where []string, args []any, filter domain.HistoryFilter) ([]string, []any) {
	if filter.Title != "" {
		args = append(args, "%"+filter.Title+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return where, args
}

func (r *searchHistoryRepository) list(ctx context.Context, where []string, args []any, filter domain.HistoryFilter) (*domain.HistoryPage, error) {
	condition := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM search_histories WHERE ` + condition
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, historyPageSize, (page-1)*historyPageSize)
	query := fmt.Sprintf(`SELECT %s FROM search_histories WHERE %s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		historyColumns, condition, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.SearchHistory, 0, historyPageSize)
	for rows.Next() {
		history, err := r.scanHistory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *history)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.HistoryPage{
		Page:         page,
		PageSize:     historyPageSize,
		TotalPages:   int(math.Ceil(float64(total) / float64(historyPageSize))),
		TotalResults: total,
		Results:      results,
	}, nil
}

func (r *searchHistoryRepository) scanHistory(row pgx.Row) (*domain.SearchHistory, error) {
	var history domain.SearchHistory
	if err := row.Scan(
		&history.ID,
		&history.AccountID,
		&history.SearchID,
		&history.SearchType,
		&history.Status,
		&history.Title,
		&history.Creator,
		&history.CreatorURL,
		&history.URL,
		&history.Thumbnail,
		&history.Provider,
		&history.Source,
		&history.License,
		&history.LicenseVersion,
		&history.LicenseURL,
		&history.Attribution,
		&history.Category,
		&history.Genres,
		&history.FileSize,
		&history.FileType,
		&history.ForeignLandingURL,
		&history.RelatedURL,
		&history.IndexedOn,
		&history.CreatedAt,
		&history.CreatedBy,
		&history.ModifiedAt,
		&history.ModifiedBy,
	); err != nil {
		return nil, err
	}
	return &history, nil
}
