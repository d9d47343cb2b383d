package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/faneasy/faneasy-server/internal/models"
)

// ========== Page Methods ==========

// GetPage gets a site's page document
func (s *PostgresStore) GetPage(ctx context.Context, siteID string) (*models.PageDocument, error) {
	query := `
        SELECT site_id, created_at, updated_at, blocks
        FROM pages
        WHERE site_id = $1`

	page := &models.PageDocument{}
	err := s.getDB().QueryRowContext(ctx, query, siteID).Scan(
		&page.SiteID, &page.CreatedAt, &page.UpdatedAt, &page.Blocks,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return page, err
}

// SavePage inserts or replaces a site's page document
func (s *PostgresStore) SavePage(ctx context.Context, page *models.PageDocument) error {
	now := time.Now()
	page.UpdatedAt = now
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}

	query := `
        INSERT INTO pages (site_id, created_at, updated_at, blocks)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (site_id) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            blocks = EXCLUDED.blocks`

	_, err := s.getDB().ExecContext(ctx, query,
		page.SiteID, page.CreatedAt, page.UpdatedAt, page.Blocks,
	)

	if err != nil && strings.Contains(err.Error(), "foreign key") {
		return ErrInvalidData
	}

	return err
}

// DeletePage removes a site's page document. Only invoked as part of site
// deletion; pages are never deleted independently of their site.
func (s *PostgresStore) DeletePage(ctx context.Context, siteID string) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM pages WHERE site_id = $1`, siteID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
