package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/faneasy/faneasy-server/internal/models"
)

// ========== Site Methods ==========

// CreateSite creates a new site
func (s *PostgresStore) CreateSite(ctx context.Context, site *models.Site) error {
	now := time.Now()
	site.CreatedAt = now
	site.UpdatedAt = now

	query := `
        INSERT INTO sites (
            id, created_at, updated_at, name, parent_site_id, owner_id,
            admin_ids, is_active, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		site.ID, site.CreatedAt, site.UpdatedAt, site.Name, site.ParentSiteID,
		site.OwnerID, site.AdminIDs, site.IsActive, site.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetSite gets a site by slug
func (s *PostgresStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	query := `
        SELECT id, created_at, updated_at, name, parent_site_id, owner_id,
               admin_ids, is_active, settings
        FROM sites
        WHERE id = $1`

	site := &models.Site{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&site.ID, &site.CreatedAt, &site.UpdatedAt, &site.Name,
		&site.ParentSiteID, &site.OwnerID, &site.AdminIDs,
		&site.IsActive, &site.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return site, err
}

// UpdateSite updates a site
func (s *PostgresStore) UpdateSite(ctx context.Context, site *models.Site) error {
	site.UpdatedAt = time.Now()

	query := `
        UPDATE sites SET
            updated_at = $2, name = $3, parent_site_id = $4, owner_id = $5,
            admin_ids = $6, is_active = $7, settings = $8
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		site.ID, site.UpdatedAt, site.Name, site.ParentSiteID, site.OwnerID,
		site.AdminIDs, site.IsActive, site.Settings,
	)
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

// DeleteSite deletes a site and its page document
func (s *PostgresStore) DeleteSite(ctx context.Context, id string) error {
	if _, err := s.getDB().ExecContext(ctx, `DELETE FROM pages WHERE site_id = $1`, id); err != nil {
		return err
	}

	result, err := s.getDB().ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id)
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

// ListSites lists sites, optionally filtered by parent
func (s *PostgresStore) ListSites(ctx context.Context, parentID *string, limit, offset int) ([]*models.Site, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM sites`
	listQuery := `
        SELECT id, created_at, updated_at, name, parent_site_id, owner_id,
               admin_ids, is_active, settings
        FROM sites`

	args := []interface{}{}
	if parentID != nil {
		countQuery += ` WHERE parent_site_id = $1`
		listQuery += ` WHERE parent_site_id = $1`
		args = append(args, *parentID)
	}

	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sites []*models.Site
	for rows.Next() {
		site := &models.Site{}
		if err := rows.Scan(
			&site.ID, &site.CreatedAt, &site.UpdatedAt, &site.Name,
			&site.ParentSiteID, &site.OwnerID, &site.AdminIDs,
			&site.IsActive, &site.Settings,
		); err != nil {
			return nil, 0, err
		}
		sites = append(sites, site)
	}

	return sites, total, rows.Err()
}

// ListSiteSlugs returns every registered site slug. The slug registry
// caches this set for the resolver.
func (s *PostgresStore) ListSiteSlugs(ctx context.Context) ([]string, error) {
	rows, err := s.getDB().QueryContext(ctx, `SELECT id FROM sites WHERE is_active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}

	return slugs, rows.Err()
}
