package storage

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/models"
)

// ========== Activity Methods ==========

// CreateActivityEntry appends an activity log entry
func (s *PostgresStore) CreateActivityEntry(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO activity_log (
            id, created_at, type, user_id, user_name, user_email,
            action, target, subdomain, details
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.Type, entry.UserID, entry.UserName,
		entry.UserEmail, entry.Action, entry.Target, entry.Subdomain,
		entry.Details,
	)

	return err
}

// ListActivity lists activity entries, newest first
func (s *PostgresStore) ListActivity(ctx context.Context, filters ActivityFilters, limit, offset int) ([]*models.ActivityEntry, int64, error) {
	where := []string{}
	args := []interface{}{}

	if filters.Subdomain != nil {
		args = append(args, *filters.Subdomain)
		where = append(where, `subdomain = $`+itoa(len(args)))
	}
	if filters.Type != nil {
		args = append(args, *filters.Type)
		where = append(where, `type = $`+itoa(len(args)))
	}
	if filters.UserID != nil {
		args = append(args, *filters.UserID)
		where = append(where, `user_id = $`+itoa(len(args)))
	}
	if filters.StartTime != nil {
		args = append(args, *filters.StartTime)
		where = append(where, `created_at >= $`+itoa(len(args)))
	}
	if filters.EndTime != nil {
		args = append(args, *filters.EndTime)
		where = append(where, `created_at <= $`+itoa(len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, type, user_id, user_name, user_email,
               action, target, subdomain, details
        FROM activity_log` + clause + `
        ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.ActivityEntry
	for rows.Next() {
		entry := &models.ActivityEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.CreatedAt, &entry.Type, &entry.UserID,
			&entry.UserName, &entry.UserEmail, &entry.Action, &entry.Target,
			&entry.Subdomain, &entry.Details,
		); err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	return entries, total, rows.Err()
}
