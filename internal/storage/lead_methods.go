package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/models"
)

// ========== Lead Methods ==========

const leadColumns = `id, created_at, updated_at, owner_id, parent_influencer_id,
               name, email, phone, message, plan, status`

func scanLead(row interface{ Scan(dest ...interface{}) error }) (*models.Lead, error) {
	lead := &models.Lead{}
	err := row.Scan(
		&lead.ID, &lead.CreatedAt, &lead.UpdatedAt, &lead.OwnerID,
		&lead.ParentInfluencerID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Message, &lead.Plan, &lead.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return lead, err
}

// CreateLead creates a new lead
func (s *PostgresStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}

	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if lead.Status == "" {
		lead.Status = models.LeadStatusPending
	}

	query := `
        INSERT INTO leads (
            id, created_at, updated_at, owner_id, parent_influencer_id,
            name, email, phone, message, plan, status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		lead.ID, lead.CreatedAt, lead.UpdatedAt, lead.OwnerID,
		lead.ParentInfluencerID, lead.Name, lead.Email, lead.Phone,
		lead.Message, lead.Plan, lead.Status,
	)

	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicateKey
	}

	return err
}

// GetLead gets a lead by ID
func (s *PostgresStore) GetLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(s.getDB().QueryRowContext(ctx, query, id))
}

// UpdateLeadStatus advances a lead's handling state. Leads carry no other
// mutable fields and are never deleted.
func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) error {
	if !status.Valid() {
		return ErrInvalidData
	}

	result, err := s.getDB().ExecContext(ctx,
		`UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now(),
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

// ListLeads lists leads with scope filters
func (s *PostgresStore) ListLeads(ctx context.Context, filters LeadFilters, limit, offset int) ([]*models.Lead, int64, error) {
	where := []string{}
	args := []interface{}{}

	if filters.OwnerID != nil {
		args = append(args, *filters.OwnerID)
		where = append(where, `owner_id = $`+itoa(len(args)))
	}
	if filters.ParentID != nil {
		args = append(args, *filters.ParentID)
		n := itoa(len(args))
		where = append(where, `(owner_id = $`+n+` OR parent_influencer_id = $`+n+`)`)
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		where = append(where, `status = $`+itoa(len(args)))
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
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + clause +
		` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	return leads, total, rows.Err()
}
