package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-access/internal/domain"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// ComplaintFilter captures listing parameters. A non-nil ComplainantID
// restricts results to complaints owned by that account.
type ComplaintFilter struct {
	ComplainantID *string
	Statuses      []domain.ComplaintStatus
	Limit         int
	Offset        int
}

// ComplaintRepository encapsulates complaint persistence. Status updates are
// compare-and-swap on updated_at: a concurrent writer that changed the row
// since it was read causes a StaleState error.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error)
	UpdateStatus(ctx context.Context, complaint *domain.Complaint, expectedUpdatedAt time.Time) error
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, complainant_id, subject_type, subject_id, category, title, details,
               status, handler_id, resolution_notes, created_at, updated_at, closed_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (complainant_id, subject_type, subject_id, category, title, details, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		complaint.ComplainantID,
		complaint.SubjectType,
		complaint.SubjectID,
		complaint.Category,
		complaint.Title,
		complaint.Details,
		complaint.Status,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id=$1`, complaintColumns)
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, id).Scan(complaintFields(&complaint)...); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ComplainantID != nil {
		args = append(args, *filter.ComplainantID)
		clauses = append(clauses, fmt.Sprintf("complainant_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	complaints, err := scanComplaints(rows)
	if err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

// UpdateStatus persists a transition guarded by the last-known updated_at.
func (r *complaintRepository) UpdateStatus(ctx context.Context, complaint *domain.Complaint, expectedUpdatedAt time.Time) error {
	const query = `
        UPDATE complaints SET status=$1, handler_id=$2, resolution_notes=$3, closed_at=$4, updated_at=NOW()
        WHERE id=$5 AND updated_at=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.Status,
		complaint.HandlerID,
		complaint.ResolutionNotes,
		complaint.ClosedAt,
		complaint.ID,
		expectedUpdatedAt,
	).Scan(&complaint.UpdatedAt)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	// Distinguish a lost race from a missing row.
	var exists bool
	if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM complaints WHERE id=$1)`, complaint.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if exists {
		return errorutil.NewStaleState("complaint was modified concurrently")
	}
	return pgx.ErrNoRows
}

func complaintFields(c *domain.Complaint) []any {
	return []any{
		&c.ID,
		&c.ComplainantID,
		&c.SubjectType,
		&c.SubjectID,
		&c.Category,
		&c.Title,
		&c.Details,
		&c.Status,
		&c.HandlerID,
		&c.ResolutionNotes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ClosedAt,
	}
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := rows.Scan(complaintFields(&complaint)...); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
