package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// ErrStaleReport is returned when an optimistic update loses the race: the
// row exists but its updated_at no longer matches the value read.
var ErrStaleReport = fmt.Errorf("report was modified concurrently")

// ReportFilter captures listing parameters.
type ReportFilter struct {
	ReporterID         *string
	DepartmentID       *string
	InternalAssigneeID *string
	ExternalAssigneeID *string
	Statuses           []domain.ReportStatus
	Categories         []string
	Limit              int
	Offset             int
}

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	// Update applies the report state guarded by the updated_at value the
	// caller read. ErrStaleReport signals a lost optimistic race,
	// pgx.ErrNoRows an unknown id.
	Update(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const reportColumns = `id, reporter_user_id, department_id, title, description, category,
               latitude, longitude, address, photos, is_anonymous, status, rejection_reason,
               internal_assignee_id, external_assignee_id, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (reporter_user_id, department_id, title, description, category,
            latitude, longitude, address, photos, is_anonymous, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		report.ReporterID,
		report.DepartmentID,
		report.Title,
		report.Description,
		report.Category,
		report.Location.Latitude,
		report.Location.Longitude,
		report.Location.Address,
		report.Photos,
		report.IsAnonymous,
		report.Status,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *reportRepository) Update(ctx context.Context, report *domain.Report) error {
	const query = `
        UPDATE reports SET status=$1, rejection_reason=$2, internal_assignee_id=$3,
            external_assignee_id=$4, department_id=$5, address=$6, updated_at=NOW()
        WHERE id=$7 AND updated_at=$8
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		report.Status,
		report.RejectionReason,
		report.InternalAssigneeID,
		report.ExternalAssigneeID,
		report.DepartmentID,
		report.Location.Address,
		report.ID,
		report.UpdatedAt,
	).Scan(&report.UpdatedAt)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	// no row matched: distinguish a stale write from an unknown id
	var exists bool
	if checkErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reports WHERE id=$1)`, report.ID,
	).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if exists {
		return ErrStaleReport
	}
	return pgx.ErrNoRows
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id=$1`, reportColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanReport(row)
}

func (r *reportRepository) ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	base := fmt.Sprintf(`SELECT %s FROM reports`, reportColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_user_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.InternalAssigneeID != nil {
		args = append(args, *filter.InternalAssigneeID)
		clauses = append(clauses, fmt.Sprintf("internal_assignee_id=$%d", len(args)))
	}
	if filter.ExternalAssigneeID != nil {
		args = append(args, *filter.ExternalAssigneeID)
		clauses = append(clauses, fmt.Sprintf("external_assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.DepartmentID,
		&report.Title,
		&report.Description,
		&report.Category,
		&report.Location.Latitude,
		&report.Location.Longitude,
		&report.Location.Address,
		&report.Photos,
		&report.IsAnonymous,
		&report.Status,
		&report.RejectionReason,
		&report.InternalAssigneeID,
		&report.ExternalAssigneeID,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}
