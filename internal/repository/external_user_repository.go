package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// ExternalUserRepository handles persistence for company maintainers.
type ExternalUserRepository interface {
	Create(ctx context.Context, user *domain.ExternalUser) error
	Update(ctx context.Context, user *domain.ExternalUser) error
	GetByID(ctx context.Context, id string) (*domain.ExternalUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.ExternalUser, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.ExternalUser, error)
}

type externalUserRepository struct {
	pool *pgxpool.Pool
}

// NewExternalUserRepository instantiates the repository.
func NewExternalUserRepository(pool *pgxpool.Pool) ExternalUserRepository {
	return &externalUserRepository{pool: pool}
}

func (r *externalUserRepository) Create(ctx context.Context, user *domain.ExternalUser) error {
	const query = `
        INSERT INTO external_users (company_id, name, email, password_hash, active_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		user.CompanyID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *externalUserRepository) Update(ctx context.Context, user *domain.ExternalUser) error {
	const query = `
        UPDATE external_users
        SET company_id=$1, name=$2, email=$3, password_hash=$4, active_flag=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		user.CompanyID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Active,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *externalUserRepository) GetByID(ctx context.Context, id string) (*domain.ExternalUser, error) {
	const query = `
        SELECT id, company_id, name, email, password_hash, active_flag, created_at, updated_at
        FROM external_users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *externalUserRepository) GetByEmail(ctx context.Context, email string) (*domain.ExternalUser, error) {
	const query = `
        SELECT id, company_id, name, email, password_hash, active_flag, created_at, updated_at
        FROM external_users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *externalUserRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ExternalUser, error) {
	var user domain.ExternalUser
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *externalUserRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.ExternalUser, error) {
	const query = `
        SELECT id, company_id, name, email, password_hash, active_flag, created_at, updated_at
        FROM external_users WHERE company_id=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExternalUser
	for rows.Next() {
		var user domain.ExternalUser
		if err := rows.Scan(
			&user.ID,
			&user.CompanyID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
