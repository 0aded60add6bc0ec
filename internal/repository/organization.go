package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
)

const organizationColumns = `id, name, types, active, created_at, updated_at`

type OrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) service.OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var (
		org   models.Organization
		types []string
	)
	if err := row.Scan(&org.ID, &org.Name, &types, &org.Active, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.Types = make([]models.OrgType, 0, len(types))
	for _, t := range types {
		org.Types = append(org.Types, models.OrgType(t))
	}
	return &org, nil
}

func orgTypeStrings(types []models.OrgType) []string {
	result := make([]string, 0, len(types))
	for _, t := range types {
		result = append(result, string(t))
	}
	return result
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, types, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query, org.Name, orgTypeStrings(org.Types), org.Active).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := scanOrganization(r.db.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("organization with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization by id: %w", err)
	}
	return org, nil
}

func (r *OrganizationRepository) List(ctx context.Context, page, pageSize int) ([]*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY name, id`
	var args []any
	if pageSize > 0 {
		args = append(args, pageSize, (max(page, 1)-1)*pageSize)
		query += " LIMIT $1 OFFSET $2"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error organization iteration: %w", err)
	}
	return orgs, nil
}

// Update применяет частичное изменение; nil поля сохраняют текущее значение
func (r *OrganizationRepository) Update(ctx context.Context, id uuid.UUID, update models.OrganizationUpdate) (*models.Organization, error) {
	var types []string
	if update.Types != nil {
		types = orgTypeStrings(update.Types)
	}
	query := `
		UPDATE organizations SET
			name = COALESCE($2, name),
			types = COALESCE($3, types),
			active = COALESCE($4, active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + organizationColumns + `;
	`
	org, err := scanOrganization(r.db.QueryRow(ctx, query, id, update.Name, types, update.Active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("organization with id %s not found for update: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}
