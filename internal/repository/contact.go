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

const contactColumns = `id, owner_id, name, phone, relationship, is_primary, created_at, updated_at`

type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) service.ContactRepository {
	return &ContactRepository{db: db}
}

func scanContact(row pgx.Row) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// lockOwner блокирует строку владельца до конца транзакции, сериализуя смену основного контакта
func lockOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE;`, ownerID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("contact owner %s: %w", ownerID, service.ErrNotFound)
		}
		return fmt.Errorf("failed to lock contact owner: %w", err)
	}
	return nil
}

// demotePrimary снимает признак основного с остальных контактов владельца
func demotePrimary(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, keep *uuid.UUID) error {
	query := `UPDATE emergency_contacts SET is_primary = FALSE, updated_at = NOW() WHERE owner_id = $1 AND is_primary`
	args := []any{ownerID}
	if keep != nil {
		query += " AND id <> $2"
		args = append(args, *keep)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to demote primary contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin contact tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if contact.IsPrimary {
		if err := lockOwner(ctx, tx, contact.OwnerID); err != nil {
			return err
		}
		if err := demotePrimary(ctx, tx, contact.OwnerID, nil); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO emergency_contacts (owner_id, name, phone, relationship, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at;
	`
	err = tx.QueryRow(ctx, query, contact.OwnerID, contact.Name, contact.Phone, contact.Relationship, contact.IsPrimary).
		Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit contact tx: %w", err)
	}
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error) {
	contact, err := scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM emergency_contacts WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact by id: %w", err)
	}
	return contact, nil
}

// ListByOwner возвращает контакты владельца, основной первым
func (r *ContactRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.EmergencyContact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+contactColumns+`
		FROM emergency_contacts
		WHERE owner_id = $1
		ORDER BY is_primary DESC, created_at, id;
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.EmergencyContact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error contact iteration: %w", err)
	}
	return contacts, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact *models.EmergencyContact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin contact tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if contact.IsPrimary {
		if err := lockOwner(ctx, tx, contact.OwnerID); err != nil {
			return err
		}
		if err := demotePrimary(ctx, tx, contact.OwnerID, &contact.ID); err != nil {
			return err
		}
	}

	query := `
		UPDATE emergency_contacts SET
			name = $2,
			phone = $3,
			relationship = $4,
			is_primary = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`
	err = tx.QueryRow(ctx, query, contact.ID, contact.Name, contact.Phone, contact.Relationship, contact.IsPrimary).
		Scan(&contact.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("contact with id %s not found for update: %w", contact.ID, service.ErrNotFound)
		}
		return fmt.Errorf("failed to update contact: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit contact tx: %w", err)
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM emergency_contacts WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("contact with id %s not found for delete: %w", id, service.ErrNotFound)
	}
	return nil
}
