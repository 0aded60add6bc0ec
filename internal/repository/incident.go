package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rindwa/rindwa_api/internal/models"
	"github.com/rindwa/rindwa_api/internal/service"
)

const incidentColumns = `
	id,
	title,
	description,
	category,
	status,
	reporter_id,
	address,
	latitude,
	longitude,
	media_urls,
	verification_count,
	verified_by,
	verified_at,
	resolved_by,
	resolved_at,
	created_at,
	updated_at`

type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &IncidentRepository{db: db}
}

// scanIncident читает строку в порядке incidentColumns
func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		incident  models.Incident
		category  string
		status    string
		address   *string
		latitude  *float64
		longitude *float64
	)
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&category,
		&status,
		&incident.ReporterID,
		&address,
		&latitude,
		&longitude,
		&incident.MediaURLs,
		&incident.VerificationCount,
		&incident.VerifiedBy,
		&incident.VerifiedAt,
		&incident.ResolvedBy,
		&incident.ResolvedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	incident.Category = models.Category(category)
	incident.Status = models.Status(status)
	if address != nil || latitude != nil || longitude != nil {
		incident.Location = &models.Location{Latitude: latitude, Longitude: longitude}
		if address != nil {
			incident.Location.Address = *address
		}
	}
	return &incident, nil
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	var (
		address   *string
		latitude  *float64
		longitude *float64
	)
	if loc := incident.Location; loc != nil {
		if loc.Address != "" {
			address = &loc.Address
		}
		latitude, longitude = loc.Latitude, loc.Longitude
	}
	mediaURLs := incident.MediaURLs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}

	query := `
		INSERT INTO incidents (title, description, category, status, reporter_id, address, latitude, longitude, media_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, verification_count, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		string(incident.Category),
		string(incident.Status),
		incident.ReporterID,
		address,
		latitude,
		longitude,
		mediaURLs,
	).Scan(&incident.ID, &incident.VerificationCount, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		if isPgError(err, pgerrcode.ForeignKeyViolation) {
			return fmt.Errorf("reporter %s: %w", incident.ReporterID, service.ErrNotFound)
		}
		return fmt.Errorf("failed to create incident: %w", err)
	}
	incident.MediaURLs = mediaURLs
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// List возвращает список инцидентов с фильтрами и пагинацией, новые первыми
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	var (
		conditions []string
		args       []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Categories) > 0 {
		categories := make([]string, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			categories = append(categories, string(c))
		}
		args = append(args, categories)
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.PageSize > 0 {
		// рассчитываем смещение
		offset := (max(filter.Page, 1) - 1) * filter.PageSize
		args = append(args, filter.PageSize, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Stats возвращает количество инцидентов по статусам
func (r *IncidentRepository) Stats(ctx context.Context) (*models.IncidentStats, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident stats: %w", err)
	}
	defer rows.Close()

	stats := &models.IncidentStats{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		switch models.Status(status) {
		case models.StatusPending:
			stats.Pending = count
		case models.StatusVerified:
			stats.Verified = count
		case models.StatusResolved:
			stats.Resolved = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error stats iteration: %w", err)
	}
	return stats, nil
}

// RecordVerification выполняет подтверждение в одной транзакции:
// вставка записи (уникальная пара incident_id, actor_id), увеличение счетчика
// под блокировкой строки и условный переход pending -> verified.
func (r *IncidentRepository) RecordVerification(ctx context.Context, v *models.Verification, threshold int) (*models.VerificationOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin verification tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO incident_verifications (incident_id, actor_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (incident_id, actor_id) DO NOTHING
		RETURNING id, created_at;
	`, v.IncidentID, v.ActorID, string(v.Kind)).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, service.ErrDuplicateVerification
		case isPgError(err, pgerrcode.ForeignKeyViolation):
			return nil, fmt.Errorf("incident %s: %w", v.IncidentID, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to insert verification: %w", err)
	}

	// UPDATE блокирует строку до конца транзакции, поэтому параллельные
	// подтверждения видят счетчик друг друга.
	incident, err := scanIncident(tx.QueryRow(ctx, `
		UPDATE incidents SET
			verification_count = verification_count + 1,
			updated_at = NOW()
		WHERE id = $1 AND status <> 'resolved'
		RETURNING `+incidentColumns+`;
	`, v.IncidentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to increment verification count: %w", err)
	}

	outcome := &models.VerificationOutcome{Incident: incident, Verification: v}
	if incident.Status == models.StatusPending &&
		(v.Kind == models.VerificationDirect || incident.VerificationCount >= threshold) {
		var verifiedBy *uuid.UUID
		if v.Kind == models.VerificationDirect {
			verifiedBy = &v.ActorID
		}
		updated, err := scanIncident(tx.QueryRow(ctx, `
			UPDATE incidents SET
				status = 'verified',
				verified_by = $2,
				verified_at = NOW(),
				updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING `+incidentColumns+`;
		`, v.IncidentID, verifiedBy))
		switch {
		case err == nil:
			outcome.Incident = updated
			outcome.StatusChanged = true
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("failed to update incident status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit verification tx: %w", err)
	}
	return outcome, nil
}

// ConditionalUpdateStatus меняет статус только из expected (compare-and-swap)
func (r *IncidentRepository) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected, next models.Status, actorID uuid.UUID) (*models.Incident, error) {
	var query string
	switch next {
	case models.StatusVerified:
		query = `
			UPDATE incidents SET status = $3, verified_by = $4, verified_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING ` + incidentColumns + `;`
	case models.StatusResolved:
		query = `
			UPDATE incidents SET status = $3, resolved_by = $4, resolved_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING ` + incidentColumns + `;`
	default:
		return nil, fmt.Errorf("unsupported target status %s", next)
	}

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, string(expected), string(next), actorID))
	if err == nil {
		return incident, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}

	// Строк нет: либо инцидента нет, либо статус уже другой
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1);`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check incident existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return nil, service.ErrStatusConflict
}

// ListVerifications возвращает подтверждения инцидента в порядке поступления
func (r *IncidentRepository) ListVerifications(ctx context.Context, incidentID uuid.UUID) ([]*models.Verification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, incident_id, actor_id, kind, created_at
		FROM incident_verifications
		WHERE incident_id = $1
		ORDER BY created_at, id;
	`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	verifications := make([]*models.Verification, 0)
	for rows.Next() {
		var (
			v    models.Verification
			kind string
		)
		if err := rows.Scan(&v.ID, &v.IncidentID, &v.ActorID, &kind, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification row: %w", err)
		}
		v.Kind = models.VerificationKind(kind)
		verifications = append(verifications, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error verification iteration: %w", err)
	}
	return verifications, nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
