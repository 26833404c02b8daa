package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

const alertColumns = `id, alert_type, severity, priority, status, reference_type, reference_id, title, message,
		notes, triggered_at, acknowledged_at, resolved_at, updated_at, updated_by`

// AlertRepo alertas del dashboard (tabla alerts).
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

// Create inserta una alerta. El índice único parcial sobre las ACTIVE responde ErrDuplicate.
func (r *AlertRepo) Create(ctx context.Context, a *entity.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.AlertType, a.Severity, a.Priority, a.Status, a.ReferenceType, a.ReferenceID, a.Title, a.Message,
		a.Notes, a.TriggeredAt, a.AcknowledgedAt, a.ResolvedAt, a.UpdatedAt, a.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepo) GetByID(ctx context.Context, id string) (*entity.Alert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepo) FindOpen(ctx context.Context, alertType, refType, refID string) (*entity.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE alert_type = $1 AND reference_type = $2 AND reference_id = $3
		  AND status IN ('ACTIVE', 'ACKNOWLEDGED')
		ORDER BY triggered_at DESC
		LIMIT 1`
	a, err := scanAlert(r.q.QueryRow(ctx, query, alertType, refType, refID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepo) Update(ctx context.Context, a *entity.Alert) error {
	query := `
		UPDATE alerts
		SET severity = $2, priority = $3, status = $4, title = $5, message = $6, notes = $7,
		    acknowledged_at = $8, resolved_at = $9, updated_at = $10, updated_by = $11
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		a.ID, a.Severity, a.Priority, a.Status, a.Title, a.Message, a.Notes,
		a.AcknowledgedAt, a.ResolvedAt, a.UpdatedAt, a.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update alert: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List alertas más recientes primero.
func (r *AlertRepo) List(ctx context.Context, f repository.AlertFilter, limit, offset int) ([]*entity.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE ($1 = '' OR alert_type = $1)
		  AND ($2 = '' OR severity = $2)
		  AND ($3 = '' OR priority = $3)
		  AND ($4 = '' OR status = $4)
		  AND ($5 = '' OR reference_type = $5)
		  AND ($6 = '' OR reference_id = $6)
		ORDER BY triggered_at DESC, id
		LIMIT $7 OFFSET $8`
	return r.queryAlerts(ctx, query,
		f.AlertType, f.Severity, f.Priority, f.Status, f.ReferenceType, f.ReferenceID, limit, offset)
}

func (r *AlertRepo) ListOpenByTypes(ctx context.Context, alertTypes []string) ([]*entity.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE alert_type = ANY($1) AND status IN ('ACTIVE', 'ACKNOWLEDGED')
		ORDER BY triggered_at DESC, id`
	return r.queryAlerts(ctx, query, alertTypes)
}

// Counts por estado sobre todas las alertas; por tipo y severidad solo las abiertas.
func (r *AlertRepo) Counts(ctx context.Context) (*repository.AlertCounts, error) {
	const query = `
		SELECT 'status' AS dim, status AS key, COUNT(*) FROM alerts GROUP BY status
		UNION ALL
		SELECT 'type', alert_type, COUNT(*) FROM alerts WHERE status IN ('ACTIVE', 'ACKNOWLEDGED') GROUP BY alert_type
		UNION ALL
		SELECT 'severity', severity, COUNT(*) FROM alerts WHERE status IN ('ACTIVE', 'ACKNOWLEDGED') GROUP BY severity`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	defer rows.Close()
	c := &repository.AlertCounts{ByStatus: map[string]int{}, ByType: map[string]int{}, BySeverity: map[string]int{}}
	for rows.Next() {
		var dim, key string
		var n int
		if err := rows.Scan(&dim, &key, &n); err != nil {
			return nil, fmt.Errorf("scan alert count: %w", err)
		}
		switch dim {
		case "status":
			c.ByStatus[key] = n
		case "type":
			c.ByType[key] = n
		default:
			c.BySeverity[key] = n
		}
	}
	return c, rows.Err()
}

func (r *AlertRepo) queryAlerts(ctx context.Context, query string, args ...any) ([]*entity.Alert, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func scanAlert(row pgxScanner) (*entity.Alert, error) {
	var a entity.Alert
	err := row.Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.Priority, &a.Status, &a.ReferenceType, &a.ReferenceID, &a.Title,
		&a.Message, &a.Notes, &a.TriggeredAt, &a.AcknowledgedAt, &a.ResolvedAt, &a.UpdatedAt, &a.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
