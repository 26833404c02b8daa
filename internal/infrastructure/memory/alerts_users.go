package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

// ── Alertas ───────────────────────────────────────────────────────────────────

type AlertRepo struct{ s *Store }

var _ repository.AlertRepository = (*AlertRepo)(nil)

func copyAlert(a *entity.Alert) *entity.Alert {
	c := *a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// Create aplica la misma restricción que el índice único parcial: una sola ACTIVE por clave.
func (r *AlertRepo) Create(_ context.Context, a *entity.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.Status == entity.AlertStatusActive {
		for _, x := range r.s.alerts {
			if x.Status == entity.AlertStatusActive && x.AlertType == a.AlertType &&
				x.ReferenceType == a.ReferenceType && x.ReferenceID == a.ReferenceID {
				return domain.ErrDuplicate
			}
		}
	}
	r.s.alerts[a.ID] = copyAlert(a)
	return nil
}

func (r *AlertRepo) GetByID(_ context.Context, id string) (*entity.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, nil
	}
	return copyAlert(a), nil
}

func (r *AlertRepo) FindOpen(_ context.Context, alertType, refType, refID string) (*entity.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *entity.Alert
	for _, a := range r.s.alerts {
		if a.AlertType != alertType || a.ReferenceType != refType || a.ReferenceID != refID {
			continue
		}
		if a.Status != entity.AlertStatusActive && a.Status != entity.AlertStatusAcknowledged {
			continue
		}
		if found == nil || a.TriggeredAt.After(found.TriggeredAt) {
			found = a
		}
	}
	if found == nil {
		return nil, nil
	}
	return copyAlert(found), nil
}

func (r *AlertRepo) Update(_ context.Context, a *entity.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.alerts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.alerts[a.ID] = copyAlert(a)
	return nil
}

func (r *AlertRepo) sorted(keep func(*entity.Alert) bool) []*entity.Alert {
	out := make([]*entity.Alert, 0)
	for _, a := range r.s.alerts {
		if keep(a) {
			out = append(out, copyAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.After(out[j].TriggeredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *AlertRepo) List(_ context.Context, f repository.AlertFilter, limit, offset int) ([]*entity.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(a *entity.Alert) bool {
		return (f.AlertType == "" || a.AlertType == f.AlertType) &&
			(f.Severity == "" || a.Severity == f.Severity) &&
			(f.Priority == "" || a.Priority == f.Priority) &&
			(f.Status == "" || a.Status == f.Status) &&
			(f.ReferenceType == "" || a.ReferenceType == f.ReferenceType) &&
			(f.ReferenceID == "" || a.ReferenceID == f.ReferenceID)
	})
	return page(out, limit, offset), nil
}

func (r *AlertRepo) ListOpenByTypes(_ context.Context, alertTypes []string) ([]*entity.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	types := make(map[string]bool, len(alertTypes))
	for _, t := range alertTypes {
		types[t] = true
	}
	return r.sorted(func(a *entity.Alert) bool {
		return types[a.AlertType] && (a.Status == entity.AlertStatusActive || a.Status == entity.AlertStatusAcknowledged)
	}), nil
}

func (r *AlertRepo) Counts(_ context.Context) (*repository.AlertCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c := &repository.AlertCounts{ByStatus: map[string]int{}, ByType: map[string]int{}, BySeverity: map[string]int{}}
	for _, a := range r.s.alerts {
		c.ByStatus[a.Status]++
		if a.Status == entity.AlertStatusActive || a.Status == entity.AlertStatusAcknowledged {
			c.ByType[a.AlertType]++
			c.BySeverity[a.Severity]++
		}
	}
	return c, nil
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *UserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, limit, offset), nil
}

func (r *UserRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

type DashboardRepo struct{ s *Store }

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

func (r *DashboardRepo) CountActiveProducts(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.t.products {
		if p.Active {
			n++
		}
	}
	return n, nil
}

func (r *DashboardRepo) CountStockByStatus(_ context.Context) (*repository.StockStatusCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c := &repository.StockStatusCounts{}
	for k, rec := range r.s.t.inventory {
		p, ok := r.s.t.products[k.productID]
		if !ok || !p.Active {
			continue
		}
		switch entity.StockStatusFor(rec.Available(), p.ReorderPoint) {
		case entity.StockStatusOutOfStock:
			c.OutOfStock++
		case entity.StockStatusLowStock:
			c.LowStock++
		default:
			c.InStock++
		}
	}
	return c, nil
}

func (r *DashboardRepo) CountOverdueOrders(_ context.Context, asOf time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	n := 0
	for _, po := range r.s.t.orders {
		if entity.IsOpenPOStatus(po.Status) && po.ExpectedDeliveryDate != nil && po.ExpectedDeliveryDate.Before(today) {
			n++
		}
	}
	return n, nil
}
