// Package store implements the tenant-partitioned alert store and its
// criteria-based query engine. All state lives in memory guarded by
// per-tenant locks; an optional Backend provides write-through durability.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nightjar-io/nightjar/internal/models"
)

// Backend is the optional durable layer beneath the in-memory partitions.
// Implementations must be safe for concurrent use.
type Backend interface {
	// LoadAll returns every persisted alert, across all tenants.
	LoadAll(ctx context.Context) ([]*models.Alert, error)
	// SaveAlert inserts or replaces an alert record.
	SaveAlert(ctx context.Context, alert *models.Alert) error
	// DeleteAlert removes an alert record. Missing records are not an error.
	DeleteAlert(ctx context.Context, tenantID, alertID string) error
}

// Stats tracks store statistics using atomic operations for lock-free access.
type Stats struct {
	AlertsAdded     atomic.Int64
	Duplicates      atomic.Int64
	Queries         atomic.Int64
	AlertsDeleted   atomic.Int64
	AlertsMutated   atomic.Int64
	AlertsEvaluated atomic.Int64
}

// partition holds one tenant's alerts. The partition lock makes per-alert
// mutations atomic with respect to concurrent reads; queries take the read
// lock only for the duration of the scan.
type partition struct {
	mu     sync.RWMutex
	alerts map[string]*models.Alert
}

// Store is the tenant-partitioned alert store.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	backend    Backend

	stats Stats
}

// New creates a memory-only store.
func New() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

// NewWithBackend creates a store backed by a durable layer and loads every
// persisted alert into the in-memory partitions.
func NewWithBackend(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{partitions: make(map[string]*partition), backend: backend}
	alerts, err := backend.LoadAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	for _, a := range alerts {
		p := s.partition(a.TenantID, true)
		p.alerts[a.AlertID] = a
	}
	return s, nil
}

// Stats returns the store statistics.
func (s *Store) Stats() *Stats {
	return &s.stats
}

// partition returns the tenant's partition, creating it when create is set.
// Unknown tenants without create return nil: they contribute zero rows.
func (s *Store) partition(tenantID string, create bool) *partition {
	s.mu.RLock()
	p := s.partitions[tenantID]
	s.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p = s.partitions[tenantID]; p == nil {
		p = &partition{alerts: make(map[string]*models.Alert)}
		s.partitions[tenantID] = p
	}
	return p
}

// AddAlerts inserts new alert records. The batch is best-effort: records
// that collide on (tenantId, alertId) or fail validation are reported and
// the rest of the batch continues. It returns the number of records
// inserted and the joined per-record errors, if any.
func (s *Store) AddAlerts(ctx context.Context, alerts []*models.Alert) (int, error) {
	var errs []error
	added := 0
	for _, a := range alerts {
		if a.TenantID == "" || a.AlertID == "" {
			errs = append(errs, fmt.Errorf("alert missing tenantId or alertId (trigger %q)", a.TriggerID))
			continue
		}
		p := s.partition(a.TenantID, true)

		p.mu.Lock()
		if _, exists := p.alerts[a.AlertID]; exists {
			p.mu.Unlock()
			s.stats.Duplicates.Add(1)
			errs = append(errs, &DuplicateAlertError{TenantID: a.TenantID, AlertID: a.AlertID})
			continue
		}
		record := a.Clone()
		if record.Status == "" {
			record.Status = models.StatusOpen
		}
		if len(record.Lifecycle) == 0 {
			record.Lifecycle = []models.LifecycleEntry{{Status: record.Status, Stime: record.Ctime}}
		}
		p.alerts[a.AlertID] = record
		p.mu.Unlock()

		// The in-memory partition is authoritative: the record is added
		// even if write-through fails, and the failure is reported.
		if err := s.persist(ctx, record); err != nil {
			errs = append(errs, err)
		}
		added++
		s.stats.AlertsAdded.Add(1)
	}
	return added, errors.Join(errs...)
}

// GetAlerts scans the requested tenants' partitions and returns the alerts
// matching the criteria, ordered by (ctime, tenantId, alertId). Unknown
// tenants contribute zero rows. Returned alerts are snapshots; mutating
// them does not affect the store.
func (s *Store) GetAlerts(ctx context.Context, tenantIDs []string, criteria *models.AlertsCriteria, page *models.PageSpec) ([]*models.Alert, error) {
	filter, err := newCriteriaFilter(criteria)
	if err != nil {
		return nil, err
	}
	s.stats.Queries.Add(1)
	thin := criteria != nil && criteria.Thin

	// Tenant partitions are independent, so scan them in parallel.
	g, ctx := errgroup.WithContext(ctx)
	perTenant := make([][]*models.Alert, len(tenantIDs))
	for i, tenantID := range tenantIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := s.partition(tenantID, false)
			if p == nil {
				return nil
			}
			var matched []*models.Alert
			p.mu.RLock()
			for _, a := range p.alerts {
				s.stats.AlertsEvaluated.Add(1)
				if !filter.matches(a) {
					continue
				}
				if thin {
					matched = append(matched, a.ThinClone())
				} else {
					matched = append(matched, a.Clone())
				}
			}
			p.mu.RUnlock()
			perTenant[i] = matched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []*models.Alert
	for _, matched := range perTenant {
		result = append(result, matched...)
	}
	sortAlerts(result)
	return page.Apply(result), nil
}

// GetAlert fetches a single alert snapshot. It returns ErrAlertNotFound for
// unknown tenants or ids.
func (s *Store) GetAlert(ctx context.Context, tenantID, alertID string) (*models.Alert, error) {
	p := s.partition(tenantID, false)
	if p == nil {
		return nil, ErrAlertNotFound
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.alerts[alertID]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return a.Clone(), nil
}

// DeleteAlerts removes every alert of the tenant matching the criteria and
// returns the count removed. An empty criteria deletes the whole tenant
// partition; callers apply that deliberately.
func (s *Store) DeleteAlerts(ctx context.Context, tenantID string, criteria *models.AlertsCriteria) (int, error) {
	filter, err := newCriteriaFilter(criteria)
	if err != nil {
		return 0, err
	}
	p := s.partition(tenantID, false)
	if p == nil {
		return 0, nil
	}

	p.mu.Lock()
	var removed []string
	for id, a := range p.alerts {
		if filter.matches(a) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(p.alerts, id)
	}
	p.mu.Unlock()

	var errs []error
	if s.backend != nil {
		for _, id := range removed {
			if err := s.backend.DeleteAlert(ctx, tenantID, id); err != nil {
				errs = append(errs, &StoreError{Op: "delete", Err: err})
			}
		}
	}
	s.stats.AlertsDeleted.Add(int64(len(removed)))
	return len(removed), errors.Join(errs...)
}

// AddAlertTags merges tags into each listed alert's tag map, last write
// wins on conflicting keys. Ids that do not exist are skipped, not an
// error. Returns the number of alerts updated.
func (s *Store) AddAlertTags(ctx context.Context, tenantID string, alertIDs []string, tags map[string]string) (int, error) {
	return s.mutate(ctx, tenantID, alertIDs, func(a *models.Alert) bool {
		if len(tags) == 0 {
			return false
		}
		if a.Tags == nil {
			a.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			a.Tags[k] = v
		}
		return true
	})
}

// RemoveAlertTags removes the named tags from each listed alert. Ids that
// do not exist are skipped. Returns the number of alerts updated.
func (s *Store) RemoveAlertTags(ctx context.Context, tenantID string, alertIDs []string, tagNames []string) (int, error) {
	return s.mutate(ctx, tenantID, alertIDs, func(a *models.Alert) bool {
		changed := false
		for _, name := range tagNames {
			if _, ok := a.Tags[name]; ok {
				delete(a.Tags, name)
				changed = true
			}
		}
		return changed
	})
}

// AckAlerts appends an acknowledged lifecycle entry to each listed alert.
// Alerts already acknowledged and unknown ids are skipped. Returns the
// number of alerts transitioned.
func (s *Store) AckAlerts(ctx context.Context, tenantID string, alertIDs []string, user string) (int, error) {
	return s.setStatus(ctx, tenantID, alertIDs, models.StatusAcknowledged, user)
}

// ResolveAlerts appends a resolved lifecycle entry to each listed alert.
func (s *Store) ResolveAlerts(ctx context.Context, tenantID string, alertIDs []string, user string) (int, error) {
	return s.setStatus(ctx, tenantID, alertIDs, models.StatusResolved, user)
}

// OpenAlerts re-opens each listed alert.
func (s *Store) OpenAlerts(ctx context.Context, tenantID string, alertIDs []string, user string) (int, error) {
	return s.setStatus(ctx, tenantID, alertIDs, models.StatusOpen, user)
}

func (s *Store) setStatus(ctx context.Context, tenantID string, alertIDs []string, status models.Status, user string) (int, error) {
	stime := time.Now().UnixMilli()
	return s.mutate(ctx, tenantID, alertIDs, func(a *models.Alert) bool {
		if a.Status == status {
			return false
		}
		a.AddLifecycle(status, user, stime)
		return true
	})
}

// mutate applies fn to each listed alert under the partition write lock and
// persists the ones fn reports as changed. Unknown ids are skipped.
func (s *Store) mutate(ctx context.Context, tenantID string, alertIDs []string, fn func(*models.Alert) bool) (int, error) {
	p := s.partition(tenantID, false)
	if p == nil {
		return 0, nil
	}

	var changed []*models.Alert
	p.mu.Lock()
	for _, id := range alertIDs {
		a, ok := p.alerts[id]
		if !ok {
			continue
		}
		if fn(a) {
			changed = append(changed, a.Clone())
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, a := range changed {
		if err := s.persist(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	s.stats.AlertsMutated.Add(int64(len(changed)))
	return len(changed), errors.Join(errs...)
}

func (s *Store) persist(ctx context.Context, a *models.Alert) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.SaveAlert(ctx, a); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

// sortAlerts orders results by (ctime, tenantId, alertId) so repeated calls
// over an unchanged store are deterministic.
func sortAlerts(alerts []*models.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Ctime != alerts[j].Ctime {
			return alerts[i].Ctime < alerts[j].Ctime
		}
		if alerts[i].TenantID != alerts[j].TenantID {
			return alerts[i].TenantID < alerts[j].TenantID
		}
		return alerts[i].AlertID < alerts[j].AlertID
	})
}
