package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nightjar-io/nightjar/internal/models"
)

func i64(v int64) *int64 { return &v }

// createTestAlerts populates the store with numTenants x numTriggers x
// numAlerts alerts. Per trigger, alert index i has ctime i+1 and cycles by
// i%3: 0 -> medium severity, resolved by user2; 1 -> low severity,
// acknowledged by user1; 2 -> critical severity, left open. Every alert
// carries one availability-down eval set.
func createTestAlerts(t *testing.T, s *Store, numTenants, numTriggers, numAlerts int) {
	t.Helper()
	var batch []*models.Alert
	for tenant := 0; tenant < numTenants; tenant++ {
		tenantID := fmt.Sprintf("tenant%d", tenant)
		for trigger := 0; trigger < numTriggers; trigger++ {
			triggerID := fmt.Sprintf("trigger%d", trigger)
			for alert := 0; alert < numAlerts; alert++ {
				ctime := int64(alert + 1)
				a := models.NewAlert(tenantID, triggerID, fmt.Sprintf("%s-%d", triggerID, alert), ctime, models.SeverityMedium)
				a.EvalSets = [][]models.ConditionEval{{
					{
						"condition": fmt.Sprintf("Availability-%d", trigger),
						"operator":  "DOWN",
						"time":      alert,
					},
				}}
				switch alert % 3 {
				case 2:
					a.Severity = models.SeverityCritical
				case 1:
					a.Severity = models.SeverityLow
					a.AddLifecycle(models.StatusAcknowledged, "user1", ctime)
				case 0:
					a.Severity = models.SeverityMedium
					a.AddLifecycle(models.StatusResolved, "user2", ctime)
				}
				batch = append(batch, a)
			}
		}
	}
	added, err := s.AddAlerts(context.Background(), batch)
	if err != nil {
		t.Fatalf("AddAlerts() error = %v", err)
	}
	if added != len(batch) {
		t.Fatalf("AddAlerts() added = %d, want %d", added, len(batch))
	}
}

func queryCount(t *testing.T, s *Store, tenantIDs []string, criteria *models.AlertsCriteria) int {
	t.Helper()
	alerts, err := s.GetAlerts(context.Background(), tenantIDs, criteria, nil)
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	return len(alerts)
}

func TestAddAlerts(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 100)

	bothTenants := []string{"tenant0", "tenant1"}
	if got := queryCount(t, s, bothTenants, nil); got != 2*5*100 {
		t.Errorf("both tenants = %d, want %d", got, 2*5*100)
	}
	if got := queryCount(t, s, []string{"tenant1"}, nil); got != 5*100 {
		t.Errorf("one tenant = %d, want %d", got, 5*100)
	}

	// Select three specific alerts by id.
	alerts, err := s.GetAlerts(context.Background(), []string{"tenant1"}, nil, nil)
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	criteria := &models.AlertsCriteria{}
	for i := 0; i < 3; i++ {
		criteria.AlertIDs = append(criteria.AlertIDs, alerts[i].AlertID)
	}
	if got := queryCount(t, s, []string{"tenant1"}, criteria); got != 3 {
		t.Errorf("by alertIds = %d, want 3", got)
	}
}

func TestAddAlerts_Duplicates(t *testing.T) {
	s := New()
	a := models.NewAlert("tenant0", "trigger0", "trigger0-0", 1, models.SeverityLow)
	b := models.NewAlert("tenant0", "trigger0", "trigger0-1", 2, models.SeverityLow)

	if added, err := s.AddAlerts(context.Background(), []*models.Alert{a, b}); err != nil || added != 2 {
		t.Fatalf("AddAlerts() = %d, %v, want 2, nil", added, err)
	}

	// Re-inserting one duplicate alongside one new record keeps the batch
	// going and reports the collision.
	c := models.NewAlert("tenant0", "trigger0", "trigger0-2", 3, models.SeverityLow)
	added, err := s.AddAlerts(context.Background(), []*models.Alert{a, c})
	if added != 1 {
		t.Errorf("AddAlerts() added = %d, want 1", added)
	}
	var dup *DuplicateAlertError
	if !errors.As(err, &dup) {
		t.Fatalf("AddAlerts() error = %v, want DuplicateAlertError", err)
	}
	if dup.TenantID != "tenant0" || dup.AlertID != "trigger0-0" {
		t.Errorf("DuplicateAlertError = %+v", dup)
	}
	if got := queryCount(t, s, []string{"tenant0"}, nil); got != 3 {
		t.Errorf("stored alerts = %d, want 3", got)
	}
}

// failingBackend rejects every write.
type failingBackend struct {
	saveErr error
}

func (b *failingBackend) LoadAll(ctx context.Context) ([]*models.Alert, error) { return nil, nil }
func (b *failingBackend) SaveAlert(ctx context.Context, a *models.Alert) error { return b.saveErr }
func (b *failingBackend) DeleteAlert(ctx context.Context, tenantID, alertID string) error {
	return nil
}

func TestAddAlerts_PersistFailureStillAdds(t *testing.T) {
	ctx := context.Background()
	s, err := NewWithBackend(ctx, &failingBackend{saveErr: errors.New("disk full")})
	if err != nil {
		t.Fatalf("NewWithBackend() error = %v", err)
	}

	a := models.NewAlert("tenant0", "trigger0", "trigger0-0", 1, models.SeverityLow)
	added, err := s.AddAlerts(ctx, []*models.Alert{a})

	// The in-memory insert is authoritative: the record counts as added
	// and the write-through failure is reported alongside.
	if added != 1 {
		t.Errorf("AddAlerts() added = %d, want 1", added)
	}
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("AddAlerts() error = %v, want StoreError", err)
	}
	if got := queryCount(t, s, []string{"tenant0"}, nil); got != 1 {
		t.Errorf("stored alerts = %d, want 1", got)
	}
}

func TestAddAlertTags(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 2)
	tenants := []string{"tenant0", "tenant1"}
	ctx := context.Background()

	alerts, err := s.GetAlerts(ctx, tenants, nil, nil)
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	if len(alerts) != 2*5*2 {
		t.Fatalf("untagged alerts = %d, want %d", len(alerts), 2*5*2)
	}

	for count, a := range alerts {
		tags := map[string]string{}
		switch {
		case count < 5:
			tags["tag1"] = fmt.Sprintf("value%d", count%5)
		case count < 10:
			tags["tag2"] = fmt.Sprintf("value%d", count%5)
		default:
			// tag3 values repeat twice across alerts 10-19.
			tags["tag3"] = fmt.Sprintf("value%d", count%5)
		}
		if _, err := s.AddAlertTags(ctx, a.TenantID, []string{a.AlertID}, tags); err != nil {
			t.Fatalf("AddAlertTags() error = %v", err)
		}
	}

	tests := []struct {
		tagQuery string
		want     int
	}{
		{"tag1", 5},
		{"tag2", 5},
		{"tag3", 10},
		{"tag1 = 'value1'", 1},
		{"tag2 = 'value1'", 1},
		{"tag3 = 'value2'", 2},
		{"tag1 = 'value10'", 0},
		{"tag1 or tag2", 10},
		{"tag1 = 'value.*'", 5},
		{"tag1 != 'value0'", 4},
		{"tag1 != 'value0' or tag2 != 'value0'", 8},
	}
	for _, tt := range tests {
		t.Run(tt.tagQuery, func(t *testing.T) {
			criteria := &models.AlertsCriteria{TagQuery: tt.tagQuery}
			if got := queryCount(t, s, tenants, criteria); got != tt.want {
				t.Errorf("tagQuery %q = %d, want %d", tt.tagQuery, got, tt.want)
			}
		})
	}
}

func TestRemoveAlertTags(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 1, 3)
	ctx := context.Background()
	tenants := []string{"tenant0"}
	ids := []string{"trigger0-0", "trigger0-1"}

	if n, err := s.AddAlertTags(ctx, "tenant0", ids, map[string]string{"env": "prod"}); err != nil || n != 2 {
		t.Fatalf("AddAlertTags() = %d, %v, want 2, nil", n, err)
	}
	if got := queryCount(t, s, tenants, &models.AlertsCriteria{TagQuery: "env"}); got != 2 {
		t.Fatalf("tagged alerts = %d, want 2", got)
	}

	// Unknown ids are skipped, not an error.
	n, err := s.RemoveAlertTags(ctx, "tenant0", []string{"trigger0-0", "no-such-id"}, []string{"env"})
	if err != nil || n != 1 {
		t.Fatalf("RemoveAlertTags() = %d, %v, want 1, nil", n, err)
	}
	if got := queryCount(t, s, tenants, &models.AlertsCriteria{TagQuery: "env"}); got != 1 {
		t.Errorf("tagged alerts after remove = %d, want 1", got)
	}
}

func TestQueryAlertsByTriggerID(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 5)
	tenants := []string{"tenant0", "tenant1"}

	criteria := &models.AlertsCriteria{TriggerID: "trigger0"}
	if got := queryCount(t, s, tenants, criteria); got != 10 {
		t.Errorf("trigger0 = %d, want 10", got)
	}

	criteria.TriggerIDs = []string{"trigger0", "trigger1", "trigger2"}
	if got := queryCount(t, s, tenants, criteria); got != 30 {
		t.Errorf("trigger0-2 = %d, want 30", got)
	}
}

func TestQueryAlertsByCtime(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)
	tenants := []string{"tenant0"}

	criteria := &models.AlertsCriteria{StartTime: i64(2), EndTime: i64(2)}
	if got := queryCount(t, s, tenants, criteria); got != 5 {
		t.Errorf("ctime == 2 = %d, want 5", got)
	}

	criteria.EndTime = nil
	if got := queryCount(t, s, tenants, criteria); got != 5*4 {
		t.Errorf("ctime >= 2 = %d, want %d", got, 5*4)
	}
}

func TestQueryAlertsByResolvedTime(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)

	// Alerts at ctime 1 and 4 are resolved.
	criteria := &models.AlertsCriteria{StartResolvedTime: i64(1)}
	if got := queryCount(t, s, []string{"tenant0"}, criteria); got != 5*2 {
		t.Errorf("resolved since 1 = %d, want %d", got, 5*2)
	}
}

func TestQueryAlertsByAckTime(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)

	// Alerts at ctime 2 and 5 are acknowledged.
	criteria := &models.AlertsCriteria{StartAckTime: i64(1)}
	if got := queryCount(t, s, []string{"tenant0"}, criteria); got != 5*2 {
		t.Errorf("acked since 1 = %d, want %d", got, 5*2)
	}
}

func TestQueryAlertsByStatusTime(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)

	criteria := &models.AlertsCriteria{StartStatusTime: i64(5), EndStatusTime: i64(5)}
	if got := queryCount(t, s, []string{"tenant0"}, criteria); got != 5 {
		t.Errorf("status time == 5 = %d, want 5", got)
	}
}

func TestQueryAlertsBySeverity(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)
	tenants := []string{"tenant0"}

	tests := []struct {
		name       string
		severities []models.Severity
		want       int
	}{
		{"low", []models.Severity{models.SeverityLow}, 5 * 2},
		{"critical", []models.Severity{models.SeverityCritical}, 5},
		{"medium", []models.Severity{models.SeverityMedium}, 5 * 2},
		{"medium or critical", []models.Severity{models.SeverityMedium, models.SeverityCritical}, 5 * 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := &models.AlertsCriteria{Severities: tt.severities}
			if got := queryCount(t, s, tenants, criteria); got != tt.want {
				t.Errorf("severities %v = %d, want %d", tt.severities, got, tt.want)
			}
		})
	}
}

func TestQueryAlertsByStatus(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)
	tenants := []string{"tenant0"}

	if got := queryCount(t, s, tenants, &models.AlertsCriteria{Status: models.StatusOpen}); got != 5 {
		t.Errorf("open = %d, want 5", got)
	}
	if got := queryCount(t, s, tenants, &models.AlertsCriteria{Status: models.StatusAcknowledged}); got != 5*2 {
		t.Errorf("acknowledged = %d, want %d", got, 5*2)
	}
	if got := queryCount(t, s, tenants, &models.AlertsCriteria{Status: models.StatusResolved}); got != 5*2 {
		t.Errorf("resolved = %d, want %d", got, 5*2)
	}
	criteria := &models.AlertsCriteria{StatusSet: []models.Status{models.StatusAcknowledged, models.StatusResolved}}
	if got := queryCount(t, s, tenants, criteria); got != 5*4 {
		t.Errorf("acknowledged or resolved = %d, want %d", got, 5*4)
	}
}

func TestQueryAlertsCombined(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 5, 5)

	criteria := &models.AlertsCriteria{
		Status:    models.StatusResolved,
		TriggerID: "trigger0",
		StartTime: i64(3),
	}
	if got := queryCount(t, s, []string{"tenant0"}, criteria); got != 1 {
		t.Errorf("combined criteria = %d, want 1", got)
	}
}

// Criteria composition is conjunctive: adding a criterion never grows the
// result set.
func TestQueryAlertsConjunctive(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 5)
	tenants := []string{"tenant0", "tenant1"}

	criteria := &models.AlertsCriteria{}
	prev := queryCount(t, s, tenants, criteria)

	narrowings := []func(){
		func() { criteria.TriggerIDs = []string{"trigger0", "trigger1"} },
		func() { criteria.Severities = []models.Severity{models.SeverityLow, models.SeverityMedium} },
		func() { criteria.StartTime = i64(2) },
		func() { criteria.StatusSet = []models.Status{models.StatusAcknowledged, models.StatusResolved} },
		func() { criteria.EndTime = i64(4) },
	}
	for i, narrow := range narrowings {
		narrow()
		got := queryCount(t, s, tenants, criteria)
		if got > prev {
			t.Errorf("narrowing %d grew result set: %d > %d", i, got, prev)
		}
		prev = got
	}
}

func TestDeleteAlerts(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 5)
	ctx := context.Background()

	// A criteria matching nothing deletes nothing and leaves the store
	// unchanged.
	n, err := s.DeleteAlerts(ctx, "tenant0", &models.AlertsCriteria{TriggerID: "no-such-trigger"})
	if err != nil || n != 0 {
		t.Fatalf("DeleteAlerts(no match) = %d, %v, want 0, nil", n, err)
	}
	if got := queryCount(t, s, []string{"tenant0"}, nil); got != 25 {
		t.Errorf("tenant0 after no-op delete = %d, want 25", got)
	}

	n, err = s.DeleteAlerts(ctx, "tenant0", &models.AlertsCriteria{TriggerID: "trigger0"})
	if err != nil || n != 5 {
		t.Fatalf("DeleteAlerts(trigger0) = %d, %v, want 5, nil", n, err)
	}

	// An empty criteria deliberately clears the tenant partition.
	n, err = s.DeleteAlerts(ctx, "tenant0", &models.AlertsCriteria{})
	if err != nil || n != 20 {
		t.Fatalf("DeleteAlerts(empty) = %d, %v, want 20, nil", n, err)
	}
	if got := queryCount(t, s, []string{"tenant0"}, nil); got != 0 {
		t.Errorf("tenant0 after full delete = %d, want 0", got)
	}
	if got := queryCount(t, s, []string{"tenant1"}, nil); got != 25 {
		t.Errorf("tenant1 untouched = %d, want 25", got)
	}

	// Unknown tenants contribute zero rows, deletes included.
	n, err = s.DeleteAlerts(ctx, "no-such-tenant", nil)
	if err != nil || n != 0 {
		t.Errorf("DeleteAlerts(unknown tenant) = %d, %v, want 0, nil", n, err)
	}
}

func TestLifecycleOperations(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := models.NewAlert("tenant0", "trigger0", "trigger0-0", 1, models.SeverityHigh)
	if _, err := s.AddAlerts(ctx, []*models.Alert{a}); err != nil {
		t.Fatalf("AddAlerts() error = %v", err)
	}

	if n, err := s.AckAlerts(ctx, "tenant0", []string{"trigger0-0"}, "oncall"); err != nil || n != 1 {
		t.Fatalf("AckAlerts() = %d, %v, want 1, nil", n, err)
	}
	got, err := s.GetAlert(ctx, "tenant0", "trigger0-0")
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got.Status != models.StatusAcknowledged {
		t.Errorf("status = %s, want %s", got.Status, models.StatusAcknowledged)
	}
	if cur := got.CurrentLifecycle(); cur.User != "oncall" || cur.Stime < got.Ctime {
		t.Errorf("current lifecycle = %+v", cur)
	}

	// Acknowledging again is a no-op: no duplicate ledger entry.
	if n, _ := s.AckAlerts(ctx, "tenant0", []string{"trigger0-0"}, "oncall"); n != 0 {
		t.Errorf("second AckAlerts() = %d, want 0", n)
	}

	if n, _ := s.ResolveAlerts(ctx, "tenant0", []string{"trigger0-0"}, "oncall"); n != 1 {
		t.Errorf("ResolveAlerts() = %d, want 1", n)
	}
	if n, _ := s.OpenAlerts(ctx, "tenant0", []string{"trigger0-0"}, "oncall"); n != 1 {
		t.Errorf("OpenAlerts() = %d, want 1", n)
	}

	got, _ = s.GetAlert(ctx, "tenant0", "trigger0-0")
	if len(got.Lifecycle) != 4 {
		t.Fatalf("lifecycle entries = %d, want 4", len(got.Lifecycle))
	}
	for i := 1; i < len(got.Lifecycle); i++ {
		if got.Lifecycle[i].Stime < got.Lifecycle[i-1].Stime {
			t.Errorf("lifecycle stime decreased at %d: %+v", i, got.Lifecycle)
		}
	}

	// Unknown ids are skipped.
	if n, err := s.AckAlerts(ctx, "tenant0", []string{"nope"}, "oncall"); err != nil || n != 0 {
		t.Errorf("AckAlerts(unknown) = %d, %v, want 0, nil", n, err)
	}
}

func TestGetAlert(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 1, 2)
	ctx := context.Background()

	a, err := s.GetAlert(ctx, "tenant0", "trigger0-1")
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if a.AlertID != "trigger0-1" || a.Ctime != 2 {
		t.Errorf("GetAlert() = %+v", a)
	}

	if _, err := s.GetAlert(ctx, "tenant0", "nope"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("GetAlert(unknown id) error = %v, want ErrAlertNotFound", err)
	}
	if _, err := s.GetAlert(ctx, "no-such-tenant", "trigger0-1"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("GetAlert(unknown tenant) error = %v, want ErrAlertNotFound", err)
	}
}

func TestGetAlerts_ThinAndPaging(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 2, 10)
	ctx := context.Background()

	thin, err := s.GetAlerts(ctx, []string{"tenant0"}, &models.AlertsCriteria{Thin: true}, nil)
	if err != nil {
		t.Fatalf("GetAlerts(thin) error = %v", err)
	}
	for _, a := range thin {
		if a.EvalSets != nil {
			t.Fatalf("thin alert %s still carries eval sets", a.AlertID)
		}
	}

	page, err := s.GetAlerts(ctx, []string{"tenant0"}, nil, &models.PageSpec{Offset: 5, Limit: 3})
	if err != nil {
		t.Fatalf("GetAlerts(page) error = %v", err)
	}
	if len(page) != 3 {
		t.Errorf("page size = %d, want 3", len(page))
	}

	// Paging past the end yields an empty page.
	empty, err := s.GetAlerts(ctx, []string{"tenant0"}, nil, &models.PageSpec{Offset: 100, Limit: 3})
	if err != nil || len(empty) != 0 {
		t.Errorf("page past end = %d alerts, %v, want 0, nil", len(empty), err)
	}
}

// Returned alerts are snapshots: mutating them must not leak into the store.
func TestGetAlerts_Snapshot(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 1, 1, 1)
	ctx := context.Background()

	a, _ := s.GetAlert(ctx, "tenant0", "trigger0-0")
	a.Tags["sneaky"] = "write"
	a.Lifecycle[0].User = "tampered"

	fresh, _ := s.GetAlert(ctx, "tenant0", "trigger0-0")
	if _, ok := fresh.Tags["sneaky"]; ok {
		t.Error("tag mutation leaked into the store")
	}
	if fresh.Lifecycle[0].User == "tampered" {
		t.Error("lifecycle mutation leaked into the store")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	createTestAlerts(t, s, 2, 5, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant%d", w%2)
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("trigger%d-%d", i%5, i%20)
				s.AddAlertTags(ctx, tenant, []string{id}, map[string]string{"worker": fmt.Sprintf("w%d", w)})
				s.AckAlerts(ctx, tenant, []string{id}, "stress")
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			criteria := &models.AlertsCriteria{TagQuery: "worker = 'w.*'"}
			for i := 0; i < 50; i++ {
				if _, err := s.GetAlerts(ctx, []string{"tenant0", "tenant1"}, criteria, nil); err != nil {
					t.Errorf("GetAlerts() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Every alert still has a complete, ordered ledger.
	alerts, _ := s.GetAlerts(ctx, []string{"tenant0", "tenant1"}, nil, nil)
	for _, a := range alerts {
		if len(a.Lifecycle) == 0 || a.CurrentLifecycle().Status != a.Status {
			t.Fatalf("alert %s has inconsistent lifecycle: %+v", a.AlertID, a)
		}
	}
}

func BenchmarkGetAlertsTagQuery(b *testing.B) {
	s := New()
	var batch []*models.Alert
	for i := 0; i < 5000; i++ {
		a := models.NewAlert("tenant0", fmt.Sprintf("trigger%d", i%50), "", int64(i), models.SeverityMedium)
		a.Tags["env"] = fmt.Sprintf("env%d", i%10)
		batch = append(batch, a)
	}
	if _, err := s.AddAlerts(context.Background(), batch); err != nil {
		b.Fatal(err)
	}
	criteria := &models.AlertsCriteria{TagQuery: "env = 'env[0-4]'"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.GetAlerts(context.Background(), []string{"tenant0"}, criteria, nil); err != nil {
			b.Fatal(err)
		}
	}
}
