// Package models defines domain models for Nightjar.
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status represents the lifecycle status of an alert.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("unknown severity: %q", s)
	}
}

// ParseStatus converts a string to Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusAcknowledged, StatusResolved:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %q", s)
	}
}

// ConditionEval is an opaque condition evaluation produced by the rule
// engine. The store carries it with the alert but never interprets it.
type ConditionEval map[string]any

// LifecycleEntry records a single status transition of an alert.
type LifecycleEntry struct {
	Status Status `json:"status"`
	User   string `json:"user,omitempty"`
	Stime  int64  `json:"stime"` // epoch millis the status became effective
}

// Alert is a stored alert record. Alerts are created once by the ingestion
// path and afterwards only mutated by lifecycle appends and tag add/remove.
type Alert struct {
	TenantID  string            `json:"tenantId"`
	AlertID   string            `json:"alertId"`
	TriggerID string            `json:"triggerId"`
	Ctime     int64             `json:"ctime"` // creation time, epoch millis
	Severity  Severity          `json:"severity"`
	Tags      map[string]string `json:"tags,omitempty"`
	EvalSets  [][]ConditionEval `json:"evalSets,omitempty"`

	// Status mirrors the status of the last lifecycle entry. It is kept in
	// sync by AddLifecycle so status checks never rescan the ledger.
	Status Status `json:"status"`

	// Lifecycle is the append-only transition ledger. It is never empty for
	// a created alert and its stime values are non-decreasing.
	Lifecycle []LifecycleEntry `json:"lifecycle"`
}

// NewAlert creates an alert in the open state at the given creation time.
// If alertID is empty a unique id derived from the trigger is assigned.
func NewAlert(tenantID, triggerID, alertID string, ctime int64, severity Severity) *Alert {
	if alertID == "" {
		alertID = triggerID + "-" + uuid.New().String()
	}
	return &Alert{
		TenantID:  tenantID,
		AlertID:   alertID,
		TriggerID: triggerID,
		Ctime:     ctime,
		Severity:  severity,
		Tags:      map[string]string{},
		Status:    StatusOpen,
		Lifecycle: []LifecycleEntry{{Status: StatusOpen, Stime: ctime}},
	}
}

// CurrentLifecycle returns the most recent lifecycle entry, or nil if the
// alert has no ledger yet (only possible for hand-built records).
func (a *Alert) CurrentLifecycle() *LifecycleEntry {
	if len(a.Lifecycle) == 0 {
		return nil
	}
	return &a.Lifecycle[len(a.Lifecycle)-1]
}

// AddLifecycle appends a status transition. The ledger is append-only and
// stime values are kept non-decreasing: an stime earlier than the current
// entry's is raised to it.
func (a *Alert) AddLifecycle(status Status, user string, stime int64) {
	if cur := a.CurrentLifecycle(); cur != nil && stime < cur.Stime {
		stime = cur.Stime
	}
	a.Lifecycle = append(a.Lifecycle, LifecycleEntry{Status: status, User: user, Stime: stime})
	a.Status = status
}

// LastStatusTime returns the stime of the most recent lifecycle entry with
// the given status. The second return is false if no such entry exists.
func (a *Alert) LastStatusTime(status Status) (int64, bool) {
	for i := len(a.Lifecycle) - 1; i >= 0; i-- {
		if a.Lifecycle[i].Status == status {
			return a.Lifecycle[i].Stime, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the alert. Queries hand out clones so callers
// never share the store's internal maps and slices.
func (a *Alert) Clone() *Alert {
	c := *a
	if a.Tags != nil {
		c.Tags = make(map[string]string, len(a.Tags))
		for k, v := range a.Tags {
			c.Tags[k] = v
		}
	}
	c.Lifecycle = append([]LifecycleEntry(nil), a.Lifecycle...)
	if a.EvalSets != nil {
		c.EvalSets = make([][]ConditionEval, len(a.EvalSets))
		for i, set := range a.EvalSets {
			c.EvalSets[i] = append([]ConditionEval(nil), set...)
		}
	}
	return &c
}

// ThinClone returns a copy without the eval sets payload.
func (a *Alert) ThinClone() *Alert {
	c := a.Clone()
	c.EvalSets = nil
	return c
}
