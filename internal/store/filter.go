package store

import (
	"github.com/nightjar-io/nightjar/internal/models"
	"github.com/nightjar-io/nightjar/internal/tagquery"
)

// criteriaFilter is the compiled form of an AlertsCriteria: every non-empty
// criterion becomes a predicate and an alert must satisfy all of them.
// Compiling happens once per query and the result is read-only during the
// scan.
type criteriaFilter struct {
	alertIDs   map[string]struct{}
	triggerIDs map[string]struct{}
	severities map[models.Severity]struct{}
	statuses   map[models.Status]struct{}

	startTime, endTime                 *int64
	startResolvedTime, endResolvedTime *int64
	startAckTime, endAckTime           *int64
	startStatusTime, endStatusTime     *int64

	tagExpr tagquery.Expr
}

// newCriteriaFilter compiles a criteria. A criteria with a tag query that
// fails to compile yields an *InvalidCriteriaError; a nil or empty criteria
// compiles to a match-everything filter.
func newCriteriaFilter(c *models.AlertsCriteria) (*criteriaFilter, error) {
	f := &criteriaFilter{}
	if c == nil {
		return f, nil
	}

	if len(c.AlertIDs) > 0 {
		f.alertIDs = make(map[string]struct{}, len(c.AlertIDs))
		for _, id := range c.AlertIDs {
			f.alertIDs[id] = struct{}{}
		}
	}
	if c.TriggerID != "" || len(c.TriggerIDs) > 0 {
		f.triggerIDs = make(map[string]struct{}, len(c.TriggerIDs)+1)
		if c.TriggerID != "" {
			f.triggerIDs[c.TriggerID] = struct{}{}
		}
		for _, id := range c.TriggerIDs {
			f.triggerIDs[id] = struct{}{}
		}
	}
	if len(c.Severities) > 0 {
		f.severities = make(map[models.Severity]struct{}, len(c.Severities))
		for _, s := range c.Severities {
			f.severities[s] = struct{}{}
		}
	}
	if c.Status != "" || len(c.StatusSet) > 0 {
		f.statuses = make(map[models.Status]struct{}, len(c.StatusSet)+1)
		if c.Status != "" {
			f.statuses[c.Status] = struct{}{}
		}
		for _, s := range c.StatusSet {
			f.statuses[s] = struct{}{}
		}
	}

	f.startTime, f.endTime = c.StartTime, c.EndTime
	f.startResolvedTime, f.endResolvedTime = c.StartResolvedTime, c.EndResolvedTime
	f.startAckTime, f.endAckTime = c.StartAckTime, c.EndAckTime
	f.startStatusTime, f.endStatusTime = c.StartStatusTime, c.EndStatusTime

	if c.TagQuery != "" {
		expr, err := tagquery.Parse(c.TagQuery)
		if err != nil {
			return nil, &InvalidCriteriaError{TagQuery: c.TagQuery, Err: err}
		}
		f.tagExpr = expr
	}

	return f, nil
}

// inRange tests an inclusive [start, end] bound; a nil bound is unbounded.
func inRange(v int64, start, end *int64) bool {
	if start != nil && v < *start {
		return false
	}
	if end != nil && v > *end {
		return false
	}
	return true
}

// matches applies the composite predicate to a single alert.
func (f *criteriaFilter) matches(a *models.Alert) bool {
	if f.alertIDs != nil {
		if _, ok := f.alertIDs[a.AlertID]; !ok {
			return false
		}
	}
	if f.triggerIDs != nil {
		if _, ok := f.triggerIDs[a.TriggerID]; !ok {
			return false
		}
	}
	if f.severities != nil {
		if _, ok := f.severities[a.Severity]; !ok {
			return false
		}
	}
	if f.statuses != nil {
		if _, ok := f.statuses[a.Status]; !ok {
			return false
		}
	}

	if !inRange(a.Ctime, f.startTime, f.endTime) {
		return false
	}

	if f.startResolvedTime != nil || f.endResolvedTime != nil {
		stime, ok := a.LastStatusTime(models.StatusResolved)
		if !ok || !inRange(stime, f.startResolvedTime, f.endResolvedTime) {
			return false
		}
	}
	if f.startAckTime != nil || f.endAckTime != nil {
		stime, ok := a.LastStatusTime(models.StatusAcknowledged)
		if !ok || !inRange(stime, f.startAckTime, f.endAckTime) {
			return false
		}
	}
	if f.startStatusTime != nil || f.endStatusTime != nil {
		cur := a.CurrentLifecycle()
		if cur == nil || !inRange(cur.Stime, f.startStatusTime, f.endStatusTime) {
			return false
		}
	}

	if f.tagExpr != nil && !f.tagExpr.Matches(a.Tags) {
		return false
	}

	return true
}
