package models

// AlertsCriteria is a conjunctive filter specification for alert queries and
// deletes. Every non-empty field must hold for an alert to match. Time bounds
// are epoch millis, inclusive on both ends; a nil bound is unbounded.
type AlertsCriteria struct {
	AlertIDs   []string `json:"alertIds,omitempty"`
	TriggerID  string   `json:"triggerId,omitempty"`
	TriggerIDs []string `json:"triggerIds,omitempty"`

	// Bounds on ctime.
	StartTime *int64 `json:"startTime,omitempty"`
	EndTime   *int64 `json:"endTime,omitempty"`

	// Bounds on the stime of the most recent resolved lifecycle entry.
	// Alerts that were never resolved do not match.
	StartResolvedTime *int64 `json:"startResolvedTime,omitempty"`
	EndResolvedTime   *int64 `json:"endResolvedTime,omitempty"`

	// Bounds on the stime of the most recent acknowledged lifecycle entry.
	// Alerts that were never acknowledged do not match.
	StartAckTime *int64 `json:"startAckTime,omitempty"`
	EndAckTime   *int64 `json:"endAckTime,omitempty"`

	// Bounds on the stime of the current lifecycle entry, whatever its status.
	StartStatusTime *int64 `json:"startStatusTime,omitempty"`
	EndStatusTime   *int64 `json:"endStatusTime,omitempty"`

	Severities []Severity `json:"severities,omitempty"`
	Status     Status     `json:"status,omitempty"`
	StatusSet  []Status   `json:"statusSet,omitempty"`

	// TagQuery is a tag-query expression, compiled once per query.
	TagQuery string `json:"tagQuery,omitempty"`

	// Thin strips eval sets from returned alerts.
	Thin bool `json:"thin,omitempty"`
}

// IsEmpty reports whether no criterion field is set. An empty criteria
// matches every alert of the requested tenants; delete callers must apply
// that deliberately.
func (c *AlertsCriteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.AlertIDs) == 0 &&
		c.TriggerID == "" &&
		len(c.TriggerIDs) == 0 &&
		c.StartTime == nil && c.EndTime == nil &&
		c.StartResolvedTime == nil && c.EndResolvedTime == nil &&
		c.StartAckTime == nil && c.EndAckTime == nil &&
		c.StartStatusTime == nil && c.EndStatusTime == nil &&
		len(c.Severities) == 0 &&
		c.Status == "" &&
		len(c.StatusSet) == 0 &&
		c.TagQuery == ""
}

// PageSpec selects a window of an ordered result set. A zero Limit means
// unlimited.
type PageSpec struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Apply slices alerts according to the page spec.
func (p *PageSpec) Apply(alerts []*Alert) []*Alert {
	if p == nil {
		return alerts
	}
	if p.Offset > 0 {
		if p.Offset >= len(alerts) {
			return nil
		}
		alerts = alerts[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(alerts) {
		alerts = alerts[:p.Limit]
	}
	return alerts
}
