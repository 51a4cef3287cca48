package alerts

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nightjar-io/nightjar/internal/models"
)

// parseCriteria builds an AlertsCriteria from query string parameters.
// All parameters are optional; an absent parameter leaves its criterion
// unset.
func parseCriteria(r *http.Request) (*models.AlertsCriteria, error) {
	q := r.URL.Query()
	c := &models.AlertsCriteria{}

	var err error
	if c.StartTime, err = parseTimeParam(q.Get("startTime"), "startTime"); err != nil {
		return nil, err
	}
	if c.EndTime, err = parseTimeParam(q.Get("endTime"), "endTime"); err != nil {
		return nil, err
	}
	if c.StartResolvedTime, err = parseTimeParam(q.Get("startResolvedTime"), "startResolvedTime"); err != nil {
		return nil, err
	}
	if c.EndResolvedTime, err = parseTimeParam(q.Get("endResolvedTime"), "endResolvedTime"); err != nil {
		return nil, err
	}
	if c.StartAckTime, err = parseTimeParam(q.Get("startAckTime"), "startAckTime"); err != nil {
		return nil, err
	}
	if c.EndAckTime, err = parseTimeParam(q.Get("endAckTime"), "endAckTime"); err != nil {
		return nil, err
	}
	if c.StartStatusTime, err = parseTimeParam(q.Get("startStatusTime"), "startStatusTime"); err != nil {
		return nil, err
	}
	if c.EndStatusTime, err = parseTimeParam(q.Get("endStatusTime"), "endStatusTime"); err != nil {
		return nil, err
	}

	c.AlertIDs = splitParam(q.Get("alertIds"))
	c.TriggerIDs = splitParam(q.Get("triggerIds"))

	for _, s := range splitParam(q.Get("severities")) {
		sev, err := models.ParseSeverity(s)
		if err != nil {
			return nil, err
		}
		c.Severities = append(c.Severities, sev)
	}

	if v := q.Get("status"); v != "" {
		st, err := models.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		c.Status = st
	}
	for _, s := range splitParam(q.Get("statusSet")) {
		st, err := models.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		c.StatusSet = append(c.StatusSet, st)
	}

	c.TagQuery = q.Get("tagQuery")

	if v := q.Get("thin"); v != "" {
		thin, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid thin parameter %q", v)
		}
		c.Thin = thin
	}

	return c, nil
}

// parsePage builds a PageSpec from the offset and limit parameters.
func parsePage(r *http.Request) (*models.PageSpec, error) {
	q := r.URL.Query()
	offset := q.Get("offset")
	limit := q.Get("limit")
	if offset == "" && limit == "" {
		return nil, nil
	}

	page := &models.PageSpec{}
	if offset != "" {
		v, err := strconv.Atoi(offset)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid offset parameter %q", offset)
		}
		page.Offset = v
	}
	if limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid limit parameter %q", limit)
		}
		page.Limit = v
	}
	return page, nil
}

func parseTimeParam(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter %q: expected unix millis", name, raw)
	}
	return &v, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTags parses the comma-separated "name|value" tags parameter.
func parseTags(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("tags parameter required")
	}
	tags := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "|")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid tag %q: expected name|value", pair)
		}
		tags[name] = value
	}
	return tags, nil
}
