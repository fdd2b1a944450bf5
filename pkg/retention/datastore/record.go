package datastore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Record is one governed data record as the bundled stores see it.
type Record struct {
	ID             string            `json:"id"`
	Category       string            `json:"category"`
	Source         string            `json:"source"`
	Classification string            `json:"classification,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`

	// Size is the record's payload size in bytes.
	Size int64 `json:"size"`

	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`
}

// Times returns the timestamps a retention rule is evaluated against.
func (r *Record) Times() retention.RecordTimes {
	return retention.RecordTimes{
		CreatedAt:      r.CreatedAt,
		LastAccessedAt: r.LastAccessedAt,
		LastModifiedAt: r.LastModifiedAt,
	}
}

func (r *Record) clone() *Record {
	c := *r
	if r.Tags != nil {
		c.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			c.Tags[k] = v
		}
	}
	if r.LastAccessedAt != nil {
		t := *r.LastAccessedAt
		c.LastAccessedAt = &t
	}
	if r.LastModifiedAt != nil {
		t := *r.LastModifiedAt
		c.LastModifiedAt = &t
	}
	return &c
}

// ParseFilter parses a scope filter of the form "key=value[,key=value]".
// An empty filter matches everything.
func ParseFilter(filter string) (map[string]string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	terms := make(map[string]string)
	for _, part := range strings.Split(filter, ",") {
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter term %q (expected key=value)", strings.TrimSpace(part))
		}
		if strings.ContainsAny(key, `"\`) {
			return nil, fmt.Errorf("invalid filter key %q", key)
		}
		terms[key] = strings.TrimSpace(value)
	}
	return terms, nil
}

// matcher evaluates a scope against records.
type matcher struct {
	categories     map[string]bool
	sources        map[string]bool
	classification string
	tags           map[string]string
}

func newMatcher(scope retention.Scope) (*matcher, error) {
	tags, err := ParseFilter(scope.Filter)
	if err != nil {
		return nil, err
	}
	return &matcher{
		categories:     toSet(scope.DataCategories),
		sources:        toSet(scope.DataSources),
		classification: scope.Classification,
		tags:           tags,
	}, nil
}

func (m *matcher) match(r *Record) bool {
	if len(m.categories) > 0 && !m.categories[r.Category] {
		return false
	}
	if len(m.sources) > 0 && !m.sources[r.Source] {
		return false
	}
	if m.classification != "" && r.Classification != m.classification {
		return false
	}
	for k, v := range m.tags {
		if r.Tags[k] != v {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// summarize counts due records and finds the oldest due date.
func summarize(records []*Record, rule retention.RetentionRule) retention.DueSummary {
	var summary retention.DueSummary
	for _, r := range records {
		due := rule.DueAt(rule.StartOf(r.Times()))
		summary.Count++
		if summary.OldestDueDate == nil || due.Before(*summary.OldestDueDate) {
			d := due
			summary.OldestDueDate = &d
		}
	}
	return summary
}

func sortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
