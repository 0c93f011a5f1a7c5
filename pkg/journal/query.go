package journal

import (
	"slices"
	"time"
)

// QueryOptions filters journal entries. Zero values match everything.
type QueryOptions struct {
	EventTypes []EventType `json:"event_types,omitempty"`
	StudentID  string      `json:"student_id,omitempty"`
	Since      *time.Time  `json:"since,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}

// QueryResult is a page of matching entries
type QueryResult struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"total_count"`
	HasMore    bool    `json:"has_more"`
}

// Query reads a journal file, verifying it on the way, and returns the
// entries matching opts in file order
func Query(path string, opts QueryOptions) (*QueryResult, error) {
	var matches []Entry
	_, _, err := scan(path, func(e Entry) {
		if opts.matches(&e) {
			matches = append(matches, e)
		}
	})
	if err != nil {
		return nil, err
	}

	total := len(matches)
	start := min(max(opts.Offset, 0), total)
	end := total
	if opts.Limit > 0 && start+opts.Limit < total {
		end = start + opts.Limit
	}

	entries := matches[start:end]
	if entries == nil {
		entries = []Entry{}
	}
	return &QueryResult{Entries: entries, TotalCount: total, HasMore: end < total}, nil
}

func (o QueryOptions) matches(e *Entry) bool {
	if len(o.EventTypes) > 0 && !slices.Contains(o.EventTypes, e.EventType) {
		return false
	}
	if o.Since != nil && e.Timestamp.Before(*o.Since) {
		return false
	}
	if o.StudentID != "" && !mentions(e, o.StudentID) {
		return false
	}
	return true
}

// mentions reports whether the entry involves the student
func mentions(e *Entry, studentID string) bool {
	if ids, ok := e.Data["student_ids"].([]any); ok {
		for _, id := range ids {
			if s, ok := id.(string); ok && s == studentID {
				return true
			}
		}
	}
	if players, ok := e.Data["players"].([]any); ok {
		for _, p := range players {
			if m, ok := p.(map[string]any); ok && m["student_id"] == studentID {
				return true
			}
		}
	}
	return false
}

// Statistics summarizes a journal
type Statistics struct {
	ArenaID      string            `json:"arena_id"`
	TotalEntries int               `json:"total_entries"`
	EventCounts  map[EventType]int `json:"event_counts"`
	FirstEntry   *time.Time        `json:"first_entry,omitempty"`
	LastEntry    *time.Time        `json:"last_entry,omitempty"`
	Finished     bool              `json:"finished"`
}

// Summarize computes statistics over entries
func Summarize(entries []Entry) Statistics {
	stats := Statistics{EventCounts: make(map[EventType]int)}
	for i := range entries {
		e := &entries[i]
		if stats.ArenaID == "" {
			stats.ArenaID = e.ArenaID
		}
		stats.EventCounts[e.EventType]++
		if e.EventType == EventBattleFinished {
			stats.Finished = true
		}
	}
	stats.TotalEntries = len(entries)
	if len(entries) > 0 {
		stats.FirstEntry = &entries[0].Timestamp
		stats.LastEntry = &entries[len(entries)-1].Timestamp
	}
	return stats
}
