// Package view orders and filters the tracked set for presentation.
package view

import (
	"fmt"
	"sort"
	"strings"

	"followup-tracker/internal/model"
)

// Filter selects which active messages a view shows.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterHigh    Filter = "high"
	FilterMedium  Filter = "medium"
	FilterLow     Filter = "low"
	FilterPending Filter = "pending"
)

// ParseFilter validates a filter key; an empty key means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterHigh, FilterMedium, FilterLow, FilterPending:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported filter: %q", s)
	}
}

func (f Filter) matches(msg *model.TrackedMessage) bool {
	switch f {
	case FilterHigh:
		return msg.Priority == model.PriorityHigh
	case FilterMedium:
		return msg.Priority == model.PriorityMedium
	case FilterLow:
		return msg.Priority == model.PriorityLow
	case FilterPending:
		return msg.Status == model.StatusPending
	default:
		return true
	}
}

// View returns the active messages passing filter, high tier first and
// newest first within a tier. The returned slice is new; state is not modified.
func View(state *model.TrackedState, filter Filter) []*model.TrackedMessage {
	result := make([]*model.TrackedMessage, 0, len(state.Messages))
	for _, msg := range state.Messages {
		if !msg.IsActive() || !filter.matches(msg) {
			continue
		}
		result = append(result, msg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.After(b.ReceivedAt)
		}
		return a.ID < b.ID
	})
	return result
}

// Summary holds the aggregate counters shown next to the list.
type Summary struct {
	Total        int    `json:"total"`
	Pending      int    `json:"pending"`
	HighPriority int    `json:"high_priority"`
	Filter       Filter `json:"filter"`
}

// Summarize counts every tracked message for Total, active pending ones for
// Pending, and high-tier messages within the filtered view for HighPriority.
func Summarize(state *model.TrackedState, filter Filter) Summary {
	summary := Summary{Total: len(state.Messages), Filter: filter}
	for _, msg := range state.Messages {
		if msg.IsActive() && msg.Status == model.StatusPending {
			summary.Pending++
		}
	}
	for _, msg := range View(state, filter) {
		if msg.Priority == model.PriorityHigh {
			summary.HighPriority++
		}
	}
	return summary
}
