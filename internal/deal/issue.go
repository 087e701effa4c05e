// Package deal models how the three package categories are divided between
// the participant ("self") and their partner.
package deal

import (
	"fmt"
	"strings"
)

// Rank identifies an issue by the value the participant attaches to it.
type Rank string

const (
	RankHigh   Rank = "High"
	RankMedium Rank = "Medium"
	RankLow    Rank = "Low"
)

// DefaultTotal is the number of packages per issue when the orchestrator
// does not say otherwise.
const DefaultTotal = 3

// Ranks lists every rank in display order.
var Ranks = []Rank{RankHigh, RankMedium, RankLow}

func (r Rank) index() int {
	switch r {
	case RankHigh:
		return 0
	case RankMedium:
		return 1
	case RankLow:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is one of the three known ranks.
func (r Rank) Valid() bool { return r.index() >= 0 }

// ParseRank accepts "High", "medium", " LOW " and so on.
func ParseRank(value string) (Rank, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return RankHigh, nil
	case "medium":
		return RankMedium, nil
	case "low":
		return RankLow, nil
	}
	return "", fmt.Errorf("deal: unknown rank %q", value)
}

// Issue is one negotiable category.
type Issue struct {
	Rank  Rank
	Label string
	Total int
}

// Issues is the fixed board of three issues, indexed by rank.
type Issues [3]Issue

// NewIssues builds the board from the orchestrator's rank→label mapping and
// optional per-rank totals. Missing totals use DefaultTotal.
func NewIssues(labels map[Rank]string, totals map[Rank]int) (Issues, error) {
	var issues Issues
	seen := map[string]Rank{}
	for _, rank := range Ranks {
		label := strings.TrimSpace(labels[rank])
		if label == "" {
			return Issues{}, fmt.Errorf("deal: label for %s is required", rank)
		}
		key := strings.ToLower(label)
		if other, dup := seen[key]; dup {
			return Issues{}, fmt.Errorf("deal: label %q used by both %s and %s", label, other, rank)
		}
		seen[key] = rank
		total, ok := totals[rank]
		if !ok {
			total = DefaultTotal
		}
		if total < 0 {
			return Issues{}, fmt.Errorf("deal: total for %s must be >= 0", rank)
		}
		issues[rank.index()] = Issue{Rank: rank, Label: label, Total: total}
	}
	return issues, nil
}

// Get returns the issue for rank.
func (is Issues) Get(rank Rank) (Issue, bool) {
	idx := rank.index()
	if idx < 0 || is[idx].Rank == "" {
		return Issue{}, false
	}
	return is[idx], true
}

// Label returns the display name of rank, or the rank itself when unknown.
func (is Issues) Label(rank Rank) string {
	if issue, ok := is.Get(rank); ok {
		return issue.Label
	}
	return string(rank)
}

// Total returns the number of packages available for rank.
func (is Issues) Total(rank Rank) int {
	issue, _ := is.Get(rank)
	return issue.Total
}

// RankOf resolves a display label back to its rank.
func (is Issues) RankOf(label string) (Rank, bool) {
	target := strings.ToLower(strings.TrimSpace(label))
	for _, issue := range is {
		if issue.Rank != "" && strings.ToLower(issue.Label) == target {
			return issue.Rank, true
		}
	}
	return "", false
}

// Labels lists display names in rank order.
func (is Issues) Labels() []string {
	out := make([]string, 0, len(is))
	for _, issue := range is {
		if issue.Rank != "" {
			out = append(out, issue.Label)
		}
	}
	return out
}

// Ready reports whether all three issues are populated.
func (is Issues) Ready() bool {
	for _, issue := range is {
		if issue.Rank == "" {
			return false
		}
	}
	return true
}
