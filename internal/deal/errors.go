package deal

import (
	"fmt"
	"strings"
)

// ShareRangeError rejects a share outside 0..total.
type ShareRangeError struct {
	Rank  Rank
	Value int
	Total int
}

func (e *ShareRangeError) Error() string {
	return fmt.Sprintf("deal: share %d for %s outside 0..%d", e.Value, e.Rank, e.Total)
}

// IncompleteDealError is returned when finalizing a draft with unset shares.
type IncompleteDealError struct {
	Missing []Rank
}

func (e *IncompleteDealError) Error() string {
	names := make([]string, len(e.Missing))
	for i, rank := range e.Missing {
		names[i] = string(rank)
	}
	return "deal: incomplete draft, unset: " + strings.Join(names, ", ")
}

// Violation describes why one issue of an incoming deal is unacceptable.
type Violation struct {
	Rank   Rank
	Label  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (%s)", v.Rank, v.Reason)
}

// InvalidDealError lists every violated issue of an incoming deal.
type InvalidDealError struct {
	Violations []Violation
}

func (e *InvalidDealError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "deal: invalid incoming deal: " + strings.Join(parts, "; ")
}

// Cites reports whether rank is among the violations.
func (e *InvalidDealError) Cites(rank Rank) bool {
	for _, v := range e.Violations {
		if v.Rank == rank {
			return true
		}
	}
	return false
}
