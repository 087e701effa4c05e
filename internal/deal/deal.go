package deal

import "fmt"

// Draft is the participant's editable proposal. The partner share is never
// entered directly: it is derived whenever the self share is assigned, so
// self + partner == total holds for every set issue.
type Draft struct {
	issues Issues
	self   [3]int
	set    [3]bool
}

// NewDraft starts an empty draft over issues.
func NewDraft(issues Issues) *Draft {
	return &Draft{issues: issues}
}

// Issues returns the board the draft was created for.
func (d *Draft) Issues() Issues { return d.issues }

// SetShare assigns the participant's share of rank and derives the partner's.
func (d *Draft) SetShare(rank Rank, value int) error {
	issue, ok := d.issues.Get(rank)
	if !ok {
		return fmt.Errorf("deal: unknown issue %q", rank)
	}
	if value < 0 || value > issue.Total {
		return &ShareRangeError{Rank: rank, Value: value, Total: issue.Total}
	}
	idx := rank.index()
	d.self[idx] = value
	d.set[idx] = true
	return nil
}

// Clear unsets rank, which also unsets the derived partner share.
func (d *Draft) Clear(rank Rank) {
	if idx := rank.index(); idx >= 0 {
		d.self[idx] = 0
		d.set[idx] = false
	}
}

// Self returns the participant's share of rank.
func (d *Draft) Self(rank Rank) (int, bool) {
	idx := rank.index()
	if idx < 0 || !d.set[idx] {
		return 0, false
	}
	return d.self[idx], true
}

// Partner returns the derived partner share of rank.
func (d *Draft) Partner(rank Rank) (int, bool) {
	self, ok := d.Self(rank)
	if !ok {
		return 0, false
	}
	return d.issues.Total(rank) - self, true
}

// Missing lists the ranks without a chosen share.
func (d *Draft) Missing() []Rank {
	var missing []Rank
	for _, rank := range Ranks {
		if !d.set[rank.index()] {
			missing = append(missing, rank)
		}
	}
	return missing
}

// UnsetLabels lists display labels of the ranks without a chosen share.
func (d *Draft) UnsetLabels() []string {
	missing := d.Missing()
	if len(missing) == 0 {
		return nil
	}
	labels := make([]string, len(missing))
	for i, rank := range missing {
		labels[i] = d.issues.Label(rank)
	}
	return labels
}

// Complete reports whether every issue has a share.
func (d *Draft) Complete() bool { return len(d.Missing()) == 0 }

// Clone returns an independent copy.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// ToFinalizedDeal snapshots a complete draft.
func (d *Draft) ToFinalizedDeal() (FinalizedDeal, error) {
	if missing := d.Missing(); len(missing) > 0 {
		return FinalizedDeal{}, &IncompleteDealError{Missing: missing}
	}
	var fd FinalizedDeal
	for _, rank := range Ranks {
		self, _ := d.Self(rank)
		partner, _ := d.Partner(rank)
		fd = fd.with(rank, Split{Self: self, Partner: partner})
	}
	return fd, nil
}

// FromFinalized rebuilds a draft from a finalized deal after checking it
// against issues.
func FromFinalized(fd FinalizedDeal, issues Issues) (*Draft, error) {
	if err := ValidateIncoming(fd, issues); err != nil {
		return nil, err
	}
	d := NewDraft(issues)
	for _, rank := range Ranks {
		split, _ := fd.Split(rank)
		if err := d.SetShare(rank, split.Self); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Split is one issue's division from the holder's perspective.
type Split struct {
	Self    int
	Partner int
}

// FinalizedDeal is an immutable division of all issues. Values received from
// a partner are untrusted until ValidateIncoming accepts them.
type FinalizedDeal struct {
	splits  [3]Split
	present [3]bool
}

// NewFinalizedDeal builds a deal from per-rank splits. Unknown ranks are
// ignored; absent ranks are reported by ValidateIncoming.
func NewFinalizedDeal(splits map[Rank]Split) FinalizedDeal {
	var fd FinalizedDeal
	for rank, split := range splits {
		fd = fd.with(rank, split)
	}
	return fd
}

func (fd FinalizedDeal) with(rank Rank, split Split) FinalizedDeal {
	if idx := rank.index(); idx >= 0 {
		fd.splits[idx] = split
		fd.present[idx] = true
	}
	return fd
}

// Split returns the division of rank.
func (fd FinalizedDeal) Split(rank Rank) (Split, bool) {
	idx := rank.index()
	if idx < 0 || !fd.present[idx] {
		return Split{}, false
	}
	return fd.splits[idx], true
}

// Mirror returns the same deal seen from the other party.
func (fd FinalizedDeal) Mirror() FinalizedDeal {
	out := fd
	for i := range out.splits {
		out.splits[i] = Split{Self: fd.splits[i].Partner, Partner: fd.splits[i].Self}
	}
	return out
}

// IsZero reports whether no issue is present.
func (fd FinalizedDeal) IsZero() bool {
	return fd.present == [3]bool{}
}

// ValidateIncoming checks every issue of a received deal: presence, range of
// both shares and conservation. All violations are reported together.
func ValidateIncoming(fd FinalizedDeal, issues Issues) error {
	var violations []Violation
	for _, rank := range Ranks {
		issue, ok := issues.Get(rank)
		if !ok {
			violations = append(violations, Violation{Rank: rank, Label: string(rank), Reason: "issue not configured"})
			continue
		}
		split, ok := fd.Split(rank)
		if !ok {
			violations = append(violations, Violation{Rank: rank, Label: issue.Label, Reason: "share missing"})
			continue
		}
		switch {
		case split.Self < 0 || split.Self > issue.Total:
			violations = append(violations, Violation{Rank: rank, Label: issue.Label,
				Reason: fmt.Sprintf("self share %d outside 0..%d", split.Self, issue.Total)})
		case split.Partner < 0 || split.Partner > issue.Total:
			violations = append(violations, Violation{Rank: rank, Label: issue.Label,
				Reason: fmt.Sprintf("partner share %d outside 0..%d", split.Partner, issue.Total)})
		case split.Self+split.Partner != issue.Total:
			violations = append(violations, Violation{Rank: rank, Label: issue.Label,
				Reason: fmt.Sprintf("self %d + partner %d != total %d", split.Self, split.Partner, issue.Total)})
		}
	}
	if len(violations) > 0 {
		return &InvalidDealError{Violations: violations}
	}
	return nil
}
