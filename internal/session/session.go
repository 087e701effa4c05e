// Package session connects one participant's board controller to the
// outside world: it decodes orchestrator events into controller calls, runs
// the submit, send and settle sequence, and journals every step.
//
// A Session is owned by a single goroutine, the same one that owns the
// controller. Only Dispatch may run elsewhere.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/envelope"
	"github.com/kingrea/bargain/internal/eventbridge"
	"github.com/kingrea/bargain/internal/logbook"
)

// Sender delivers one envelope.
type Sender interface {
	Send(ctx context.Context, env envelope.Envelope) error
}

// ChatLine is one entry of the in-memory chat transcript.
type ChatLine struct {
	From string
	Text string
	Mine bool
	At   time.Time
}

// Session wraps a controller with event decoding and journaling.
type Session struct {
	controller *board.Controller
	journal    *logbook.Logbook
	clock      func() time.Time
	transcript []ChatLine
}

// New returns a session around controller. journal may be nil.
func New(controller *board.Controller, journal *logbook.Logbook) *Session {
	return &Session{
		controller: controller,
		journal:    journal,
		clock:      time.Now,
	}
}

// Controller exposes the underlying state machine for rendering.
func (s *Session) Controller() *board.Controller { return s.controller }

// Transcript returns the chat lines seen so far.
func (s *Session) Transcript() []ChatLine {
	out := make([]ChatLine, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Journal returns the session logbook.
func (s *Session) Journal() *logbook.Logbook { return s.journal }

// Apply decodes a bridge event and feeds it to the controller. Returned
// errors are informational: the controller stays consistent either way.
func (s *Session) Apply(evt eventbridge.Event) error {
	switch evt.Type {
	case eventbridge.TypeAssignPhase:
		return s.applyAssignment(evt)
	case eventbridge.TypeIncomingDeal:
		return s.applyIncomingDeal(evt)
	case eventbridge.TypeChatMessage:
		return s.applyChat(evt)
	case eventbridge.TypeTurn:
		var p turnPayload
		if err := decodePayload(evt, &p); err != nil {
			s.journal.Warn("%v", err)
			return err
		}
		s.controller.SetTurn(p.IsMyTurn)
		if p.NumMsgs != nil {
			s.controller.SetMessageCount(*p.NumMsgs)
		}
		return nil
	case eventbridge.TypeSessionEnd:
		var p sessionEndPayload
		if err := decodePayload(evt, &p); err != nil {
			s.journal.Warn("%v", err)
		}
		reason := strings.TrimSpace(p.Reason)
		if reason == "" {
			reason = "Your partner has left the session."
		}
		return s.assign(board.PhaseEnd, board.Assignment{Notice: reason})
	default:
		return fmt.Errorf("session: unsupported event type %q", evt.Type)
	}
}

func (s *Session) applyAssignment(evt eventbridge.Event) error {
	var p assignPhasePayload
	if err := decodePayload(evt, &p); err != nil {
		s.journal.Warn("%v", err)
		return err
	}
	phase, err := parseBoardStatus(p.BoardStatus)
	if err != nil {
		s.journal.Warn("%v", err)
		return err
	}
	labels, totals, err := p.issuesFrom()
	if err != nil {
		s.journal.Warn("%v", err)
		return err
	}
	a := board.Assignment{
		SurveyLink:   p.SurveyLink,
		IssueLabels:  labels,
		Totals:       totals,
		MessageCount: p.NumMsgs,
		IsMyTurn:     p.IsMyTurn,
		Notice:       p.Text,
	}
	var errs []error
	if hasDealData(p.DealData) {
		issues, ok := s.controller.Issues()
		if labels != nil {
			built, buildErr := deal.NewIssues(labels, totals)
			issues, ok = built, buildErr == nil
		}
		if !ok {
			errs = append(errs, errors.New("session: deal_data without a valid board"))
		} else if fd, decodeErr := partnerDeal(p.DealData, issues); decodeErr != nil {
			s.journal.Warn("partner deal dropped: %v", decodeErr)
			errs = append(errs, decodeErr)
		} else {
			a.Deal = &fd
		}
	}
	errs = append(errs, s.assign(phase, a))
	return errors.Join(errs...)
}

func (s *Session) assign(phase board.Phase, a board.Assignment) error {
	from := s.controller.Phase()
	err := s.controller.AssignPhase(phase, a)
	if from != s.controller.Phase() {
		s.journal.Info("phase %s -> %s (assigned)", from, s.controller.Phase())
	}
	var invalid *deal.InvalidDealError
	if errors.As(err, &invalid) {
		s.journal.Warn("partner deal rejected: %v", invalid)
	} else if err != nil {
		s.journal.Warn("assignment: %v", err)
	}
	return err
}

func (s *Session) applyIncomingDeal(evt eventbridge.Event) error {
	var p incomingDealPayload
	if err := decodePayload(evt, &p); err != nil {
		s.journal.Warn("%v", err)
		return err
	}
	issues, ok := s.controller.Issues()
	if !ok {
		err := errors.New("session: partner deal before issues were assigned")
		s.journal.Warn("%v", err)
		return err
	}
	fd, err := partnerDeal(p.DealData, issues)
	if err != nil {
		s.journal.Warn("partner deal dropped: %v", err)
		return err
	}
	from := s.controller.Phase()
	if err := s.controller.DeliverIncomingDeal(fd); err != nil {
		s.journal.Warn("partner deal rejected: %v", err)
		return err
	}
	s.journal.Info("phase %s -> %s (partner proposed)", from, s.controller.Phase())
	return nil
}

func (s *Session) applyChat(evt eventbridge.Event) error {
	var p chatPayload
	if err := decodePayload(evt, &p); err != nil {
		s.journal.Warn("%v", err)
		return err
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil
	}
	from := strings.TrimSpace(p.Sender)
	if from == "" {
		from = "Partner"
	}
	s.transcript = append(s.transcript, ChatLine{From: from, Text: text, At: s.clock()})
	if p.NumMsgs != nil {
		s.controller.SetMessageCount(*p.NumMsgs)
	} else {
		s.controller.ObserveChat()
	}
	return nil
}

// Submit validates and stages action. The returned Pending must be passed
// to Dispatch and then Settle.
func (s *Session) Submit(action envelope.Action, fields board.Fields) (*board.Pending, error) {
	from := s.controller.Phase()
	pending, err := s.controller.Submit(action, fields)
	if err != nil {
		s.journal.Warn("%s not submitted: %v", action, err)
		return nil, err
	}
	s.journal.Info("submitted %s (%s -> %s)", pending.Envelope.Summary(), from, s.controller.Phase())
	return pending, nil
}

// Chat stages a chat line.
func (s *Session) Chat(text string) (*board.Pending, error) {
	pending, err := s.controller.ComposeChat(text)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Dispatch hands the staged envelope to sender. It reads only the envelope,
// so it is safe to call from a goroutine other than the owner's.
func Dispatch(ctx context.Context, sender Sender, pending *board.Pending) error {
	if pending == nil {
		return board.ErrStalePending
	}
	return sender.Send(ctx, pending.Envelope)
}

// Settle completes a submission with the delivery result.
func (s *Session) Settle(pending *board.Pending, sendErr error) error {
	before := s.controller.Phase()
	err := s.controller.Settle(pending, sendErr)
	if errors.Is(err, board.ErrStalePending) {
		return err
	}
	action := pending.Action()
	if err != nil {
		if before != s.controller.Phase() {
			s.journal.Error("delivery of %s failed, back to %s: %v", action, s.controller.Phase(), sendErr)
		} else {
			s.journal.Error("delivery of %s failed: %v", action, sendErr)
		}
		return err
	}
	if action == envelope.ActionChat {
		s.transcript = append(s.transcript, ChatLine{
			From: "You",
			Text: pending.Envelope.DisplayText,
			Mine: true,
			At:   s.clock(),
		})
		return nil
	}
	s.journal.Info("delivered %s", action)
	return nil
}
