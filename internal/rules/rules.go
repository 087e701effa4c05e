// Package rules holds the stateless predicates that gate every participant
// submission. Nothing here knows about phases or transport; callers combine
// the results into enabled/disabled action states.
package rules

import (
	"regexp"
	"strings"
)

const (
	// SurveyCodeLength is the exact number of characters in a survey code.
	SurveyCodeLength = 10
	// SurveyCodeMarker must appear at SurveyCodeMarkerOffset.
	SurveyCodeMarker = "T2"
	// SurveyCodeMarkerOffset is the zero-based index of the marker.
	SurveyCodeMarkerOffset = 4
	// DefaultMinWords is the minimum word count for free-text justifications.
	DefaultMinWords = 5
	// Placeholder is the unselected value of every categorical field.
	Placeholder = "-"
)

// Reason is a stable machine-readable code explaining a failed rule.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonSurveyCodeLength   Reason = "survey_code_length"
	ReasonSurveyCodeSpace    Reason = "survey_code_space"
	ReasonSurveyCodeMarker   Reason = "survey_code_marker"
	ReasonEmptyText          Reason = "empty_text"
	ReasonTooFewWords        Reason = "too_few_words"
	ReasonDraftIncomplete    Reason = "draft_incomplete"
	ReasonSurveyIncomplete   Reason = "survey_incomplete"
	ReasonReasonsIncomplete  Reason = "reasons_incomplete"
	ReasonUnknownSurveyValue Reason = "unknown_survey_value"
)

// Result is the outcome of a single rule.
type Result struct {
	OK     bool
	Reason Reason
	// Detail carries human-readable context, e.g. which field failed.
	Detail string
}

func pass() Result { return Result{OK: true} }

func fail(reason Reason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

// IsValidSurveyCode performs the structural check on a survey completion
// code: exactly ten characters, no spaces, marker "T2" at offset 4.
// Already-used codes are the orchestrator's concern.
func IsValidSurveyCode(code string) Result {
	runes := []rune(code)
	if len(runes) != SurveyCodeLength {
		return fail(ReasonSurveyCodeLength, "survey code must be exactly 10 characters")
	}
	if strings.ContainsRune(code, ' ') {
		return fail(ReasonSurveyCodeSpace, "survey code must not contain spaces")
	}
	marker := []rune(SurveyCodeMarker)
	if runes[SurveyCodeMarkerOffset] != marker[0] || runes[SurveyCodeMarkerOffset+1] != marker[1] {
		return fail(ReasonSurveyCodeMarker, "survey code marker not found")
	}
	return pass()
}

var (
	edgeWhitespace = regexp.MustCompile(`(^\s*)|(\s*$)`)
	spaceRuns      = regexp.MustCompile(`[ ]{2,}`)
)

// WordCount trims the text, collapses runs of spaces, folds "\n " into
// "\n" and counts the remaining tokens delimited by spaces or newlines.
func WordCount(s string) int {
	s = edgeWhitespace.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n ", "\n")
	return len(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\n'
	}))
}

// MeetsMinimumWords reports whether s is non-empty and has at least k words.
// A non-positive k falls back to DefaultMinWords.
func MeetsMinimumWords(s string, k int) Result {
	if k <= 0 {
		k = DefaultMinWords
	}
	if strings.TrimSpace(s) == "" {
		return fail(ReasonEmptyText, "text is required")
	}
	if WordCount(s) < k {
		return fail(ReasonTooFewWords, "please be more specific and write complete sentences")
	}
	return pass()
}

// DraftState is the view of a deal draft the completeness rule needs.
type DraftState interface {
	// UnsetLabels lists the issues whose share has not been chosen yet.
	UnsetLabels() []string
}

// DealDraftComplete is true iff every issue has a chosen share.
func DealDraftComplete(draft DraftState) Result {
	if draft == nil {
		return fail(ReasonDraftIncomplete, "no draft")
	}
	if missing := draft.UnsetLabels(); len(missing) > 0 {
		return fail(ReasonDraftIncomplete, "missing: "+strings.Join(missing, ", "))
	}
	return pass()
}

// OnboardingReasonsComplete requires all three justifications to be present
// and each to reach k words.
func OnboardingReasonsComplete(answers OnboardingAnswers, k int) Result {
	var short []string
	for _, field := range answers.reasonFields() {
		if res := MeetsMinimumWords(field.value, k); !res.OK {
			short = append(short, field.name)
		}
	}
	if len(short) > 0 {
		return fail(ReasonReasonsIncomplete, "too short: "+strings.Join(short, ", "))
	}
	return pass()
}

// PostSurveyComplete requires the six categorical answers to be selected.
// Feedback is optional.
func PostSurveyComplete(answers PostSurveyAnswers) Result {
	var missing []string
	for _, field := range answers.requiredFields() {
		if isPlaceholder(field.value) {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fail(ReasonSurveyIncomplete, "missing: "+strings.Join(missing, ", "))
	}
	if !IsScaleValue(LikenessScale, answers.Likeness) {
		return fail(ReasonUnknownSurveyValue, "likeness: unknown option")
	}
	if !IsScaleValue(SatisfactionScale, answers.Satisfaction) {
		return fail(ReasonUnknownSurveyValue, "satisfaction: unknown option")
	}
	return pass()
}

func isPlaceholder(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || trimmed == Placeholder
}
