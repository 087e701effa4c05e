package rules

import "testing"

func TestIsValidSurveyCode(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		want   bool
		reason Reason
	}{
		{name: "valid", code: "ABCDT2XYZ1", want: true},
		{name: "too-short", code: "ABCDT2XYZ", reason: ReasonSurveyCodeLength},
		{name: "too-long", code: "ABCDT2XYZ12", reason: ReasonSurveyCodeLength},
		{name: "space", code: "ABCD T2XYZ", reason: ReasonSurveyCodeSpace},
		{name: "wrong-marker", code: "ABCDX2XYZ1", reason: ReasonSurveyCodeMarker},
		{name: "marker-shifted", code: "ABCT2DXYZ1", reason: ReasonSurveyCodeMarker},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := IsValidSurveyCode(test.code)
			if got.OK != test.want {
				t.Fatalf("IsValidSurveyCode(%q).OK = %v, want %v", test.code, got.OK, test.want)
			}
			if got.Reason != test.reason {
				t.Fatalf("IsValidSurveyCode(%q).Reason = %q, want %q", test.code, got.Reason, test.reason)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"  hello   world  ":             2,
		"a\n b":                         2,
		"one":                           1,
		"I need water for the hike":     6,
		"tabs\tare not separators here": 4,
		"":                              0,
		"  \n ":                         0,
	}
	for input, want := range cases {
		if got := WordCount(input); got != want {
			t.Fatalf("WordCount(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestMeetsMinimumWords(t *testing.T) {
	if res := MeetsMinimumWords("", 5); res.OK || res.Reason != ReasonEmptyText {
		t.Fatalf("empty text should fail with %q, got %+v", ReasonEmptyText, res)
	}
	if res := MeetsMinimumWords("too few words", 5); res.OK || res.Reason != ReasonTooFewWords {
		t.Fatalf("short text should fail with %q, got %+v", ReasonTooFewWords, res)
	}
	if res := MeetsMinimumWords("I really need the firewood tonight", 5); !res.OK {
		t.Fatalf("expected six words to pass, got %+v", res)
	}
	if res := MeetsMinimumWords("one two three four", 0); res.OK {
		t.Fatalf("k<=0 should fall back to the default minimum")
	}
}

type fakeDraft []string

func (f fakeDraft) UnsetLabels() []string { return f }

func TestDealDraftComplete(t *testing.T) {
	if res := DealDraftComplete(fakeDraft(nil)); !res.OK {
		t.Fatalf("expected complete draft, got %+v", res)
	}
	res := DealDraftComplete(fakeDraft{"Water"})
	if res.OK || res.Reason != ReasonDraftIncomplete {
		t.Fatalf("expected incomplete draft, got %+v", res)
	}
	if res.Detail != "missing: Water" {
		t.Fatalf("unexpected detail %q", res.Detail)
	}
	if res := DealDraftComplete(nil); res.OK {
		t.Fatalf("nil draft must be incomplete")
	}
}

func TestOnboardingReasonsComplete(t *testing.T) {
	answers := OnboardingAnswers{
		HighReason:   "I am camping with my two kids",
		MediumReason: "water keeps us hydrated on hikes",
		LowReason:    "",
	}
	res := OnboardingReasonsComplete(answers, 5)
	if res.OK {
		t.Fatalf("missing low reason should fail")
	}
	if res.Detail != "too short: low_reason" {
		t.Fatalf("unexpected detail %q", res.Detail)
	}
	answers.LowReason = "we can gather firewood around the site"
	if res := OnboardingReasonsComplete(answers, 5); !res.OK {
		t.Fatalf("expected complete reasons, got %+v", res)
	}
}

func TestPostSurveyComplete(t *testing.T) {
	answers := PostSurveyAnswers{
		Likeness:           "Slightly like",
		Satisfaction:       "Undecided",
		HighestItem:        "Food",
		LowestItem:         "Firewood",
		PartnerHighestItem: "Water",
		PartnerLowestItem:  Placeholder,
	}
	res := PostSurveyComplete(answers)
	if res.OK || res.Reason != ReasonSurveyIncomplete {
		t.Fatalf("placeholder answer should fail, got %+v", res)
	}
	answers.PartnerLowestItem = "Food"
	if res := PostSurveyComplete(answers); !res.OK {
		t.Fatalf("expected complete survey, got %+v", res)
	}
	answers.Likeness = "Love them"
	if res := PostSurveyComplete(answers); res.OK || res.Reason != ReasonUnknownSurveyValue {
		t.Fatalf("unknown scale option should fail, got %+v", res)
	}
}
