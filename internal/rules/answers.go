package rules

// OnboardingAnswers holds the pre-negotiation form.
type OnboardingAnswers struct {
	SurveyCode   string
	HighReason   string
	MediumReason string
	LowReason    string
}

// PostSurveyAnswers holds the final questionnaire. Item guesses carry issue
// display labels.
type PostSurveyAnswers struct {
	Likeness           string
	Satisfaction       string
	HighestItem        string
	LowestItem         string
	PartnerHighestItem string
	PartnerLowestItem  string
	Feedback           string
}

// LikenessScale lists the five-point options for "how much do you like your
// partner", lowest first.
var LikenessScale = []string{
	"Extremely dislike",
	"Slightly dislike",
	"Undecided",
	"Slightly like",
	"Extremely like",
}

// SatisfactionScale lists the five-point outcome satisfaction options.
var SatisfactionScale = []string{
	"Extremely dissatisfied",
	"Slightly dissatisfied",
	"Undecided",
	"Slightly satisfied",
	"Extremely satisfied",
}

// IsScaleValue reports whether value is one of the scale's options.
func IsScaleValue(scale []string, value string) bool {
	for _, option := range scale {
		if option == value {
			return true
		}
	}
	return false
}

type namedField struct {
	name  string
	value string
}

func (a OnboardingAnswers) reasonFields() []namedField {
	return []namedField{
		{name: "high_reason", value: a.HighReason},
		{name: "medium_reason", value: a.MediumReason},
		{name: "low_reason", value: a.LowReason},
	}
}

func (a PostSurveyAnswers) requiredFields() []namedField {
	return []namedField{
		{name: "likeness", value: a.Likeness},
		{name: "satisfaction", value: a.Satisfaction},
		{name: "highest_item", value: a.HighestItem},
		{name: "lowest_item", value: a.LowestItem},
		{name: "partner_highest_item", value: a.PartnerHighestItem},
		{name: "partner_lowest_item", value: a.PartnerLowestItem},
	}
}
