package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kingrea/bargain/internal/rules"
)

// ErrContract wraps every payload contract violation.
var ErrContract = errors.New("envelope: contract violation")

var (
	contractOnce    sync.Once
	contractSchemas map[Action]*jsonschema.Schema
	contractErr     error
)

func stringProp() map[string]any { return map[string]any{"type": "string"} }

func nonEmptyString() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func enumOf(values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func decisionSchema(d Decision) map[string]any {
	return map[string]any{
		"type":                 "object",
		"required":             []string{"data"},
		"additionalProperties": false,
		"properties": map[string]any{
			"data": map[string]any{"const": string(d)},
		},
	}
}

func shareMap() map[string]any {
	return map[string]any{
		"type":          "object",
		"minProperties": 3,
		"maxProperties": 3,
		"additionalProperties": map[string]any{
			"type":    "integer",
			"minimum": 0,
		},
	}
}

func contractDocuments() map[Action]map[string]any {
	return map[Action]map[string]any{
		ActionSubmitOnboardingCode: {
			"type":                 "object",
			"required":             []string{"qualtrics_code"},
			"additionalProperties": false,
			"properties": map[string]any{
				"qualtrics_code": map[string]any{
					"type":    "string",
					"pattern": fmt.Sprintf("^[^ ]{%d}%s[^ ]{%d}$", rules.SurveyCodeMarkerOffset, rules.SurveyCodeMarker, rules.SurveyCodeLength-rules.SurveyCodeMarkerOffset-len(rules.SurveyCodeMarker)),
				},
			},
		},
		ActionSubmitOnboardingReasons: {
			"type":                 "object",
			"required":             []string{"high_reason", "medium_reason", "low_reason"},
			"additionalProperties": false,
			"properties": map[string]any{
				"high_reason":   nonEmptyString(),
				"medium_reason": nonEmptyString(),
				"low_reason":    nonEmptyString(),
			},
		},
		ActionProposeDeal: {
			"type":                 "object",
			"required":             []string{"issue2youget", "issue2theyget"},
			"additionalProperties": false,
			"properties": map[string]any{
				"issue2youget":  shareMap(),
				"issue2theyget": shareMap(),
			},
		},
		ActionWalkAway:   decisionSchema(DecisionWalkAway),
		ActionAcceptDeal: decisionSchema(DecisionAccept),
		ActionRejectDeal: decisionSchema(DecisionReject),
		ActionSubmitPostSurvey: {
			"type": "object",
			"required": []string{
				"likeness", "satisfaction", "highest_item", "lowest_item",
				"partner_highest_item", "partner_lowest_item", "feedback",
			},
			"additionalProperties": false,
			"properties": map[string]any{
				"likeness":             enumOf(rules.LikenessScale),
				"satisfaction":         enumOf(rules.SatisfactionScale),
				"highest_item":         nonEmptyString(),
				"lowest_item":          nonEmptyString(),
				"partner_highest_item": nonEmptyString(),
				"partner_lowest_item":  nonEmptyString(),
				"feedback":             stringProp(),
			},
		},
	}
}

func loadContracts() (map[Action]*jsonschema.Schema, error) {
	contractOnce.Do(func() {
		compiled := map[Action]*jsonschema.Schema{}
		for action, doc := range contractDocuments() {
			encoded, err := json.Marshal(doc)
			if err != nil {
				contractErr = fmt.Errorf("envelope: encode %s schema: %w", action, err)
				return
			}
			c := jsonschema.NewCompiler()
			c.Draft = jsonschema.Draft2020
			url := fmt.Sprintf("https://bargain.schemas.local/envelope/%s.schema.json", action)
			if err := c.AddResource(url, bytes.NewReader(encoded)); err != nil {
				contractErr = fmt.Errorf("envelope: load %s schema: %w", action, err)
				return
			}
			schema, err := c.Compile(url)
			if err != nil {
				contractErr = fmt.Errorf("envelope: compile %s schema: %w", action, err)
				return
			}
			compiled[action] = schema
		}
		contractSchemas = compiled
	})
	return contractSchemas, contractErr
}

// Check verifies an envelope against the outbound contract: known action,
// sender present, the action's display text, and a payload matching the
// action's fixed field set.
func Check(e Envelope) error {
	if strings.TrimSpace(e.SenderID) == "" {
		return fmt.Errorf("%w: sender id is required", ErrContract)
	}
	action := e.Action()
	if action == "" {
		return fmt.Errorf("%w: unknown payload", ErrContract)
	}
	if action == ActionChat {
		if strings.TrimSpace(e.DisplayText) == "" {
			return fmt.Errorf("%w: chat text is required", ErrContract)
		}
		return nil
	}
	if e.DisplayText != action.DisplayText() {
		return fmt.Errorf("%w: %s must be sent as %q", ErrContract, action, action.DisplayText())
	}
	schemas, err := loadContracts()
	if err != nil {
		return err
	}
	schema, ok := schemas[action]
	if !ok {
		return fmt.Errorf("%w: no contract for %s", ErrContract, action)
	}
	value, err := payloadMap(e.Payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s payload: %v", ErrContract, action, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContract, action, err)
	}
	return nil
}
