package formengine

import (
	"github.com/SanteonNL/formfill/lib/logging"
	"github.com/SanteonNL/formfill/lib/to"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// Rule evaluation for Questionnaire.item.enableWhen.
//
// A rule set is satisfied when at least one rule matches (logical OR,
// short-circuiting on the first hit). Equals compares strictly, NotEquals
// coerces both sides before comparing. The asymmetry is inherited behavior
// and kept on purpose; see compareValues.

// RuleDiagnostic reports an enableWhen rule that carries no recognized
// answer[x] field. Such a rule can never match; this is a configuration
// problem of the questionnaire, not a runtime failure.
type RuleDiagnostic struct {
	// Question is the linkId the rule refers to.
	Question string
	Operator fhir.QuestionnaireItemOperator
	Reason   string
}

// IsEnabled reports whether an item with the given enableWhen rules is active
// for the current answers. An empty or absent rule set enables the item.
func IsEnabled(rules []fhir.QuestionnaireItemEnableWhen, store AnswerStore) bool {
	if len(rules) == 0 {
		return true
	}
	for _, rule := range rules {
		expected, ok := expectedRuleValue(rule)
		if !ok {
			// Unsatisfiable as configured, skip. Reported by Diagnose.
			log.Warn().
				Str(logging.FieldLinkID, rule.Question).
				Str(logging.FieldOperator, rule.Operator.Code()).
				Msg("enableWhen rule has no recognized answer[x] field")
			continue
		}
		if compareValues(rule.Operator, store.Get(rule.Question).Value, expected) {
			return true
		}
	}
	return false
}

// Diagnose statically checks all enableWhen rules in the questionnaire and
// reports the ones that can never match. The result is advisory: rendering
// and submission proceed regardless.
func Diagnose(questionnaire fhir.Questionnaire) []RuleDiagnostic {
	return diagnoseItems(questionnaire.Item, nil)
}

func diagnoseItems(items []fhir.QuestionnaireItem, diags []RuleDiagnostic) []RuleDiagnostic {
	for _, item := range items {
		for _, rule := range item.EnableWhen {
			if _, ok := expectedRuleValue(rule); !ok {
				diags = append(diags, RuleDiagnostic{
					Question: rule.Question,
					Operator: rule.Operator,
					Reason:   "enableWhen rule has no recognized answer[x] field",
				})
			}
		}
		diags = diagnoseItems(item.Item, diags)
	}
	return diags
}

// expectedRuleValue extracts the single typed expected value from a rule.
// When more than one answer[x] field is present the first match wins, in this
// fixed order: boolean, coding.code, decimal, integer, quantity, string.
func expectedRuleValue(rule fhir.QuestionnaireItemEnableWhen) (any, bool) {
	switch {
	case rule.AnswerBoolean != nil:
		return *rule.AnswerBoolean, true
	case rule.AnswerCoding != nil:
		return to.EmptyString(rule.AnswerCoding.Code), true
	case rule.AnswerDecimal != nil:
		return *rule.AnswerDecimal, true
	case rule.AnswerInteger != nil:
		return *rule.AnswerInteger, true
	case rule.AnswerQuantity != nil:
		return *rule.AnswerQuantity, true
	case rule.AnswerString != nil:
		return *rule.AnswerString, true
	}
	return nil, false
}

// compareValues applies the rule operator to a stored value and the expected
// value. A nil stored value satisfies NotEquals (an unanswered question is
// unequal to any expectation) and a falsy Exists expectation; every other
// operator needs a value. Unknown operators never match.
func compareValues(operator fhir.QuestionnaireItemOperator, value any, expected any) bool {
	if operator == fhir.QuestionnaireItemOperatorExists {
		if truthy(expected) {
			return value != nil
		}
		return value == nil
	}
	if operator == fhir.QuestionnaireItemOperatorNotEquals {
		return value == nil || !looseEqual(value, expected)
	}
	if value == nil {
		return false
	}
	switch operator {
	case fhir.QuestionnaireItemOperatorEquals:
		return strictEqual(value, expected)
	case fhir.QuestionnaireItemOperatorGreaterThan:
		ordering, ok := order(value, expected)
		return ok && ordering > 0
	case fhir.QuestionnaireItemOperatorGreaterOrEquals:
		ordering, ok := order(value, expected)
		return ok && ordering >= 0
	case fhir.QuestionnaireItemOperatorLessThan:
		ordering, ok := order(value, expected)
		return ok && ordering < 0
	case fhir.QuestionnaireItemOperatorLessOrEquals:
		ordering, ok := order(value, expected)
		return ok && ordering <= 0
	default:
		return false
	}
}
