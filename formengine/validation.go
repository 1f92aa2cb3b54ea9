package formengine

import (
	"github.com/SanteonNL/formfill/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// ErrorMap mirrors the AnswerStore keying: linkId to validation message.
// An empty map means the form may be submitted.
type ErrorMap map[string]string

// OK reports whether the map contains no errors.
func (e ErrorMap) OK() bool {
	return len(e) == 0
}

// Validate walks the active subtree of the questionnaire and checks every
// active question's answer. Items disabled by their enableWhen rules are
// skipped entirely, including their descendants: a child is only validated
// when all of its ancestors are active.
//
// Validation never blocks editing. It produces the error map that gates
// submission.
func Validate(questionnaire fhir.Questionnaire, store AnswerStore) ErrorMap {
	errs := ErrorMap{}
	validateItems(questionnaire.Item, store, errs)
	return errs
}

func validateItems(items []fhir.QuestionnaireItem, store AnswerStore, errs ErrorMap) {
	for _, item := range ActiveItems(items, store) {
		if msg := validateItem(item, store); msg != "" {
			errs[item.LinkId] = msg
		}
		validateItems(item.Item, store, errs)
	}
}

func validateItem(item fhir.QuestionnaireItem, store AnswerStore) string {
	check, answerable := valueChecks[item.Type]
	if !answerable {
		// structural items carry no answer of their own
		return ""
	}
	value := store.Get(item.LinkId).Value
	if isEmptyValue(value) {
		if to.Empty(item.Required) {
			return "answer is required"
		}
		return ""
	}
	if to.Empty(item.Repeats) {
		if elements, ok := value.([]any); ok {
			for _, element := range elements {
				if !check.fn(element) {
					return "expected " + check.want
				}
			}
			return ""
		}
	}
	if !check.fn(value) {
		return "expected " + check.want
	}
	return ""
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	}
	return false
}

type valueCheck struct {
	want string
	fn   func(any) bool
}

// valueChecks is the per-type answer constraint table, built once. Types
// absent from the table (group, display, question) take no answer.
var valueChecks = map[fhir.QuestionnaireItemType]valueCheck{
	fhir.QuestionnaireItemTypeBoolean: {"a boolean answer", func(v any) bool {
		_, ok := v.(bool)
		return ok
	}},
	fhir.QuestionnaireItemTypeDecimal: {"a numeric answer", func(v any) bool {
		_, ok := asNumber(v)
		return ok
	}},
	fhir.QuestionnaireItemTypeInteger: {"an integer answer", func(v any) bool {
		_, ok := asInt(v)
		return ok
	}},
	fhir.QuestionnaireItemTypeDate:     {"a date answer", isString},
	fhir.QuestionnaireItemTypeDateTime: {"a dateTime answer", isString},
	fhir.QuestionnaireItemTypeTime:     {"a time answer", isString},
	fhir.QuestionnaireItemTypeString:   {"a text answer", isString},
	fhir.QuestionnaireItemTypeText:     {"a text answer", isString},
	fhir.QuestionnaireItemTypeUrl:      {"a URL answer", isString},
	fhir.QuestionnaireItemTypeChoice: {"a coded answer", func(v any) bool {
		_, ok := asCoding(v)
		return ok
	}},
	fhir.QuestionnaireItemTypeOpenChoice: {"a coded answer", func(v any) bool {
		_, ok := asCoding(v)
		return ok
	}},
	fhir.QuestionnaireItemTypeQuantity: {"a quantity answer", func(v any) bool {
		_, ok := asTyped[fhir.Quantity](v)
		return ok
	}},
	fhir.QuestionnaireItemTypeAttachment: {"an attachment answer", func(v any) bool {
		_, ok := asTyped[fhir.Attachment](v)
		return ok
	}},
	fhir.QuestionnaireItemTypeReference: {"a reference answer", func(v any) bool {
		_, ok := asTyped[fhir.Reference](v)
		return ok
	}},
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
