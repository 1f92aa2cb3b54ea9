package formengine

import (
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// ActiveItems filters sibling items down to those whose enableWhen rules
// currently pass, preserving their order. It does not descend into child
// items; callers walking the tree apply it per nesting level.
func ActiveItems(items []fhir.QuestionnaireItem, store AnswerStore) []fhir.QuestionnaireItem {
	result := make([]fhir.QuestionnaireItem, 0, len(items))
	for _, item := range items {
		if IsEnabled(item.EnableWhen, store) {
			result = append(result, item)
		}
	}
	return result
}

// ActiveCount counts the items ActiveItems would keep. Used for progress
// indicators and wizard paging.
func ActiveCount(items []fhir.QuestionnaireItem, store AnswerStore) int {
	count := 0
	for _, item := range items {
		if IsEnabled(item.EnableWhen, store) {
			count++
		}
	}
	return count
}
