package formengine

import (
	"strconv"

	"github.com/SanteonNL/formfill/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// Build assembles a QuestionnaireResponse from the questionnaire and the
// current answers. The response item tree mirrors the questionnaire item tree:
// same linkIds, same order. Build is pure, the store is not modified and no
// timestamps are added.
func Build(questionnaire fhir.Questionnaire, store AnswerStore) fhir.QuestionnaireResponse {
	return fhir.QuestionnaireResponse{
		Status:        fhir.QuestionnaireResponseStatusInProgress,
		Questionnaire: canonicalRef(questionnaire),
		Item:          buildItems(questionnaire.Item, store),
	}
}

// canonicalRef identifies the source questionnaire, preferring its canonical
// URL over a relative literal reference.
func canonicalRef(questionnaire fhir.Questionnaire) *string {
	if questionnaire.Url != nil {
		return questionnaire.Url
	}
	if questionnaire.Id != nil {
		return to.Ptr("Questionnaire/" + *questionnaire.Id)
	}
	return nil
}

func buildItems(items []fhir.QuestionnaireItem, store AnswerStore) []fhir.QuestionnaireResponseItem {
	result := make([]fhir.QuestionnaireResponseItem, 0, len(items))
	for _, item := range items {
		responseItem := fhir.QuestionnaireResponseItem{
			Id:         item.Id,
			LinkId:     item.LinkId,
			Definition: item.Definition,
			Text:       item.Text,
			Extension:  item.Extension,
			Answer:     buildAnswers(item, store),
		}
		// Structural items carry their children inside the synthetic answer
		// entry; only value-bearing items nest children on the item itself.
		if !isStructural(item.Type) && len(item.Item) > 0 {
			responseItem.Item = buildItems(item.Item, store)
		}
		result = append(result, responseItem)
	}
	return result
}

func isStructural(itemType fhir.QuestionnaireItemType) bool {
	switch itemType {
	case fhir.QuestionnaireItemTypeGroup, fhir.QuestionnaireItemTypeQuestion, fhir.QuestionnaireItemTypeDisplay:
		return true
	}
	return false
}

// buildAnswers computes the answer entries for one item. Structural items get
// exactly one synthetic entry holding the recursively built children. Items
// without a stored value get an empty (non-nil) slice: a missing answer is
// not an error at this layer, the Validator decides that.
func buildAnswers(item fhir.QuestionnaireItem, store AnswerStore) []fhir.QuestionnaireResponseItemAnswer {
	if isStructural(item.Type) {
		return []fhir.QuestionnaireResponseItemAnswer{{
			Id:        to.Ptr("1"),
			Extension: []fhir.Extension{},
			Item:      buildItems(item.Item, store),
		}}
	}

	value := store.Get(item.LinkId).Value
	if value == nil {
		return []fhir.QuestionnaireResponseItemAnswer{}
	}

	if to.Empty(item.Repeats) {
		if elements, ok := value.([]any); ok {
			answers := make([]fhir.QuestionnaireResponseItemAnswer, 0, len(elements))
			for i, element := range elements {
				answers = append(answers, newAnswer(strconv.Itoa(i+1), item.Type, element))
			}
			return answers
		}
	}
	return []fhir.QuestionnaireResponseItemAnswer{newAnswer("1", item.Type, value)}
}

// newAnswer dispatches the stored value into the value[x] field that belongs
// to the item type. Values that cannot be represented in the target type
// leave the entry valueless rather than guessing a different field.
func newAnswer(id string, itemType fhir.QuestionnaireItemType, value any) fhir.QuestionnaireResponseItemAnswer {
	answer := fhir.QuestionnaireResponseItemAnswer{
		Id:        to.Ptr(id),
		Extension: []fhir.Extension{},
	}
	switch itemType {
	case fhir.QuestionnaireItemTypeBoolean:
		if v, ok := value.(bool); ok {
			answer.ValueBoolean = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeDecimal:
		if v, ok := asNumber(value); ok {
			answer.ValueDecimal = &v
		}
	case fhir.QuestionnaireItemTypeInteger:
		if v, ok := asInt(value); ok {
			answer.ValueInteger = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeDate:
		if v, ok := value.(string); ok {
			answer.ValueDate = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeDateTime:
		if v, ok := value.(string); ok {
			answer.ValueDateTime = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeTime:
		if v, ok := value.(string); ok {
			answer.ValueTime = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeString, fhir.QuestionnaireItemTypeText:
		if v, ok := value.(string); ok {
			answer.ValueString = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeUrl:
		if v, ok := value.(string); ok {
			answer.ValueUri = to.Ptr(v)
		}
	case fhir.QuestionnaireItemTypeChoice, fhir.QuestionnaireItemTypeOpenChoice:
		if v, ok := asCoding(value); ok {
			answer.ValueCoding = v
		}
	case fhir.QuestionnaireItemTypeQuantity:
		if v, ok := asTyped[fhir.Quantity](value); ok {
			answer.ValueQuantity = v
		}
	case fhir.QuestionnaireItemTypeAttachment:
		if v, ok := asTyped[fhir.Attachment](value); ok {
			answer.ValueAttachment = v
		}
	case fhir.QuestionnaireItemTypeReference:
		if v, ok := asTyped[fhir.Reference](value); ok {
			answer.ValueReference = v
		}
	}
	return answer
}
