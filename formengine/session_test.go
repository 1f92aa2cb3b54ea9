package formengine

import (
	"context"
	"errors"
	"testing"

	"github.com/SanteonNL/formfill/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestSession(t *testing.T) {
	t.Run("change callback fires with store and errors", func(t *testing.T) {
		var gotStore AnswerStore
		var gotErrs ErrorMap
		session := NewSession(validationQuestionnaire(), nil, Callbacks{
			OnChange: func(store AnswerStore, errs ErrorMap) {
				gotStore, gotErrs = store, errs
			},
		})
		require.NotEmpty(t, session.ID)

		session.SetValue("smoker", true)

		assert.Equal(t, true, gotStore.Get("smoker").Value)
		assert.Equal(t, "answer is required", gotErrs["packs-per-day"])
	})

	t.Run("submit is rejected while errors remain", func(t *testing.T) {
		session := NewSession(validationQuestionnaire(), nil, Callbacks{
			OnSubmit: func(context.Context, fhir.QuestionnaireResponse, AnswerStore) error {
				t.Fatal("submit callback must not fire on an invalid form")
				return nil
			},
		})
		response, err := session.Submit(context.Background())
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Nil(t, response)
		assert.False(t, session.Errors().OK())
	})

	t.Run("clean form submits the built response", func(t *testing.T) {
		var submitted *fhir.QuestionnaireResponse
		session := NewSession(validationQuestionnaire(), nil, Callbacks{
			OnSubmit: func(_ context.Context, response fhir.QuestionnaireResponse, store AnswerStore) error {
				submitted = &response
				assert.Equal(t, false, store.Get("smoker").Value)
				return nil
			},
		})
		session.SetValue("name", "Jo")
		session.SetValue("smoker", false)

		response, err := session.Submit(context.Background())
		require.NoError(t, err)
		require.NotNil(t, submitted)
		assert.Equal(t, fhir.QuestionnaireResponseStatusInProgress, response.Status)
		assert.Equal(t, "name", response.Item[0].LinkId)
	})

	t.Run("submit callback failure surfaces", func(t *testing.T) {
		callbackErr := errors.New("upstream rejected the response")
		session := NewSession(validationQuestionnaire(), nil, Callbacks{
			OnSubmit: func(context.Context, fhir.QuestionnaireResponse, AnswerStore) error {
				return callbackErr
			},
		})
		session.SetValue("name", "Jo")
		session.SetValue("smoker", false)

		_, err := session.Submit(context.Background())
		assert.ErrorIs(t, err, callbackErr)
	})

	t.Run("seeded answers are validated immediately", func(t *testing.T) {
		initial := AnswerStore{}.Set("smoker", "not a bool")
		session := NewSession(validationQuestionnaire(), initial, Callbacks{})
		assert.Equal(t, "expected a boolean answer", session.Errors()["smoker"])
	})

	t.Run("active follows the answers", func(t *testing.T) {
		session := NewSession(validationQuestionnaire(), nil, Callbacks{})
		assert.Len(t, session.Active(), 2)
		session.SetValue("smoker", true)
		assert.Len(t, session.Active(), 4)
	})

	t.Run("diagnostics report broken rules once at start", func(t *testing.T) {
		questionnaire := fhir.Questionnaire{
			Status: fhir.PublicationStatusActive,
			Item: []fhir.QuestionnaireItem{{
				LinkId: "q2",
				Type:   fhir.QuestionnaireItemTypeString,
				EnableWhen: []fhir.QuestionnaireItemEnableWhen{{
					Question: "q1",
					Operator: fhir.QuestionnaireItemOperatorEquals,
				}},
			}},
		}
		session := NewSession(questionnaire, nil, Callbacks{})
		require.Len(t, session.Diagnostics(), 1)
		assert.Equal(t, "q1", session.Diagnostics()[0].Question)
	})
}

func TestSession_SetChoice(t *testing.T) {
	repeatingItem := fhir.QuestionnaireItem{
		LinkId:  "symptoms",
		Type:    fhir.QuestionnaireItemTypeChoice,
		Repeats: to.Ptr(true),
	}
	questionnaire := fhir.Questionnaire{
		Status: fhir.PublicationStatusActive,
		Item: []fhir.QuestionnaireItem{
			repeatingItem,
			{LinkId: "mood", Type: fhir.QuestionnaireItemTypeChoice},
		},
	}

	t.Run("single choice overwrites", func(t *testing.T) {
		session := NewSession(questionnaire, nil, Callbacks{})
		session.SetChoice(questionnaire.Item[1], "good")
		session.SetChoice(questionnaire.Item[1], "bad")
		assert.Equal(t, "bad", session.Store().Get("mood").Value)
	})

	t.Run("repeating choice accumulates", func(t *testing.T) {
		session := NewSession(questionnaire, nil, Callbacks{})
		session.SetChoice(repeatingItem, "fever")
		session.SetChoice(repeatingItem, "cough")
		assert.Equal(t, []any{"fever", "cough"}, session.Store().Get("symptoms").Value)
	})

	t.Run("re-selecting a repeating choice removes it", func(t *testing.T) {
		session := NewSession(questionnaire, nil, Callbacks{})
		session.SetChoice(repeatingItem, "fever")
		session.SetChoice(repeatingItem, "cough")
		session.SetChoice(repeatingItem, "fever")
		assert.Equal(t, []any{"cough"}, session.Store().Get("symptoms").Value)
	})
}
