package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/SanteonNL/formfill/formengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestRun(t *testing.T) {
	t.Run("complete answers produce a response document", func(t *testing.T) {
		config := DefaultConfig()
		config.Questionnaire = "testdata/questionnaire.json"
		config.Answers = "testdata/answers.json"

		var out bytes.Buffer
		require.NoError(t, run(context.Background(), config, &out))

		var response fhir.QuestionnaireResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &response))
		assert.Equal(t, "http://example.com/Questionnaire/intake", *response.Questionnaire)
		require.Len(t, response.Item, 3)
		assert.Equal(t, "Jo", *response.Item[0].Answer[0].ValueString)
		assert.Equal(t, 1.5, *response.Item[2].Answer[0].ValueDecimal)
	})

	t.Run("incomplete answers fail the run", func(t *testing.T) {
		config := DefaultConfig()
		config.Questionnaire = "testdata/questionnaire.json"

		var out bytes.Buffer
		err := run(context.Background(), config, &out)
		assert.ErrorIs(t, err, formengine.ErrValidationFailed)
		assert.Empty(t, out.Bytes())
	})

	t.Run("missing questionnaire without a FHIR server", func(t *testing.T) {
		config := DefaultConfig()
		config.Questionnaire = "testdata/does-not-exist.json"

		err := run(context.Background(), config, &bytes.Buffer{})
		assert.ErrorContains(t, err, "fhir.url is not configured")
	})
}

func TestRun_ExternalOptions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /fhir/ValueSet/occupations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		_, _ = w.Write([]byte(`{"resourceType":"ValueSet","status":"active","expansion":{"contains":[{"code":"nurse","display":"Nurse"}]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeQuestionnaire := func(t *testing.T, optionsURI string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "questionnaire.json")
		document := fmt.Sprintf(`{
			"resourceType": "Questionnaire",
			"id": "ext",
			"status": "active",
			"item": [{
				"linkId": "occupation",
				"type": "open-choice",
				"extension": [{
					"url": "http://hl7.org/fhir/StructureDefinition/questionnaire-externallydefined",
					"valueUri": %q
				}]
			}]
		}`, optionsURI)
		require.NoError(t, os.WriteFile(path, []byte(document), 0644))
		return path
	}

	t.Run("externally defined options are resolved before submit", func(t *testing.T) {
		config := DefaultConfig()
		config.Questionnaire = writeQuestionnaire(t, server.URL+"/fhir/ValueSet/occupations")
		config.FHIR.BaseURL = server.URL + "/fhir"

		var out bytes.Buffer
		require.NoError(t, run(context.Background(), config, &out))

		var response fhir.QuestionnaireResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &response))
		assert.Equal(t, "occupation", response.Item[0].LinkId)
	})

	t.Run("unresolvable options fail the run", func(t *testing.T) {
		config := DefaultConfig()
		config.Questionnaire = writeQuestionnaire(t, server.URL+"/fhir/ValueSet/does-not-exist")
		config.FHIR.BaseURL = server.URL + "/fhir"

		err := run(context.Background(), config, &bytes.Buffer{})
		assert.ErrorIs(t, err, formengine.ErrOptionSourceUnavailable)
		assert.ErrorContains(t, err, "failed to resolve options for occupation")
	})
}

func TestLoadAnswers(t *testing.T) {
	store, err := loadAnswers("testdata/answers.json")
	require.NoError(t, err)
	assert.Equal(t, "Jo", store.Get("name").Value)
	assert.Equal(t, true, store.Get("smoker").Value)
	assert.Equal(t, json.Number("1.5"), store.Get("packs-per-day").Value)
}
