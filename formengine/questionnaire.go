package formengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

type QuestionnaireLoader interface {
	// Load a questionnaire from a URL. It returns an error if the URL can't be
	// handled by the loader, or if something went wrong reading or decoding it.
	Load(ctx context.Context, url string) (*fhir.Questionnaire, error)
}

var _ QuestionnaireLoader = FhirApiQuestionnaireLoader{}

// FhirApiQuestionnaireLoader resolves questionnaires from a FHIR server,
// either by literal reference (Questionnaire/123) or by a search URL that
// must match exactly one resource.
type FhirApiQuestionnaireLoader struct {
	client fhirclient.Client
}

func NewFhirApiQuestionnaireLoader(client fhirclient.Client) FhirApiQuestionnaireLoader {
	return FhirApiQuestionnaireLoader{client: client}
}

// questionnaireRefPattern recognizes a literal reference like Questionnaire/123.
var questionnaireRefPattern = regexp.MustCompile(`Questionnaire/[a-zA-Z0-9_-]+`)

func (f FhirApiQuestionnaireLoader) Load(ctx context.Context, u string) (*fhir.Questionnaire, error) {
	var result fhir.Questionnaire
	if questionnaireRefPattern.MatchString(u) {
		if err := f.client.ReadWithContext(ctx, u, &result); err != nil {
			return nil, fmt.Errorf("could not read questionnaire (url=%s): %w", u, err)
		}
		return &result, nil
	}
	// Anything that is not a literal reference is treated as a search that
	// must match exactly one resource.
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	var results fhir.Bundle
	if err := f.client.ReadWithContext(ctx, "Questionnaire", &results, fhirclient.AtUrl(parsedUrl)); err != nil {
		return nil, fmt.Errorf("questionnaire search failed (url=%s): %w", u, err)
	}
	if len(results.Entry) != 1 {
		return nil, fmt.Errorf("expected exactly one questionnaire (url=%s), found %d", u, len(results.Entry))
	}
	if err := json.Unmarshal(results.Entry[0].Resource, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal questionnaire (url=%s): %w", u, err)
	}
	return &result, nil
}

var _ QuestionnaireLoader = FileQuestionnaireLoader{}

// FileQuestionnaireLoader reads a questionnaire from a JSON file on disk.
type FileQuestionnaireLoader struct{}

func (f FileQuestionnaireLoader) Load(_ context.Context, path string) (*fhir.Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result fhir.Questionnaire
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal questionnaire (file=%s): %w", path, err)
	}
	return &result, nil
}
