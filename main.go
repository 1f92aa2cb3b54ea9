package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/formfill/formengine"
	"github.com/SanteonNL/formfill/lib/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(config.LogLevel)
	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := run(context.Background(), *config, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Form fill failed")
	}
}

// run loads the questionnaire and the initial answers, submits them through a
// session and writes the resulting QuestionnaireResponse to out.
func run(ctx context.Context, config Config, out io.Writer) error {
	client, err := newFHIRClient(config)
	if err != nil {
		return err
	}
	loader, err := newLoader(config, client)
	if err != nil {
		return err
	}
	questionnaire, err := loader.Load(ctx, config.Questionnaire)
	if err != nil {
		return fmt.Errorf("failed to load questionnaire %s: %w", config.Questionnaire, err)
	}
	log.Debug().Str(logging.FieldQuestionnaire, config.Questionnaire).Msg("Questionnaire loaded")
	if client != nil {
		source := formengine.NewFhirApiOptionSource(client, config.OptionCacheTTL)
		if err := preloadExternalOptions(ctx, source, *questionnaire); err != nil {
			return err
		}
	}
	store, err := loadAnswers(config.Answers)
	if err != nil {
		return fmt.Errorf("failed to load answers %s: %w", config.Answers, err)
	}

	session := formengine.NewSession(*questionnaire, store, formengine.Callbacks{})
	response, err := session.Submit(ctx)
	if errors.Is(err, formengine.ErrValidationFailed) {
		for linkId, message := range session.Errors() {
			log.Error().Str(logging.FieldLinkID, linkId).Msg(message)
		}
		return err
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// newFHIRClient returns a client for the configured FHIR server, or nil when
// none is configured.
func newFHIRClient(config Config) (fhirclient.Client, error) {
	if config.FHIR.BaseURL == "" {
		return nil, nil
	}
	baseURL, err := url.Parse(config.FHIR.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid fhir.url: %w", err)
	}
	return fhirclient.New(baseURL, http.DefaultClient, nil), nil
}

// newLoader picks a questionnaire source: an existing file wins, anything
// else is resolved through the configured FHIR server.
func newLoader(config Config, client fhirclient.Client) (formengine.QuestionnaireLoader, error) {
	if _, err := os.Stat(config.Questionnaire); err == nil {
		return formengine.FileQuestionnaireLoader{}, nil
	}
	if client == nil {
		return nil, errors.New("questionnaire is not a file and fhir.url is not configured")
	}
	return formengine.NewFhirApiQuestionnaireLoader(client), nil
}

// preloadExternalOptions resolves every externally defined choice list in the
// questionnaire up front, so an unreachable terminology server fails the run
// before any answers are submitted.
func preloadExternalOptions(ctx context.Context, source formengine.OptionSource, questionnaire fhir.Questionnaire) error {
	for _, item := range externallyDefinedItems(questionnaire.Item, nil) {
		uri := formengine.ExternalOptionsURI(item)
		choices, err := source.Resolve(ctx, uri)
		if err != nil {
			return fmt.Errorf("failed to resolve options for %s: %w", item.LinkId, err)
		}
		log.Debug().
			Str(logging.FieldLinkID, item.LinkId).
			Int(logging.FieldCount, len(choices)).
			Msg("Resolved externally defined options")
	}
	return nil
}

func externallyDefinedItems(items []fhir.QuestionnaireItem, result []fhir.QuestionnaireItem) []fhir.QuestionnaireItem {
	for _, item := range items {
		if formengine.ExternalOptionsURI(item) != "" {
			result = append(result, item)
		}
		result = externallyDefinedItems(item.Item, result)
	}
	return result
}

// loadAnswers seeds a store from a JSON object keyed by linkId. Numbers are
// kept as json.Number so decimal answers survive serialization unchanged.
func loadAnswers(path string) (formengine.AnswerStore, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var values map[string]any
	if err := decoder.Decode(&values); err != nil {
		return nil, err
	}
	var store formengine.AnswerStore
	for linkId, value := range values {
		store = store.Set(linkId, value)
	}
	return store, nil
}
