package formengine

import (
	"context"
	"errors"
	"sync"

	"github.com/SanteonNL/formfill/lib/logging"
	libotel "github.com/SanteonNL/formfill/lib/otel"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrValidationFailed is returned by Submit while the form still has
// validation errors. The error map on the session tells which questions.
var ErrValidationFailed = errors.New("form has validation errors")

// Callbacks are the outward edges of a session. Both are optional.
type Callbacks struct {
	// OnChange fires after every mutation with the new store and the
	// recomputed error map.
	OnChange func(store AnswerStore, errs ErrorMap)
	// OnSubmit receives the built response together with the raw store.
	OnSubmit func(ctx context.Context, response fhir.QuestionnaireResponse, store AnswerStore) error
}

// Session drives one fill-out of one questionnaire: it owns the answer store,
// recomputes activation and validation on every change, and builds the
// response on submit. Methods are safe for concurrent use.
type Session struct {
	ID            string
	Questionnaire fhir.Questionnaire

	callbacks Callbacks
	// diagnostics are the statically broken enableWhen rules, determined once.
	diagnostics []RuleDiagnostic

	mux   sync.RWMutex
	store AnswerStore
	errs  ErrorMap
}

// NewSession starts a session for the questionnaire, optionally seeded with
// initial answers. Seeded answers are validated immediately.
func NewSession(questionnaire fhir.Questionnaire, initial AnswerStore, callbacks Callbacks) *Session {
	session := &Session{
		ID:            uuid.NewString(),
		Questionnaire: questionnaire,
		callbacks:     callbacks,
		diagnostics:   Diagnose(questionnaire),
		store:         initial,
		errs:          Validate(questionnaire, initial),
	}
	for _, diagnostic := range session.diagnostics {
		log.Warn().
			Str(logging.FieldSessionID, session.ID).
			Str(logging.FieldLinkID, diagnostic.Question).
			Str(logging.FieldOperator, diagnostic.Operator.Code()).
			Msg("Questionnaire has an enableWhen rule that can never match")
	}
	return session
}

// SetValue records an answer and recomputes the error map.
func (s *Session) SetValue(linkId string, value any) {
	s.mux.Lock()
	s.store = s.store.Set(linkId, value)
	s.errs = Validate(s.Questionnaire, s.store)
	store, errs := s.store, s.errs
	s.mux.Unlock()

	if s.callbacks.OnChange != nil {
		s.callbacks.OnChange(store, errs)
	}
}

// SetChoice records a chosen option. For repeating items the choice toggles:
// selecting an already-selected value removes it from the answer list.
func (s *Session) SetChoice(item fhir.QuestionnaireItem, value string) {
	if item.Repeats == nil || !*item.Repeats {
		s.SetValue(item.LinkId, value)
		return
	}

	s.mux.RLock()
	current, _ := s.store.Get(item.LinkId).Value.([]any)
	s.mux.RUnlock()

	next := make([]any, 0, len(current)+1)
	removed := false
	for _, element := range current {
		if element == any(value) {
			removed = true
			continue
		}
		next = append(next, element)
	}
	if !removed {
		next = append(next, value)
	}
	s.SetValue(item.LinkId, next)
}

// Store returns the current answer store. The store itself is immutable.
func (s *Session) Store() AnswerStore {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.store
}

// Errors returns the error map of the last validation pass.
func (s *Session) Errors() ErrorMap {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.errs
}

// Active returns the top-level items currently enabled by the answers.
func (s *Session) Active() []fhir.QuestionnaireItem {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return ActiveItems(s.Questionnaire.Item, s.store)
}

// Diagnostics reports the statically broken enableWhen rules found at
// session start. Advisory only.
func (s *Session) Diagnostics() []RuleDiagnostic {
	return s.diagnostics
}

// Submit validates the full form and, when clean, builds the response and
// hands it to the OnSubmit callback. With outstanding errors it returns
// ErrValidationFailed and does not build anything.
func (s *Session) Submit(ctx context.Context) (*fhir.QuestionnaireResponse, error) {
	ctx, span := tracer.Start(ctx, "Session.Submit",
		trace.WithAttributes(
			attribute.String(libotel.FormSessionID, s.ID),
		),
	)
	defer span.End()

	s.mux.Lock()
	s.errs = Validate(s.Questionnaire, s.store)
	store, errs := s.store, s.errs
	s.mux.Unlock()

	span.SetAttributes(
		attribute.Int(libotel.FormAnswerCount, len(store)),
		attribute.Int(libotel.FormErrorCount, len(errs)),
	)
	if !errs.OK() {
		log.Ctx(ctx).Info().
			Str(logging.FieldSessionID, s.ID).
			Int(logging.FieldCount, len(errs)).
			Msg("Submit rejected, form has validation errors")
		return nil, libotel.Error(span, ErrValidationFailed)
	}

	response := Build(s.Questionnaire, store)
	if ref := response.Questionnaire; ref != nil {
		span.SetAttributes(attribute.String(libotel.FormQuestionnaire, *ref))
	}
	if s.callbacks.OnSubmit != nil {
		if err := s.callbacks.OnSubmit(ctx, response, store); err != nil {
			return nil, libotel.Error(span, err, "submit callback failed")
		}
	}
	span.SetStatus(codes.Ok, "")
	return &response, nil
}
