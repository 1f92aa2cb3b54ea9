package formengine

import (
	"context"
	"errors"
	"sync"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/formfill/lib/logging"
	libotel "github.com/SanteonNL/formfill/lib/otel"
	"github.com/SanteonNL/formfill/lib/to"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	baseotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = baseotel.Tracer("formengine")

// ErrOptionSourceUnavailable signals that an externally defined choice list
// could not be fetched. Callers must not render this as an empty list: a
// temporarily unreachable terminology server is not a questionnaire without
// options.
var ErrOptionSourceUnavailable = errors.New("externally defined options unavailable")

// ErrStaleOptions is returned when a newer request for the same question was
// issued while this one was in flight. The result must be discarded.
var ErrStaleOptions = errors.New("options superseded by a newer request")

// OptionSource resolves an externally defined choice list URI.
type OptionSource interface {
	// Resolve fetches and normalizes the choices behind the URI. An empty
	// list is a valid result; fetch failures wrap ErrOptionSourceUnavailable.
	Resolve(ctx context.Context, uri string) ([]Choice, error)
}

var _ OptionSource = &FhirApiOptionSource{}

// FhirApiOptionSource resolves the URI as a FHIR ValueSet and flattens its
// expansion (falling back to compose.include concepts) into choices.
// Resolved lists are cached per URI for the configured TTL.
type FhirApiOptionSource struct {
	client fhirclient.Client
	cache  *ttlcache.Cache[string, []Choice]
}

func NewFhirApiOptionSource(client fhirclient.Client, ttl time.Duration) *FhirApiOptionSource {
	return &FhirApiOptionSource{
		client: client,
		cache: ttlcache.New[string, []Choice](
			ttlcache.WithTTL[string, []Choice](ttl),
		),
	}
}

func (s *FhirApiOptionSource) Resolve(ctx context.Context, uri string) ([]Choice, error) {
	if cached := s.cache.Get(uri); cached != nil {
		return cached.Value(), nil
	}

	ctx, span := tracer.Start(ctx, "FhirApiOptionSource.Resolve",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(libotel.FormOptionsURI, uri),
			attribute.String(libotel.FHIRResourceType, "ValueSet"),
		),
	)
	defer span.End()

	var valueSet fhir.ValueSet
	if err := s.client.ReadWithContext(ctx, uri, &valueSet); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(logging.FieldUrl, uri).Msg("Externally defined options fetch failed")
		return nil, libotel.Error(span, errors.Join(ErrOptionSourceUnavailable, err))
	}

	choices := flattenValueSet(valueSet)
	s.cache.Set(uri, choices, ttlcache.DefaultTTL)

	span.SetAttributes(attribute.Int(libotel.FormOptionsCount, len(choices)))
	span.SetStatus(codes.Ok, "")
	return choices, nil
}

// flattenValueSet prefers the expansion; a ValueSet that was never expanded
// still yields its composed concepts.
func flattenValueSet(valueSet fhir.ValueSet) []Choice {
	choices := []Choice{}
	if valueSet.Expansion != nil {
		choices = appendContains(choices, valueSet.Expansion.Contains)
	}
	if len(choices) > 0 || valueSet.Compose == nil {
		return choices
	}
	for _, include := range valueSet.Compose.Include {
		for _, concept := range include.Concept {
			choices = append(choices, Choice{
				Label: choiceLabel(to.EmptyString(concept.Display), concept.Code),
				Value: concept.Code,
			})
		}
	}
	return choices
}

func appendContains(choices []Choice, contains []fhir.ValueSetExpansionContains) []Choice {
	for _, entry := range contains {
		if entry.Code != nil {
			choices = append(choices, Choice{
				Label: choiceLabel(to.EmptyString(entry.Display), *entry.Code),
				Value: *entry.Code,
			})
		}
		choices = appendContains(choices, entry.Contains)
	}
	return choices
}

func choiceLabel(display, code string) string {
	if display != "" {
		return display
	}
	return code
}

// OptionFetcher serializes external lookups per question and drops results
// that were superseded while in flight. Each Fetch for a linkId invalidates
// all earlier ones; the source itself has no notion of ordering.
type OptionFetcher struct {
	Source OptionSource

	mux    sync.Mutex
	tokens map[string]uint64
}

func NewOptionFetcher(source OptionSource) *OptionFetcher {
	return &OptionFetcher{
		Source: source,
		tokens: map[string]uint64{},
	}
}

// Fetch resolves the externally defined options for the question. When a
// newer Fetch for the same linkId has been issued in the meantime, the result
// is discarded and ErrStaleOptions is returned.
func (f *OptionFetcher) Fetch(ctx context.Context, linkId string, uri string) ([]Choice, error) {
	token := f.issue(linkId)
	choices, err := f.Source.Resolve(ctx, uri)
	if err != nil {
		return nil, err
	}
	if f.current(linkId) != token {
		log.Ctx(ctx).Debug().Str(logging.FieldLinkID, linkId).Msg("Discarding stale option list")
		return nil, ErrStaleOptions
	}
	return choices, nil
}

func (f *OptionFetcher) issue(linkId string) uint64 {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.tokens[linkId]++
	return f.tokens[linkId]
}

func (f *OptionFetcher) current(linkId string) uint64 {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.tokens[linkId]
}
