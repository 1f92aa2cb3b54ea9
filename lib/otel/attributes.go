package otel

// Common attribute keys used on spans.
const (
	OperationName = "operation.name"

	// FHIR attributes
	FHIRResourceType = "fhir.resource_type"
	FHIRBaseURL      = "fhir.base_url"

	// Form attributes
	FormLinkID        = "form.link_id"
	FormOptionsURI    = "form.options_uri"
	FormOptionsCount  = "form.options_count"
	FormSessionID     = "form.session_id"
	FormActiveItems   = "form.active_items"
	FormErrorCount    = "form.error_count"
	FormAnswerCount   = "form.answer_count"
	FormQuestionnaire = "form.questionnaire"
)
