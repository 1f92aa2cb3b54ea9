package logging

// Common log field keys used throughout the module.
const (
	FieldCount         = "count"
	FieldLinkID        = "link_id"
	FieldOperator      = "operator"
	FieldQuestionnaire = "questionnaire"
	FieldSessionID     = "session_id"
	FieldUrl           = "url"
)
