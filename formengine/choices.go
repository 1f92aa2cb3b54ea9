package formengine

import (
	"strings"

	"github.com/SanteonNL/formfill/lib/fhirutil"
	"github.com/SanteonNL/formfill/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

const (
	dropDownControlCode     = "drop-down"
	autocompleteControlCode = "autocomplete"
	// ExternallyDefinedURL marks an item whose choices live on an external server.
	ExternallyDefinedURL = "http://hl7.org/fhir/StructureDefinition/questionnaire-externallydefined"
)

// NoOptions is the sentinel emitted for an answerOption without a valueCoding.
// Malformed options degrade to this value instead of being dropped, so their
// position in the list stays visible.
const NoOptions = "NoOptions"

// Choice is one selectable answer option, normalized for rendering.
type Choice struct {
	Label string
	Value string
}

// defaultChoices is the fallback for choice items without declared options.
var defaultChoices = []Choice{
	{Label: "Yes", Value: "Y"},
	{Label: "No", Value: "N"},
	{Label: "Don't know", Value: "asked-unknown"},
}

// Choices returns the static answer options of the item in declaration
// order. Items without answerOption get the default yes/no/don't-know set.
func Choices(item fhir.QuestionnaireItem) []Choice {
	if item.AnswerOption == nil {
		result := make([]Choice, len(defaultChoices))
		copy(result, defaultChoices)
		return result
	}
	result := make([]Choice, 0, len(item.AnswerOption))
	for _, option := range item.AnswerOption {
		if option.ValueCoding == nil {
			result = append(result, Choice{Label: NoOptions, Value: NoOptions})
			continue
		}
		result = append(result, Choice{
			Label: to.EmptyString(option.ValueCoding.Display),
			Value: to.EmptyString(option.ValueCoding.Code),
		})
	}
	return result
}

// ControlKind classifies how a choice item wants to be rendered.
type ControlKind int

const (
	// ControlButtonGroup is the default: a plain list of option buttons.
	ControlButtonGroup ControlKind = iota
	ControlDropDown
	// ControlAutocomplete items resolve their choices from the URI carried
	// by the externally-defined extension instead of Choices.
	ControlAutocomplete
)

func (k ControlKind) String() string {
	switch k {
	case ControlDropDown:
		return "drop-down"
	case ControlAutocomplete:
		return "autocomplete"
	default:
		return "button-group"
	}
}

// Control inspects the item's extensions for a coded rendering hint.
// A drop-down hint wins over an autocomplete hint.
func Control(item fhir.QuestionnaireItem) ControlKind {
	if hasControlCode(item.Extension, dropDownControlCode) {
		return ControlDropDown
	}
	if hasControlCode(item.Extension, autocompleteControlCode) {
		return ControlAutocomplete
	}
	return ControlButtonGroup
}

func hasControlCode(extensions []fhir.Extension, code string) bool {
	for _, extension := range extensions {
		if extension.ValueCodeableConcept == nil {
			continue
		}
		if fhirutil.ConceptContainsCode(*extension.ValueCodeableConcept, code) {
			return true
		}
	}
	return false
}

// ExternalOptionsURI returns the URI of the externally defined choice list,
// or "" when the item has none.
func ExternalOptionsURI(item fhir.QuestionnaireItem) string {
	extension := fhirutil.ExtensionByURL(item.Extension, ExternallyDefinedURL)
	if extension == nil {
		return ""
	}
	return to.EmptyString(extension.ValueUri)
}

// Label derives the display label of an item: its text, else the displays
// (or codes) of its codings joined with commas, else its linkId.
func Label(item fhir.QuestionnaireItem) string {
	if item.Text != nil && *item.Text != "" {
		return *item.Text
	}
	var parts []string
	for _, coding := range item.Code {
		if label := fhirutil.CodingLabel(coding); label != "" {
			parts = append(parts, label)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return item.LinkId
}
