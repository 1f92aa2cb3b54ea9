package fhirutil

import (
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// ConceptContainsCode reports whether the CodeableConcept carries a coding
// with the given code, regardless of system.
func ConceptContainsCode(concept fhir.CodeableConcept, code string) bool {
	for _, coding := range concept.Coding {
		if coding.Code != nil && *coding.Code == code {
			return true
		}
	}
	return false
}

// ExtensionByURL returns the first extension with the given url, or nil.
func ExtensionByURL(extensions []fhir.Extension, url string) *fhir.Extension {
	for i, extension := range extensions {
		if extension.Url == url {
			return &extensions[i]
		}
	}
	return nil
}

// CodingLabel returns the human-readable form of a coding: its display if
// present, otherwise its code.
func CodingLabel(coding fhir.Coding) string {
	if coding.Display != nil && *coding.Display != "" {
		return *coding.Display
	}
	if coding.Code != nil {
		return *coding.Code
	}
	return ""
}
