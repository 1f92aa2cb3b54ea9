package fhirutil

import (
	"testing"

	"github.com/SanteonNL/formfill/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestConceptContainsCode(t *testing.T) {
	concept := fhir.CodeableConcept{
		Coding: []fhir.Coding{
			{System: to.Ptr("http://hl7.org/fhir/questionnaire-item-control"), Code: to.Ptr("drop-down")},
			{Code: to.Ptr("other")},
		},
	}
	assert.True(t, ConceptContainsCode(concept, "drop-down"))
	assert.True(t, ConceptContainsCode(concept, "other"))
	assert.False(t, ConceptContainsCode(concept, "autocomplete"))
	assert.False(t, ConceptContainsCode(fhir.CodeableConcept{}, "drop-down"))
}

func TestExtensionByURL(t *testing.T) {
	extensions := []fhir.Extension{
		{Url: "http://example.com/first", ValueString: to.Ptr("a")},
		{Url: "http://example.com/second", ValueString: to.Ptr("b")},
	}
	found := ExtensionByURL(extensions, "http://example.com/second")
	assert.NotNil(t, found)
	assert.Equal(t, "b", *found.ValueString)
	assert.Nil(t, ExtensionByURL(extensions, "http://example.com/missing"))
	assert.Nil(t, ExtensionByURL(nil, "http://example.com/first"))
}

func TestCodingLabel(t *testing.T) {
	assert.Equal(t, "Yes", CodingLabel(fhir.Coding{Code: to.Ptr("Y"), Display: to.Ptr("Yes")}))
	assert.Equal(t, "Y", CodingLabel(fhir.Coding{Code: to.Ptr("Y")}))
	assert.Equal(t, "", CodingLabel(fhir.Coding{}))
}
