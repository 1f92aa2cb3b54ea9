package formengine

import "maps"

// AnswerStore maps a question's linkId to its answer state. The zero value
// (nil map) is a valid, empty store.
//
// Stores are never mutated in place: Set returns a copy that shares all other
// entries, so a store handed to a callback stays stable while the session
// moves on.
type AnswerStore map[string]FieldData

// FieldData is the answer state of a single question.
type FieldData struct {
	// Touched is set once a value has been entered for the question.
	Touched bool
	// Value is the raw answer as delivered by the rendering layer. For
	// repeating questions it is a []any, one element per answer.
	Value any
	// Error holds the last validation message for the question, empty if none.
	Error string
}

// Get returns the entry for linkId, or an untouched zero entry if absent.
func (s AnswerStore) Get(linkId string) FieldData {
	if entry, ok := s[linkId]; ok {
		return entry
	}
	return FieldData{}
}

// Set returns a new store in which linkId maps to the given value, touched
// and with any previous error cleared.
func (s AnswerStore) Set(linkId string, value any) AnswerStore {
	result := maps.Clone(s)
	if result == nil {
		result = AnswerStore{}
	}
	result[linkId] = FieldData{Touched: true, Value: value}
	return result
}
