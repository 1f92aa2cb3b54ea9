package formengine

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/SanteonNL/formfill/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// Answer values arrive from two very different producers: a rendering layer
// handing over typed Go values, and JSON-decoded documents handing over
// float64/string/map values. The helpers below normalize both shapes so that
// rule comparison and response building behave the same for either.

type scalarKind int

const (
	kindOther scalarKind = iota
	kindBool
	kindNumber
	kindString
)

// normalizeScalar reduces a value to a comparable scalar. Codings collapse to
// their code, quantities to their numeric value.
func normalizeScalar(value any) (scalarKind, any) {
	switch v := value.(type) {
	case bool:
		return kindBool, v
	case int:
		return kindNumber, float64(v)
	case int32:
		return kindNumber, float64(v)
	case int64:
		return kindNumber, float64(v)
	case float32:
		return kindNumber, float64(v)
	case float64:
		return kindNumber, v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return kindNumber, f
		}
		return kindString, v.String()
	case string:
		return kindString, v
	case fhir.Coding:
		return kindString, to.EmptyString(v.Code)
	case *fhir.Coding:
		if v == nil {
			return kindOther, nil
		}
		return kindString, to.EmptyString(v.Code)
	case fhir.Quantity:
		return normalizeScalar(quantityValue(v))
	case *fhir.Quantity:
		if v == nil {
			return kindOther, nil
		}
		return normalizeScalar(quantityValue(*v))
	}
	return kindOther, value
}

func quantityValue(q fhir.Quantity) any {
	if q.Value == nil {
		return nil
	}
	return *q.Value
}

// strictEqual is type-sensitive equality on normalized scalars: a number
// never equals a string, even if they render the same.
func strictEqual(a, b any) bool {
	ak, av := normalizeScalar(a)
	bk, bv := normalizeScalar(b)
	if ak == kindOther || bk == kindOther {
		return reflect.DeepEqual(a, b)
	}
	return ak == bk && av == bv
}

// looseEqual is coercing equality: numbers compare numerically when both
// sides are numeric, anything else compares by string form. Documented
// policy, see the package comment on rules.go.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	as, aok := toComparableString(a)
	bs, bok := toComparableString(b)
	if aok && bok {
		return as == bs
	}
	return reflect.DeepEqual(a, b)
}

// order compares two values, numerically when possible, otherwise
// lexicographically (which orders ISO dates and times correctly). The second
// return is false when the values cannot be ordered.
func order(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}
	as, aok := toComparableString(a)
	bs, bok := toComparableString(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	}
	return 0, true
}

// truthy follows the conventions of the questionnaire sources this engine
// consumes: false, zero, the empty string and nil are falsy.
func truthy(value any) bool {
	switch kind, v := normalizeScalar(value); kind {
	case kindBool:
		return v.(bool)
	case kindNumber:
		return v.(float64) != 0
	case kindString:
		return v.(string) != ""
	default:
		return v != nil
	}
}

func toFloat(value any) (float64, bool) {
	kind, v := normalizeScalar(value)
	switch kind {
	case kindNumber:
		return v.(float64), true
	case kindString:
		f, err := strconv.ParseFloat(v.(string), 64)
		return f, err == nil
	case kindBool:
		if v.(bool) {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toComparableString(value any) (string, bool) {
	kind, v := normalizeScalar(value)
	switch kind {
	case kindString:
		return v.(string), true
	case kindNumber:
		return strconv.FormatFloat(v.(float64), 'f', -1, 64), true
	case kindBool:
		return strconv.FormatBool(v.(bool)), true
	}
	return "", false
}

// asNumber converts a stored value to the float64 representation the FHIR
// models use for decimals. JSON-seeded stores may deliver json.Number or
// numeric strings.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asInt converts a stored value to an int. JSON decoding delivers all
// numbers as float64, so integral floats are accepted.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}

// asCoding normalizes a stored choice value to a Coding. Renderers that work
// off the extracted choice list deliver the bare option code; callers seeding
// a store from JSON may deliver a full coding.
func asCoding(value any) (*fhir.Coding, bool) {
	switch v := value.(type) {
	case fhir.Coding:
		return &v, true
	case *fhir.Coding:
		return v, v != nil
	case string:
		return &fhir.Coding{Code: to.Ptr(v)}, true
	default:
		return convertValue[fhir.Coding](value)
	}
}

// asTyped accepts a value already of type T (or *T), or a JSON-shaped map
// that unmarshals into T.
func asTyped[T any](value any) (*T, bool) {
	switch v := value.(type) {
	case T:
		return &v, true
	case *T:
		return v, v != nil
	case map[string]any:
		return convertValue[T](v)
	}
	return nil, false
}

// convertValue converts a JSON-shaped value (typically map[string]any) into
// a typed FHIR datatype by round-tripping it through JSON.
func convertValue[T any](value any) (*T, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}
