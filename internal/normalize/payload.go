// Package normalize turns loosely shaped exchange payloads into canonical
// domain values. Every function here is total: unexpected shapes produce
// defaults instead of errors.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// Kind tags the top-level shape of a decoded payload.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is a decoded JSON document tagged by shape. Only the field matching
// Kind is set.
type Payload struct {
	Kind   Kind
	List   []any
	Object map[string]any
	Scalar any
}

// listPriority resolves objects holding more than one list-valued field.
var listPriority = []string{"fills", "userFills", "data", "items"}

// Parse decodes data with json.Number preserved and tags the result.
func Parse(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, fmt.Errorf("normalize: decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, errors.New("normalize: decode payload: trailing data")
	}
	return FromValue(v), nil
}

// FromValue tags an already decoded value.
func FromValue(v any) Payload {
	switch t := v.(type) {
	case nil:
		return Payload{Kind: KindNull}
	case []any:
		return Payload{Kind: KindList, List: t}
	case map[string]any:
		return Payload{Kind: KindObject, Object: t}
	default:
		return Payload{Kind: KindScalar, Scalar: t}
	}
}

// Records extracts the list of fill records from a payload. A list is used as
// is. An object must carry exactly one list-valued field, or several where one
// of the known keys decides. Anything else is a schema mismatch.
func (p Payload) Records() ([]any, error) {
	switch p.Kind {
	case KindList:
		return p.List, nil
	case KindObject:
		var found []string
		for k, v := range p.Object {
			if _, ok := v.([]any); ok {
				found = append(found, k)
			}
		}
		switch len(found) {
		case 0:
			return nil, &domain.SchemaMismatch{Reason: "object without list field"}
		case 1:
			return p.Object[found[0]].([]any), nil
		}
		for _, k := range listPriority {
			if l, ok := p.Object[k].([]any); ok {
				return l, nil
			}
		}
		return nil, &domain.SchemaMismatch{Reason: fmt.Sprintf("ambiguous object with %d list fields", len(found))}
	default:
		return nil, &domain.SchemaMismatch{Reason: "unsupported payload " + p.Kind.String()}
	}
}

// AccountObject returns the account state object: the payload itself or the
// first element of a list.
func (p Payload) AccountObject() (map[string]any, error) {
	switch p.Kind {
	case KindObject:
		return p.Object, nil
	case KindList:
		if len(p.List) > 0 {
			if obj, ok := p.List[0].(map[string]any); ok {
				return obj, nil
			}
		}
		return nil, &domain.SchemaMismatch{Reason: "list without leading object"}
	default:
		return nil, &domain.SchemaMismatch{Reason: "unsupported payload " + p.Kind.String()}
	}
}
