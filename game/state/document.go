// Package state implements the session state document and its merge rule.
//
// A Document maps string keys to values drawn from a bounded set: string,
// number, boolean, null, nested document, or a list of those. Documents are
// opaque to the server; the only operation applied to them is Merge.
//
// Merge is shallow and last-write-wins per top-level key. There is no
// locking or conflict detection between concurrent submitters: the engine
// applies submissions one at a time in arrival order, and the later writer
// of a key always wins.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
)

// MaxDepth bounds nesting of documents and lists.
const MaxDepth = 32

// Document is a validated key/value state document.
type Document map[string]any

// Parse decodes raw JSON into a Document. Empty input and JSON null yield a
// nil Document and no error; any top-level value other than an object is
// rejected.
func Parse(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, gameerr.Wrap(gameerr.ErrInvalidArgument, err, "invalid state document: %v", err)
	}
	return FromValue(v)
}

// FromValue validates an already decoded value and returns it as a Document.
// A nil value yields a nil Document.
func FromValue(v any) (Document, error) {
	switch doc := v.(type) {
	case nil:
		return nil, nil
	case Document:
		if err := validate(map[string]any(doc), 0); err != nil {
			return nil, err
		}
		return doc, nil
	case map[string]any:
		if err := validate(doc, 0); err != nil {
			return nil, err
		}
		return Document(doc), nil
	default:
		return nil, gameerr.New(gameerr.ErrInvalidArgument, "state must be a document, got %T", v)
	}
}

func validate(v any, depth int) error {
	if depth > MaxDepth {
		return gameerr.New(gameerr.ErrInvalidArgument, "state nested deeper than %d levels", MaxDepth)
	}

	switch val := v.(type) {
	case nil, string, bool, json.Number,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	case Document:
		return validate(map[string]any(val), depth)
	case map[string]any:
		for k, item := range val {
			if err := validate(item, depth+1); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		return nil
	case []any:
		for i, item := range val {
			if err := validate(item, depth+1); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return gameerr.New(gameerr.ErrInvalidArgument, "unsupported state value of type %T", v)
	}
}

// Merge overwrites each top-level key of dst with the value from partial and
// returns dst. A nil dst is allocated. A nil partial leaves dst unchanged.
func Merge(dst, partial Document) Document {
	if dst == nil {
		dst = make(Document, len(partial))
	}
	for k, v := range partial {
		dst[k] = cloneValue(v)
	}
	return dst
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]any:
		return map[string]any(Document(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
