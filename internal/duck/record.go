package duck

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solatis/ducktest/internal/types"
	"google.golang.org/protobuf/types/known/structpb"
)

// Record is an object whose fields are looked up by key and read as text.
// Get returns a *FieldAccessError when the key is absent.
type Record interface {
	Get(key string) (string, error)
}

// FieldAccessError reports a key the record does not expose.
type FieldAccessError struct {
	Key string
}

func (e *FieldAccessError) Error() string {
	return fmt.Sprintf("field access: %q: %v", e.Key, types.ErrFieldNotFound)
}

// Unwrap lets errors.Is match types.ErrFieldNotFound.
func (e *FieldAccessError) Unwrap() error {
	return types.ErrFieldNotFound
}

// AsFieldAccessError extracts the missing key from err, if any.
func AsFieldAccessError(err error) (*FieldAccessError, bool) {
	var fae *FieldAccessError
	if errors.As(err, &fae) {
		return fae, true
	}
	return nil, false
}

// MapRecord adapts a decoded JSON-style object.
type MapRecord map[string]any

// Get returns the text form of the value under key.
// A present key holding null is found and reads as "null".
func (r MapRecord) Get(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", &FieldAccessError{Key: key}
	}
	return Text(v), nil
}

// JSONRecord parses raw JSON into a MapRecord.
// Rejects anything other than a JSON object.
func JSONRecord(data json.RawMessage) (MapRecord, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, types.ErrNotAnObject
	}
	if len(obj) > types.MaxRecordFields {
		return nil, types.ErrTooManyFields
	}
	return MapRecord(obj), nil
}

// StructRecord adapts a protobuf Struct received over gRPC.
type StructRecord struct {
	s *structpb.Struct
}

// NewStructRecord wraps s. A nil Struct behaves as an empty record.
func NewStructRecord(s *structpb.Struct) StructRecord {
	return StructRecord{s: s}
}

// Get returns the text form of the field under key.
func (r StructRecord) Get(key string) (string, error) {
	f, ok := r.s.GetFields()[key]
	if !ok {
		return "", &FieldAccessError{Key: key}
	}
	return Text(f.AsInterface()), nil
}

// RecordFrom converts a decoded call argument into a Record.
func RecordFrom(arg any) (Record, error) {
	switch v := arg.(type) {
	case Record:
		return v, nil
	case map[string]any:
		if len(v) > types.MaxRecordFields {
			return nil, types.ErrTooManyFields
		}
		return MapRecord(v), nil
	case *structpb.Struct:
		if len(v.GetFields()) > types.MaxRecordFields {
			return nil, types.ErrTooManyFields
		}
		return NewStructRecord(v), nil
	case json.RawMessage:
		return JSONRecord(v)
	default:
		return nil, types.ErrNotAnObject
	}
}
