package runtimev1

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Struct field names used by Runtime messages.
const (
	FieldClass     = "class"
	FieldSessionID = "session_id"
	FieldCreatedAt = "created_at"
	FieldMethod    = "method"
	FieldArgs      = "args"
)

// ErrorInfo domain and reasons attached to failed calls.
const (
	ErrorDomain           = "ducktest"
	ReasonFieldNotFound   = "FIELD_NOT_FOUND"
	ErrorMetadataFieldKey = "key"
)

// SessionInfo is the decoded CreateSession response.
type SessionInfo struct {
	SessionID string
	Class     string
	CreatedAt time.Time
}

// CallRequest is the decoded Call request.
type CallRequest struct {
	SessionID string
	Method    string
	Args      []any
}

// NewCreateSessionRequest builds a CreateSession request. An empty class
// asks for the server's root class.
func NewCreateSessionRequest(class string) *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if class != "" {
		fields[FieldClass] = structpb.NewStringValue(class)
	}
	return &structpb.Struct{Fields: fields}
}

// NewSessionInfo builds a CreateSession response.
func NewSessionInfo(info SessionInfo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSessionID: structpb.NewStringValue(info.SessionID),
		FieldClass:     structpb.NewStringValue(info.Class),
		FieldCreatedAt: structpb.NewStringValue(info.CreatedAt.UTC().Format(time.RFC3339Nano)),
	}}
}

// ParseSessionInfo decodes a CreateSession response.
func ParseSessionInfo(s *structpb.Struct) (SessionInfo, error) {
	id, err := stringField(s, FieldSessionID, true)
	if err != nil {
		return SessionInfo{}, err
	}
	class, err := stringField(s, FieldClass, false)
	if err != nil {
		return SessionInfo{}, err
	}
	info := SessionInfo{SessionID: id, Class: class}
	if raw, _ := stringField(s, FieldCreatedAt, false); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return SessionInfo{}, fmt.Errorf("%s: %w", FieldCreatedAt, err)
		}
		info.CreatedAt = ts
	}
	return info, nil
}

// ParseClass extracts the optional class from a CreateSession request.
func ParseClass(s *structpb.Struct) (string, error) {
	return stringField(s, FieldClass, false)
}

// NewSessionRequest builds a request carrying only a session ID (CloseSession).
func NewSessionRequest(sessionID string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSessionID: structpb.NewStringValue(sessionID),
	}}
}

// ParseSessionRequest extracts the required session ID.
func ParseSessionRequest(s *structpb.Struct) (string, error) {
	return stringField(s, FieldSessionID, true)
}

// NewCallRequest builds a Call request. Args must be convertible by
// structpb.NewValue (maps, slices, strings, numbers, bools, nil).
func NewCallRequest(req CallRequest) (*structpb.Struct, error) {
	args, err := structpb.NewList(req.Args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSessionID: structpb.NewStringValue(req.SessionID),
		FieldMethod:    structpb.NewStringValue(req.Method),
		FieldArgs:      structpb.NewListValue(args),
	}}, nil
}

// ParseCallRequest decodes a Call request. Missing args mean no arguments.
func ParseCallRequest(s *structpb.Struct) (CallRequest, error) {
	id, err := stringField(s, FieldSessionID, true)
	if err != nil {
		return CallRequest{}, err
	}
	method, err := stringField(s, FieldMethod, true)
	if err != nil {
		return CallRequest{}, err
	}

	req := CallRequest{SessionID: id, Method: method}
	v, ok := s.GetFields()[FieldArgs]
	if !ok {
		return req, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return CallRequest{}, fmt.Errorf("%s must be a list", FieldArgs)
	}
	req.Args = list.ListValue.AsSlice()
	return req, nil
}

func stringField(s *structpb.Struct, name string, required bool) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		if required {
			return "", fmt.Errorf("%s required", name)
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	if required && sv.StringValue == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return sv.StringValue, nil
}
