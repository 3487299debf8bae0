// Package types provides domain models shared across ducktest components.
//
// Kept free of transport dependencies: the gRPC surface converts between
// protobuf well-known types and these values at the API boundary. ID
// utilities in ids.go import uuid but are otherwise isolated.
package types

// SessionID identifies a live session bound to one root object.
// UUIDv7 string so session rows cluster by creation time.
type SessionID string

// CallID identifies a single audited method call.
type CallID string

// ClientID identifies the API key holder that opened a session.
// Empty when the server runs without authentication.
type ClientID string

// DuckLiteral is the only answer that counts as duck-like behaviour.
const DuckLiteral = "like a duck"

// Field names inspected by the duck test, in lookup order.
const (
	FieldLooks  = "looks"
	FieldSwims  = "swims"
	FieldQuacks = "quacks"
)

// DuckFields lists the inspected fields in lookup order.
var DuckFields = []string{FieldLooks, FieldSwims, FieldQuacks}

// Resource limits enforced by the runtime service.
const (
	// MaxCallArgs bounds positional arguments accepted by a single call.
	MaxCallArgs = 16

	// MaxRecordFields bounds the number of keys in an inspected record.
	// Records only need three keys; the bound keeps decoding cheap.
	MaxRecordFields = 256

	// MaxMethodNameLength prevents unbounded method names reaching the audit log.
	MaxMethodNameLength = 128
)
