package api

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/core/db"
	"github.com/solatis/ducktest/internal/core/tracing"
	"github.com/solatis/ducktest/internal/duck"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"github.com/solatis/ducktest/internal/types"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Call dispatches a method on the session's root object.
//
// Validation order: request shape, argument count, method name length,
// session ownership. Every call that reaches dispatch is audited whether
// it succeeds or not; audit failures are logged and never fail the call.
func (s *RuntimeService) Call(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	call, err := pb.ParseCallRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(call.Args) > types.MaxCallArgs {
		return nil, toStatus(fmt.Errorf("%w: %d > %d", types.ErrTooManyArgs, len(call.Args), types.MaxCallArgs))
	}
	if len(call.Method) > types.MaxMethodNameLength {
		return nil, toStatus(fmt.Errorf("%w: %d > %d", types.ErrMethodNameTooLong, len(call.Method), types.MaxMethodNameLength))
	}

	id, obj, err := s.lookupSession(ctx, call.SessionID, true)
	if err != nil {
		return nil, toStatus(err)
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, obj.ClassName()+"."+call.Method, trace.WithAttributes(
		attribute.String(tracing.AttrSessionID, string(id)),
		attribute.String(tracing.AttrCallMethod, call.Method),
	))
	defer span.End()

	start := s.now()
	var result any
	err = ctx.Err()
	if err == nil {
		result, err = obj.Call(ctx, call.Method, call.Args)
	}
	elapsed := s.now().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}

	s.audit(ctx, id, call.Method, result, err, start, elapsed)

	if err != nil {
		s.logger.Debug("call failed",
			"session_id", id,
			"method", call.Method,
			"error", err,
		)
		return nil, toStatus(err)
	}

	value, err := structpb.NewValue(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return value, nil
}

// audit writes the calls row and the journal line.
func (s *RuntimeService) audit(ctx context.Context, id types.SessionID, method string, result any, callErr error, at time.Time, elapsed time.Duration) {
	row := db.CallRow{
		CallID:     string(types.NewCallID()),
		SessionID:  string(id),
		ClientID:   string(auth.ClientIDFromContext(ctx)),
		Method:     method,
		DurationUs: elapsed.Microseconds(),
		CreatedAt:  at.UTC().Format(time.RFC3339Nano),
	}
	if callErr != nil {
		row.Error = callErr.Error()
	} else {
		row.Result = duck.Text(result)
	}

	// the request context may already be cancelled
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.InsertCall(storeCtx, row); err != nil {
		s.logger.Warn("record call failed", "call_id", row.CallID, "error", err)
	}

	entry := journalEntry{
		CallID:     row.CallID,
		SessionID:  row.SessionID,
		ClientID:   row.ClientID,
		Method:     row.Method,
		Result:     row.Result,
		Error:      row.Error,
		DurationUs: row.DurationUs,
		Timestamp:  row.CreatedAt,
	}
	if err := s.journal.append(at, entry); err != nil {
		s.logger.Warn("journal append failed", "call_id", row.CallID, "error", err)
	}
}
