package api

import (
	"context"
	"errors"

	"github.com/solatis/ducktest/internal/binding"
	"github.com/solatis/ducktest/internal/duck"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"github.com/solatis/ducktest/internal/types"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps domain errors to gRPC status codes.
// Field access failures carry an ErrorInfo naming the missing key so the
// client can rebuild a *duck.FieldAccessError.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	if fae, ok := duck.AsFieldAccessError(err); ok {
		st := status.New(codes.FailedPrecondition, err.Error())
		detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   pb.ReasonFieldNotFound,
			Domain:   pb.ErrorDomain,
			Metadata: map[string]string{pb.ErrorMetadataFieldKey: fae.Key},
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	}

	switch {
	case errors.Is(err, types.ErrSessionNotFound),
		errors.Is(err, binding.ErrSessionClosed),
		errors.Is(err, binding.ErrUnknownClass),
		errors.Is(err, binding.ErrUnknownMethod):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, binding.ErrArgCount),
		errors.Is(err, binding.ErrArgType),
		errors.Is(err, types.ErrTooManyArgs),
		errors.Is(err, types.ErrMethodNameTooLong),
		errors.Is(err, types.ErrNotAnObject),
		errors.Is(err, types.ErrTooManyFields):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
