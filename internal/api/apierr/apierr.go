// Package apierr translates domain errors into gRPC statuses and HTTP responses.
package apierr

import (
	"context"
	"errors"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	errorDomain    = "tripmates"
	reasonInternal = "INTERNAL"
)

type kind struct {
	sentinel error
	code     codes.Code
	reason   string
}

var kinds = []kind{
	{domain.ErrValidation, codes.InvalidArgument, "VALIDATION"},
	{domain.ErrConflict, codes.AlreadyExists, "CONFLICT"},
	{domain.ErrForbidden, codes.PermissionDenied, "NOT_PERMITTED"},
	{domain.ErrNotFound, codes.NotFound, "NOT_FOUND"},
	{domain.ErrInvalidState, codes.Aborted, "INVALID_STATE"},
}

// Code returns the gRPC code for err. Unknown errors are Internal.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.code
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// HTTPStatus maps err onto the HTTP status the gateway would use for its gRPC code.
func HTTPStatus(err error) int {
	return runtime.HTTPStatusFromCode(Code(err))
}

// Message is the text shown to clients. Authorization and lookup failures are
// generic so they don't reveal which records exist.
func Message(err error) string {
	switch Code(err) {
	case codes.PermissionDenied:
		return domain.ErrForbidden.Error()
	case codes.NotFound:
		return domain.ErrNotFound.Error()
	case codes.Internal, codes.Unknown:
		return "internal error"
	}
	return err.Error()
}

func Reason(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.reason
		}
	}
	return reasonInternal
}

// Status builds the gRPC status for err with an ErrorInfo detail.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok && Reason(err) == reasonInternal {
		return s
	}
	st := status.New(Code(err), Message(err))
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: Reason(err),
		Domain: errorDomain,
	})
	if detailErr != nil {
		return st
	}
	return detailed
}

// GRPC converts err for return from a gRPC handler.
func GRPC(err error) error {
	if err == nil {
		return nil
	}
	return Status(err).Err()
}
