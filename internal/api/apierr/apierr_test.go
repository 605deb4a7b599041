package apierr

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		code       codes.Code
		httpStatus int
		message    string
	}{
		{name: "validation", err: domain.Validationf("rating must be between 1 and 5"), code: codes.InvalidArgument, httpStatus: http.StatusBadRequest, message: "validation failed: rating must be between 1 and 5"},
		{name: "conflict", err: domain.Conflictf("duplicate"), code: codes.AlreadyExists, httpStatus: http.StatusConflict, message: "conflict: duplicate"},
		{name: "forbidden", err: domain.Forbiddenf("user u1 is not the receiver of c1"), code: codes.PermissionDenied, httpStatus: http.StatusForbidden, message: "not permitted"},
		{name: "not found", err: domain.NotFoundf("connection c1"), code: codes.NotFound, httpStatus: http.StatusNotFound, message: "not found"},
		{name: "invalid state", err: domain.InvalidStatef("connection c1 is ACCEPTED"), code: codes.Aborted, httpStatus: http.StatusConflict, message: "invalid state: connection c1 is ACCEPTED"},
		{name: "unknown", err: errors.New("pq: connection refused"), code: codes.Internal, httpStatus: http.StatusInternalServerError, message: "internal error"},
		{name: "deadline", err: context.DeadlineExceeded, code: codes.DeadlineExceeded, httpStatus: http.StatusGatewayTimeout, message: context.DeadlineExceeded.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, Code(tc.err))
			assert.Equal(t, tc.httpStatus, HTTPStatus(tc.err))
			assert.Equal(t, tc.message, Message(tc.err))
		})
	}
}

func TestGRPC_CarriesErrorInfo(t *testing.T) {
	err := GRPC(domain.Conflictf("active connection already exists"))

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())

	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", info.GetReason())
	assert.Equal(t, "tripmates", info.GetDomain())
}

func TestGRPC_Nil(t *testing.T) {
	assert.NoError(t, GRPC(nil))
	assert.Equal(t, codes.OK, Code(nil))
}
