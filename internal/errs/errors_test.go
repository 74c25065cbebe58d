package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeOfWrapped(t *testing.T) {
	base := Transient("poll chats", errors.New("connection refused"))
	wrapped := fmt.Errorf("sync: %w", base)

	assert.Equal(t, CodeTransient, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeTransient))
	assert.False(t, Is(wrapped, CodeProtocol))
	assert.Equal(t, "poll chats: connection refused", base.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.False(t, Is(nil, CodeUnknown))
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("eof")
	err := Protocol("decode frame", cause)
	assert.ErrorIs(t, err, cause)
}

func TestGRPCStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{InvalidArg("empty text"), codes.InvalidArgument},
		{NotFound("chat 123"), codes.NotFound},
		{Transient("send", errors.New("timeout")), codes.Unavailable},
		{FailedPrecondition("message is not failed"), codes.FailedPrecondition},
		{errors.New("other"), codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			st, ok := status.FromError(GRPCStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
		})
	}

	assert.NoError(t, GRPCStatus(nil))
	already := status.Error(codes.Canceled, "gone")
	assert.Equal(t, already, GRPCStatus(already))
}
