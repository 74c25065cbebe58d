package inboxv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, CodecName, c.Name())
}

func TestCodecPlainStruct(t *testing.T) {
	c := codec{}
	data, err := c.Marshal(&SendMessageRequest{ChatID: "A", Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chat_id":"A","text":"hi"}`, string(data))

	var got SendMessageRequest
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, SendMessageRequest{ChatID: "A", Text: "hi"}, got)
}

func TestCodecProtoMessage(t *testing.T) {
	c := codec{}
	data, err := c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.Contains(t, string(data), "SERVING")

	var got healthpb.HealthCheckResponse
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, got.GetStatus())
}
