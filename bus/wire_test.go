package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	body, err := encodeFrame("orders.created", []byte("payload"))
	require.NoError(t, err)

	topic, payload, ok := decodeFrame(body)
	require.True(t, ok)
	assert.Equal(t, "orders.created", topic)
	assert.Equal(t, []byte("payload"), payload)
}

func TestEncodeFrameEmptyPayload(t *testing.T) {
	body, err := encodeFrame("heartbeat", nil)
	require.NoError(t, err)

	topic, payload, ok := decodeFrame(body)
	require.True(t, ok)
	assert.Equal(t, "heartbeat", topic)
	assert.Empty(t, payload)
}

func TestEncodeFrameRejectsTopicWithDelimiter(t *testing.T) {
	_, err := encodeFrame("bad\x00topic", []byte("x"))
	assert.ErrorIs(t, err, ErrTopicHasDelim)
}

func TestDecodeFrameRejectsMissingDelimiter(t *testing.T) {
	_, _, ok := decodeFrame([]byte("no-delimiter-here"))
	assert.False(t, ok)
}

func TestDecodeFrameSupportsEmptyTopic(t *testing.T) {
	body, err := encodeFrame("", []byte("x"))
	require.NoError(t, err)

	topic, payload, ok := decodeFrame(body)
	require.True(t, ok)
	assert.Equal(t, "", topic)
	assert.Equal(t, []byte("x"), payload)
}
