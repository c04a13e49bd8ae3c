package bus

import (
	"bytes"
	"errors"
)

// topicDelim separates the topic frame from the payload frame inside the
// single opaque body a transport message carries. Topics may not contain
// this byte.
const topicDelim = 0x00

// ErrTopicHasDelim is returned by encodeFrame when a topic contains the
// frame delimiter and therefore cannot be round-tripped.
var ErrTopicHasDelim = errors.New("bus: topic must not contain a NUL byte")

// encodeFrame concatenates topic and payload into the wire form consumed
// by the transport's prefix-matching subscribe filter: topic bytes appear
// first and unmodified, so a SUB socket subscribed to a byte prefix of the
// topic will match this body directly.
func encodeFrame(topic string, payload []byte) ([]byte, error) {
	if bytes.IndexByte([]byte(topic), topicDelim) >= 0 {
		return nil, ErrTopicHasDelim
	}
	buf := make([]byte, 0, len(topic)+1+len(payload))
	buf = append(buf, topic...)
	buf = append(buf, topicDelim)
	buf = append(buf, payload...)
	return buf, nil
}

// decodeFrame splits a wire body back into topic and payload. ok is false
// if no delimiter was found, which indicates a malformed message.
func decodeFrame(body []byte) (topic string, payload []byte, ok bool) {
	idx := bytes.IndexByte(body, topicDelim)
	if idx < 0 {
		return "", nil, false
	}
	return string(body[:idx]), body[idx+1:], true
}
