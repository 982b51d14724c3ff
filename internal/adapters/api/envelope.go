package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type envelope struct {
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var errEmptyResponse = errors.New("empty response body")

func decodeEnvelope(contentType string, raw []byte) (envelope, error) {
	switch contentType {
	case contentTypeMsgpack, "application/x-msgpack":
		return decodeMsgpackEnvelope(raw)
	default:
		return decodeJSONEnvelope(raw)
	}
}

func decodeJSONEnvelope(raw []byte) (envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return envelope{}, errEmptyResponse
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return envelope{}, fmt.Errorf("decode response envelope: %w", err)
	}
	return env, nil
}
