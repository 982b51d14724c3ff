package fakebackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/adapters/api"
)

// encodeMsgpack packs a response the way the msgpack API does: the JSON
// shape of v, with {"$date": ...} wrappers replaced by the date extension.
func encodeMsgpack(v any) ([]byte, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode response tree: %w", err)
	}

	packed, err := packTree(tree)
	if err != nil {
		return nil, err
	}
	return api.EncodeMsgpack(packed)
}

func packTree(node any) (any, error) {
	switch value := node.(type) {
	case map[string]any:
		if raw, ok := value["$date"].(string); ok && len(value) == 1 {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, fmt.Errorf("pack date %q: %w", raw, err)
			}
			return api.PackTime(parsed), nil
		}
		out := make(map[string]any, len(value))
		for key, child := range value {
			packed, err := packTree(child)
			if err != nil {
				return nil, err
			}
			out[key] = packed
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, child := range value {
			packed, err := packTree(child)
			if err != nil {
				return nil, err
			}
			out[i] = packed
		}
		return out, nil
	case json.Number:
		if whole, err := value.Int64(); err == nil {
			return whole, nil
		}
		return value.Float64()
	default:
		return value, nil
	}
}
