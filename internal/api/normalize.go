package api

import (
	"bytes"
	"encoding/json"
)

// shapeMatcher recognizes one response shape and extracts the list from it.
// Matchers run in order; the first hit wins, so a new backend shape is a
// one-line append, not another conditional branch.
type shapeMatcher func(raw json.RawMessage) (json.RawMessage, bool)

func matchArray(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, true
	}
	return nil, false
}

// matchWrapped recognizes {key: [...]} objects, which also covers the
// {success: true, key: [...]} variant.
func matchWrapped(key string) shapeMatcher {
	return func(raw json.RawMessage) (json.RawMessage, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		inner, ok := obj[key]
		if !ok {
			return nil, false
		}
		return matchArray(inner)
	}
}

// normalizeList reduces a heterogeneous response to a plain JSON array,
// trying a bare array first and then each wrapper key in order. Unrecognized
// shapes normalize to an empty array.
func normalizeList(raw json.RawMessage, wrapperKeys ...string) json.RawMessage {
	matchers := []shapeMatcher{matchArray}
	for _, k := range wrapperKeys {
		matchers = append(matchers, matchWrapped(k))
	}
	for _, m := range matchers {
		if list, ok := m(raw); ok {
			return list
		}
	}
	return json.RawMessage("[]")
}

// decodeList normalizes raw and decodes the resulting array into out.
func decodeList(raw json.RawMessage, out any, wrapperKeys ...string) error {
	return json.Unmarshal(normalizeList(raw, wrapperKeys...), out)
}
