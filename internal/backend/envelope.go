package backend

import (
	"bytes"
	"encoding/json"
	"sort"

	apperrors "tramite-portal/internal/common/errors"
)

// envelopeKeys are the list-wrapper shapes the backend has been observed to
// answer with, in probe order.
var envelopeKeys = []string{"data", "content", "items", "results"}

// NormalizeList folds the known heterogeneous list envelopes into a bare JSON
// array. A bare array passes through; an object with one of the known wrapper
// keys holding an array is unwrapped; anything else is a typed error, never a
// silent empty list.
func NormalizeList(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperrors.NewUnknownEnvelopeError(nil)
	}

	if trimmed[0] == '[' {
		return trimmed, nil
	}

	if trimmed[0] != '{' {
		return nil, apperrors.NewUnknownEnvelopeError(nil)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, apperrors.NewUnknownEnvelopeError(nil)
	}

	for _, key := range envelopeKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		innerTrimmed := bytes.TrimSpace(inner)
		if len(innerTrimmed) > 0 && innerTrimmed[0] == '[' {
			return innerTrimmed, nil
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, apperrors.NewUnknownEnvelopeError(keys)
}

// decodeList normalizes an envelope and unmarshals the resulting array.
func decodeList[T any](raw []byte) ([]T, error) {
	arr, err := NormalizeList(raw)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(arr, &out); err != nil {
		return nil, apperrors.NewUnknownEnvelopeError(nil)
	}
	return out, nil
}
