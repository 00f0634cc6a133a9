package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/helmcode/zeropatch/pkg/model"
)

// ErrInvalidFormat is wrapped by every validation failure in this package.
var ErrInvalidFormat = errors.New("invalid response format")

const (
	analysisField = "results"
	patchField    = "patched_results"
)

// ParseAnalysis validates an /analyze response body and returns its findings in
// service order. A present but empty list is valid and yields an empty, non-nil slice.
func ParseAnalysis(body []byte) ([]model.FileAnalysis, error) {
	items, err := decodeList[model.FileAnalysis](body, analysisField)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Vulnerabilities == nil {
			items[i].Vulnerabilities = []model.Vulnerability{}
		}
	}
	return items, nil
}

// ParsePatches validates a /generate_patch response body.
func ParsePatches(body []byte) ([]model.PatchResult, error) {
	items, err := decodeList[model.PatchResult](body, patchField, "patched_code")
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Vulnerabilities == nil {
			items[i].Vulnerabilities = []model.Vulnerability{}
		}
	}
	return items, nil
}

// decodeList pulls field out of a top-level JSON object and decodes it as a list of
// objects. Every element must carry a string "file" plus the extra required keys.
func decodeList[T any](body []byte, field string, required ...string) ([]T, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	raw, ok := top[field]
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidFormat, field)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %q is not a list", ErrInvalidFormat, field)
	}

	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			return nil, fmt.Errorf("%w: %s[%d] is not an object", ErrInvalidFormat, field, i)
		}
		for _, key := range append([]string{"file"}, required...) {
			if v, ok := obj[key]; !ok || isNull(v) {
				return nil, fmt.Errorf("%w: %s[%d] missing %q", ErrInvalidFormat, field, i, key)
			}
		}

		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidFormat, field, i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
