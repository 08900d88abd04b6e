package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnrecognizedEnvelope is returned when no known list shape matches a response.
var ErrUnrecognizedEnvelope = errors.New("search: unrecognized list envelope")

// EnvelopeKeys is the fixed priority in which row keys are tried.
var EnvelopeKeys = []string{"data", "orders", "transactions", "users", "result"}

// Summary is the revenue block some list endpoints attach.
type Summary struct {
	TotalAmount  float64 `json:"totalAmount"`
	RefundAmount float64 `json:"refundAmount"`
	NetAmount    float64 `json:"netAmount"`
}

// Page is one normalized list response.
type Page[T any] struct {
	Items []T
	// TotalElements is 0 when the response did not report a total.
	TotalElements int64
	Summary       *Summary
}

// Normalize maps a raw list response onto a Page. With strict set only {"data": [...]}
// is accepted.
func Normalize[T any](raw []byte, strict bool) (Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Page[T]{}, fmt.Errorf("%w: empty body", ErrUnrecognizedEnvelope)
	}

	if raw[0] == '[' {
		if strict {
			return Page[T]{}, fmt.Errorf("%w: bare array in strict mode", ErrUnrecognizedEnvelope)
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return Page[T]{}, fmt.Errorf("search: decode rows: %w", err)
		}
		return Page[T]{Items: nonNil(items)}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Page[T]{}, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
	}

	keys := EnvelopeKeys
	if strict {
		keys = keys[:1]
	}
	for _, key := range keys {
		rows, ok := obj[key]
		if !ok {
			continue
		}
		rows = bytes.TrimSpace(rows)
		var items []T
		switch {
		case bytes.Equal(rows, jsonNull):
			// A present key with no rows is an empty page.
		case len(rows) > 0 && rows[0] == '[':
			if err := json.Unmarshal(rows, &items); err != nil {
				return Page[T]{}, fmt.Errorf("search: decode %q rows: %w", key, err)
			}
		default:
			continue
		}
		total, err := totalOf(obj["totalElements"])
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: nonNil(items), TotalElements: total, Summary: summaryOf(obj)}, nil
	}
	return Page[T]{}, ErrUnrecognizedEnvelope
}

var jsonNull = []byte("null")

// totalOf reads totalElements as an integer or a numeric string. Absent or null is 0.
func totalOf(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("search: decode totalElements: %w", err)
		}
		raw = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("search: decode totalElements %s: not a non-negative integer", raw)
	}
	return n, nil
}

func summaryOf(obj map[string]json.RawMessage) *Summary {
	var s Summary
	for key, dst := range map[string]*float64{
		"totalAmount":  &s.TotalAmount,
		"refundAmount": &s.RefundAmount,
		"netAmount":    &s.NetAmount,
	} {
		raw, ok := obj[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil
		}
	}
	return &s
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
