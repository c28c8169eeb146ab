package indexer

import (
	"bytes"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrIndexer marks responses the indexer answered with an error payload or a
// body that has none of the known shapes.
var ErrIndexer = errors.New("indexer error")

// Result is an indexer response normalized at the boundary. The indexer
// answers with a bare JSON array, a {"data": [...]} wrapper, a single object
// or {"error": "..."}; every shape except the error becomes Rows.
type Result struct {
	Rows []jsoniter.RawMessage
	// Object holds the fields of a single-object response.
	Object map[string]jsoniter.RawMessage
}

func decodeResult(body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrIndexer)
	}

	switch body[0] {
	case '[':
		var rows []jsoniter.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return Result{}, fmt.Errorf("%w: decode array: %v", ErrIndexer, err)
		}
		return Result{Rows: rows}, nil
	case '{':
		var object map[string]jsoniter.RawMessage
		if err := json.Unmarshal(body, &object); err != nil {
			return Result{}, fmt.Errorf("%w: decode object: %v", ErrIndexer, err)
		}
		if raw, ok := object["error"]; ok && !isNull(raw) {
			var msg string
			if err := json.Unmarshal(raw, &msg); err != nil {
				msg = string(raw)
			}
			return Result{}, fmt.Errorf("%w: %s", ErrIndexer, msg)
		}
		if raw, ok := object["data"]; ok {
			return decodeData(raw)
		}
		return Result{Rows: []jsoniter.RawMessage{body}, Object: object}, nil
	default:
		return Result{}, fmt.Errorf("%w: unexpected response %.64q", ErrIndexer, body)
	}
}

func decodeData(raw jsoniter.RawMessage) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return Result{}, nil
	}
	if len(raw) > 0 && raw[0] == '{' {
		return Result{Rows: []jsoniter.RawMessage{raw}}, nil
	}
	var rows []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return Result{}, fmt.Errorf("%w: decode data: %v", ErrIndexer, err)
	}
	return Result{Rows: rows}, nil
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeRows unmarshals every row into T. Rows that do not decode are
// skipped and counted.
func decodeRows[T any](res Result) ([]T, int) {
	out := make([]T, 0, len(res.Rows))
	skipped := 0
	for _, row := range res.Rows {
		var item T
		if err := json.Unmarshal(row, &item); err != nil {
			skipped++
			continue
		}
		out = append(out, item)
	}
	return out, skipped
}

// amountField reads a numeric field that may be encoded as a JSON string or
// number.
func amountField(res Result, field string) (string, error) {
	raw, ok := res.Object[field]
	if !ok {
		return "", fmt.Errorf("%w: missing field %s", ErrIndexer, field)
	}
	if isNull(raw) {
		return "0", nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return "0", nil
		}
		return text, nil
	}
	var number jsoniter.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return "", fmt.Errorf("%w: field %s: %v", ErrIndexer, field, err)
	}
	return number.String(), nil
}
