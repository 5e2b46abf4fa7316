// Package gateway is the client side of the generic record gateway: request
// and response shapes, typed errors, and an HTTP implementation.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// Method is the verb executed against an entity collection.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// StatusOK is the only status treated as success.
const StatusOK = "200"

// Request parameter names shared with the gateway server.
const (
	ParamEntity       = "entity"
	ParamOffset       = "offset"
	ParamLimit        = "limit"
	ParamSearchString = "searchString"
	ParamFields       = "fields"
	ParamID           = "Id"
)

type Request struct {
	Method          Method         `json:"method"`
	ConnectionAlias string         `json:"connectionAlias"`
	Params          map[string]any `json:"params"`
	Body            string         `json:"body,omitempty"` // JSON array with one record, POST/PATCH only
}

type Response struct {
	Status string `json:"status"`
	Body   []byte `json:"body"`
}

// OK reports whether the gateway accepted the request.
func (r *Response) OK() bool {
	return r != nil && r.Status == StatusOK
}

// Gateway executes a request against a named entity collection.
type Gateway interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Record is one row of an entity collection keyed by field name.
type Record map[string]any

// ID returns the record identifier as a string, or "" when absent.
func (r Record) ID() string {
	switch v := r["Id"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// DecodeRecords parses a success body. An empty body is an empty page.
func DecodeRecords(body []byte) ([]Record, error) {
	if len(body) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, TransportError(fmt.Errorf("decode records: %w", err))
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// EncodeBody wraps a single payload in the JSON array the gateway expects.
func EncodeBody(payload Record) (string, error) {
	b, err := json.Marshal([]Record{payload})
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(b), nil
}
