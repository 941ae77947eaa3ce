package lambda

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
)

// GatewayRequest is the HTTP-gateway style envelope: a verb plus a
// string-encoded body
type GatewayRequest struct {
	Method      string            `json:"method"`
	Path        string            `json:"path,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	PathParams  map[string]string `json:"path_params,omitempty"`
	Body        *string           `json:"body,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
}

// BusinessFunc is the user-supplied function wrapped by an Adapter
type BusinessFunc[P, R any] func(ctx context.Context, payload P) (R, error)

// Result is the union-typed outcome of a dispatch. Response is set only for
// gateway-origin invocations; Value holds the raw business result otherwise.
type Result[R any] struct {
	Origin   Origin
	Value    R
	Response *events.APIGatewayProxyResponse
}

// Output returns the value a host runtime should serialize
func (r *Result[R]) Output() any {
	if r.Response != nil {
		return r.Response
	}
	return r.Value
}

// MarshalOutput encodes the output for a host runtime
func (r *Result[R]) MarshalOutput() ([]byte, error) {
	return json.Marshal(r.Output())
}
