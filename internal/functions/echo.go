package functions

import (
	"context"
	"encoding/json"
)

// Echo returns its payload unchanged. It is used for smoke testing
// deployments and for exercising every invocation origin.
func Echo(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		return json.RawMessage("null"), nil
	}
	return payload, nil
}
