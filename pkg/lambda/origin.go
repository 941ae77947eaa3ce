package lambda

import (
	"bytes"
	"encoding/json"
)

// Origin is the invocation context inferred from the shape of an envelope
type Origin int

const (
	OriginVoid Origin = iota
	OriginInvalid
	OriginDirect
	OriginBatchDelivery
	OriginGatewayRequest
)

func (o Origin) String() string {
	switch o {
	case OriginVoid:
		return "void"
	case OriginInvalid:
		return "invalid"
	case OriginDirect:
		return "direct"
	case OriginBatchDelivery:
		return "batch"
	case OriginGatewayRequest:
		return "gateway"
	default:
		return "unknown"
	}
}

// Classify determines the origin of a raw envelope from field presence and
// field types only. It never fails: anything it cannot read is OriginInvalid.
func Classify(envelope []byte) Origin {
	trimmed := bytes.TrimSpace(envelope)
	if len(trimmed) == 0 {
		return OriginVoid
	}
	if trimmed[0] != '{' {
		return OriginInvalid
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return OriginInvalid
	}

	for _, value := range fields {
		if jsonKind(value) == '[' {
			return OriginBatchDelivery
		}
	}

	if method, ok := fields["method"]; ok && jsonKind(method) == '"' {
		return OriginGatewayRequest
	}

	return OriginDirect
}

// jsonKind returns the first significant byte of a JSON value
func jsonKind(value json.RawMessage) byte {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
