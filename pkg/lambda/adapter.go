package lambda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// Adapter lets one business function be invoked directly, through a queue
// batch delivery or through an HTTP gateway request, answering each origin in
// the shape it expects.
type Adapter[P, R any] struct {
	name   string
	fn     BusinessFunc[P, R]
	logger logrus.FieldLogger
	strict bool
}

// Option configures an Adapter
type Option func(*options)

type options struct {
	strict bool
}

// WithStrictPayloads rejects payloads carrying fields unknown to the input type
func WithStrictPayloads() Option {
	return func(o *options) {
		o.strict = true
	}
}

var _ awslambda.Handler = (*Adapter[any, any])(nil)

// New wraps fn. The logger is owned by the caller.
func New[P, R any](name string, fn BusinessFunc[P, R], logger logrus.FieldLogger, opts ...Option) *Adapter[P, R] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Adapter[P, R]{
		name:   name,
		fn:     fn,
		logger: logger,
		strict: o.strict,
	}
}

// Name returns the function name used in log fields
func (a *Adapter[P, R]) Name() string {
	return a.name
}

// Invoke implements lambda.Handler
func (a *Adapter[P, R]) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	result, err := a.Handle(ctx, payload)
	if err != nil {
		return nil, err
	}
	return result.MarshalOutput()
}

// Handle classifies the envelope and runs the business function accordingly
func (a *Adapter[P, R]) Handle(ctx context.Context, envelope []byte) (*Result[R], error) {
	origin := Classify(envelope)
	log := a.logger.WithFields(logrus.Fields{
		"function":      a.name,
		"origin":        origin.String(),
		"invocation_id": invocationID(ctx),
	})
	log.Info("Invocation received")

	switch origin {
	case OriginVoid:
		var zero P
		value, err := a.fn(ctx, zero)
		if err != nil {
			return nil, err
		}
		return &Result[R]{Origin: origin, Value: value}, nil

	case OriginDirect:
		payload, err := a.decode(envelope)
		if err != nil {
			return nil, err
		}
		value, err := a.fn(ctx, payload)
		if err != nil {
			return nil, err
		}
		return &Result[R]{Origin: origin, Value: value}, nil

	case OriginBatchDelivery:
		value, err := a.handleBatch(ctx, log, envelope)
		if err != nil {
			return nil, err
		}
		return &Result[R]{Origin: origin, Value: value}, nil

	case OriginGatewayRequest:
		response := a.handleGateway(ctx, log, envelope)
		return &Result[R]{Origin: origin, Response: &response}, nil

	default:
		return nil, &ClassificationError{Function: a.name}
	}
}

// handleBatch processes records strictly in order, one at a time. A failing
// record never stops the ones after it.
func (a *Adapter[P, R]) handleBatch(ctx context.Context, log logrus.FieldLogger, envelope []byte) (R, error) {
	var first R
	succeeded := 0
	var failures []*RecordError

	records, err := batchRecords(envelope)
	if err != nil {
		log.WithError(err).Error("Batch envelope could not be read")
		return first, &AggregateBatchError{Failures: []*RecordError{{Index: 0, Err: err}}}
	}

	for i, raw := range records {
		var message events.SQSMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			failures = append(failures, a.recordFailed(log, &RecordError{
				Index: i,
				Err:   fmt.Errorf("%w: %v", ErrInvalidRecord, err),
			}))
			continue
		}

		payload, err := a.decode([]byte(message.Body))
		if err != nil {
			failures = append(failures, a.recordFailed(log, &RecordError{Index: i, MessageID: message.MessageId, Err: err}))
			continue
		}

		value, err := a.fn(ctx, payload)
		if err != nil {
			failures = append(failures, a.recordFailed(log, &RecordError{Index: i, MessageID: message.MessageId, Err: err}))
			continue
		}

		if succeeded == 0 {
			first = value
		}
		succeeded++
	}

	log.WithFields(logrus.Fields{
		"records":   len(records),
		"succeeded": succeeded,
		"failed":    len(failures),
	}).Info("Batch processed")

	if succeeded == 0 {
		return first, &AggregateBatchError{Failures: failures}
	}
	return first, nil
}

func (a *Adapter[P, R]) recordFailed(log logrus.FieldLogger, failure *RecordError) *RecordError {
	log.WithError(failure.Err).WithFields(logrus.Fields{
		"record_index": failure.Index,
		"message_id":   failure.MessageID,
	}).Error("Batch record failed")
	return failure
}

// handleGateway always produces a well-formed response
func (a *Adapter[P, R]) handleGateway(ctx context.Context, log logrus.FieldLogger, envelope []byte) events.APIGatewayProxyResponse {
	var req GatewayRequest
	if err := json.Unmarshal(envelope, &req); err != nil {
		err = &PayloadError{Err: err}
		log.WithError(err).Error("Gateway request could not be read")
		return FormatGatewayError(err)
	}

	log = log.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.Path,
		"request_id": req.RequestID,
	})

	body := []byte("{}")
	if req.Body != nil && *req.Body != "" {
		body = []byte(*req.Body)
	}

	value, err := a.call(ctx, body)
	if err != nil {
		log.WithError(err).Error("Gateway invocation failed")
		return FormatGatewayError(err)
	}

	return FormatGatewayResponse(value)
}

func (a *Adapter[P, R]) call(ctx context.Context, body []byte) (R, error) {
	payload, err := a.decode(body)
	if err != nil {
		var zero R
		return zero, err
	}
	return a.fn(ctx, payload)
}

func (a *Adapter[P, R]) decode(data []byte) (P, error) {
	var payload P
	decoder := json.NewDecoder(bytes.NewReader(data))
	if a.strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&payload); err != nil {
		return payload, &PayloadError{Err: err}
	}

	// a payload is exactly one JSON value
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		var zero P
		return zero, &PayloadError{Err: errTrailingData}
	}
	return payload, nil
}

// batchRecords returns the elements of the records array. "Records" and
// "records" are preferred; otherwise the first array-valued field by name.
func batchRecords(envelope []byte) ([]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(envelope, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	key := ""
	for _, candidate := range []string{"Records", "records"} {
		if value, ok := fields[candidate]; ok && jsonKind(value) == '[' {
			key = candidate
			break
		}
	}
	if key == "" {
		names := make([]string, 0, len(fields))
		for name, value := range fields {
			if jsonKind(value) == '[' {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: no records field", ErrInvalidRecord)
		}
		sort.Strings(names)
		key = names[0]
	}

	var records []json.RawMessage
	if err := json.Unmarshal(fields[key], &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return records, nil
}

// invocationID correlates log lines of a single invocation
func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
