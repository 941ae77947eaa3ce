package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Foo string `json:"foo"`
	Bar int    `json:"bar"`
}

type testResult struct {
	Success         bool        `json:"success"`
	InputParameters testPayload `json:"inputParameters"`
}

func identity(ctx context.Context, p testPayload) (testPayload, error) {
	return p, nil
}

func errorEntries(hook *test.Hook) []logrus.Entry {
	var entries []logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			entries = append(entries, *entry)
		}
	}
	return entries
}

func sqsBatch(t *testing.T, bodies ...string) []byte {
	t.Helper()
	records := make([]map[string]string, 0, len(bodies))
	for i, body := range bodies {
		records = append(records, map[string]string{
			"messageId": fmt.Sprintf("msg-%d", i+1),
			"body":      body,
		})
	}
	envelope, err := json.Marshal(map[string]any{"Records": records})
	require.NoError(t, err)
	return envelope
}

func TestAdapterDirect(t *testing.T) {
	logger, hook := test.NewNullLogger()
	adapter := New("identity", identity, logger)

	t.Run("RoundTrip", func(t *testing.T) {
		result, err := adapter.Handle(context.Background(), []byte(`{"foo":"test","bar":123}`))
		require.NoError(t, err)
		assert.Equal(t, OriginDirect, result.Origin)
		assert.Equal(t, testPayload{Foo: "test", Bar: 123}, result.Value)
		assert.Nil(t, result.Response)

		out, err := adapter.Invoke(context.Background(), []byte(`{"foo":"test","bar":123}`))
		require.NoError(t, err)
		assert.Equal(t, `{"foo":"test","bar":123}`, string(out))
	})

	t.Run("LogsOrigin", func(t *testing.T) {
		hook.Reset()
		_, err := adapter.Handle(context.Background(), []byte(`{"foo":"x"}`))
		require.NoError(t, err)

		require.NotEmpty(t, hook.AllEntries())
		entry := hook.AllEntries()[0]
		assert.Equal(t, logrus.InfoLevel, entry.Level)
		assert.Equal(t, "direct", entry.Data["origin"])
		assert.Equal(t, "identity", entry.Data["function"])
		assert.NotEmpty(t, entry.Data["invocation_id"])
	})

	t.Run("ErrorPropagatesUnchanged", func(t *testing.T) {
		businessErr := errors.New("downstream unavailable")
		failing := New("failing", func(ctx context.Context, p testPayload) (testPayload, error) {
			return testPayload{}, businessErr
		}, logger)

		_, err := failing.Handle(context.Background(), []byte(`{"foo":"x"}`))
		assert.Same(t, businessErr, err)
	})

	t.Run("TrailingData", func(t *testing.T) {
		_, err := adapter.Handle(context.Background(), []byte(`{"foo":"x"} {"foo":"y"}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("UndecodablePayload", func(t *testing.T) {
		_, err := adapter.Handle(context.Background(), []byte(`{"bar":"not a number"}`))
		require.Error(t, err)
		var payloadErr *PayloadError
		assert.ErrorAs(t, err, &payloadErr)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("StrictPayloads", func(t *testing.T) {
		strict := New("strict", identity, logger, WithStrictPayloads())
		_, err := strict.Handle(context.Background(), []byte(`{"foo":"x","extra":true}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestAdapterVoid(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("CallsWithZeroPayload", func(t *testing.T) {
		var received *testPayload
		called := false
		adapter := New("void", func(ctx context.Context, p *testPayload) (string, error) {
			called = true
			received = p
			return "done", nil
		}, logger)

		result, err := adapter.Handle(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, called)
		assert.Nil(t, received)
		assert.Equal(t, OriginVoid, result.Origin)
		assert.Equal(t, "done", result.Value)
	})

	t.Run("ErrorPropagatesUnchanged", func(t *testing.T) {
		businessErr := errors.New("scheduled job failed")
		adapter := New("void", func(ctx context.Context, p *testPayload) (string, error) {
			return "", businessErr
		}, logger)

		_, err := adapter.Handle(context.Background(), []byte(""))
		assert.Same(t, businessErr, err)
	})
}

func TestAdapterInvalid(t *testing.T) {
	logger, _ := test.NewNullLogger()
	called := false
	adapter := New("guarded", func(ctx context.Context, p testPayload) (testPayload, error) {
		called = true
		return p, nil
	}, logger)

	for _, envelope := range []string{"null", "42", `"text"`, `[1,2]`} {
		t.Run(envelope, func(t *testing.T) {
			_, err := adapter.Handle(context.Background(), []byte(envelope))
			require.Error(t, err)

			var classificationErr *ClassificationError
			assert.ErrorAs(t, err, &classificationErr)
			assert.True(t, IsInvalidEnvelope(err))
			assert.Contains(t, err.Error(), "envelope must be an object or absent")
		})
	}
	assert.False(t, called)
}

func TestAdapterGateway(t *testing.T) {
	envelope := []byte(`{"method":"POST","body":"{\"foo\":\"test\",\"bar\":123}"}`)

	t.Run("Success", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("gateway", func(ctx context.Context, p testPayload) (testResult, error) {
			return testResult{Success: true, InputParameters: p}, nil
		}, logger)

		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		require.NotNil(t, result.Response)
		assert.Equal(t, OriginGatewayRequest, result.Origin)
		assert.Equal(t, http.StatusOK, result.Response.StatusCode)
		assert.Equal(t, map[string]string{"Content-Type": "application/json"}, result.Response.Headers)
		assert.Equal(t,
			`{"success":true,"data":{"success":true,"inputParameters":{"foo":"test","bar":123}},"error":null}`,
			result.Response.Body)
	})

	t.Run("Failure", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		testErr := errors.New("Test error")
		adapter := New("gateway", func(ctx context.Context, p testPayload) (testResult, error) {
			return testResult{}, testErr
		}, logger)

		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		require.NotNil(t, result.Response)
		assert.Equal(t, http.StatusInternalServerError, result.Response.StatusCode)
		assert.Equal(t, map[string]string{"Content-Type": "application/json"}, result.Response.Headers)
		assert.Equal(t, `{"success":false,"data":null,"error":"Test error"}`, result.Response.Body)

		errs := errorEntries(hook)
		require.Len(t, errs, 1)
		assert.Same(t, testErr, errs[0].Data[logrus.ErrorKey])
	})

	t.Run("StatusFromError", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("gateway", func(ctx context.Context, p testPayload) (testResult, error) {
			return testResult{}, Errorf(http.StatusNotFound, "no such order")
		}, logger)

		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, result.Response.StatusCode)
		assert.Equal(t, `{"success":false,"data":null,"error":"no such order"}`, result.Response.Body)
	})

	t.Run("AbsentBodyIsEmptyObject", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		var received map[string]any
		adapter := New("gateway", func(ctx context.Context, p map[string]any) (*testResult, error) {
			received = p
			return nil, nil
		}, logger)

		for _, env := range []string{`{"method":"GET"}`, `{"method":"GET","body":""}`, `{"method":"GET","body":null}`} {
			result, err := adapter.Handle(context.Background(), []byte(env))
			require.NoError(t, err)
			assert.Equal(t, map[string]any{}, received)
			assert.Equal(t, `{"success":true,"data":null,"error":null}`, result.Response.Body)
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		bodies := map[string]string{
			"syntax error":         `{not json`,
			"concatenated objects": `{"foo":"x"}{"foo":"y"}`,
			"trailing garbage":     `{"foo":"x"} trailing`,
			"stray closing brace":  `{"foo":"x"}}`,
		}

		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				logger, hook := test.NewNullLogger()
				called := false
				adapter := New("gateway", func(ctx context.Context, p testPayload) (testResult, error) {
					called = true
					return testResult{}, nil
				}, logger)

				envelope, err := json.Marshal(map[string]string{"method": "POST", "body": body})
				require.NoError(t, err)

				result, err := adapter.Handle(context.Background(), envelope)
				require.NoError(t, err)
				assert.False(t, called)
				assert.Equal(t, http.StatusBadRequest, result.Response.StatusCode)
				assert.Contains(t, result.Response.Body, `"success":false,"data":null,"error":"invalid payload:`)
				assert.Len(t, errorEntries(hook), 1)
			})
		}
	})

	t.Run("InvokeEncodesResponse", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("gateway", identity, logger)

		out, err := adapter.Invoke(context.Background(), envelope)
		require.NoError(t, err)

		var resp struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		}
		require.NoError(t, json.Unmarshal(out, &resp))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Headers["Content-Type"])
		assert.Equal(t, `{"success":true,"data":{"foo":"test","bar":123},"error":null}`, resp.Body)
	})
}

func TestAdapterBatch(t *testing.T) {
	t.Run("PartialFailure", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		var order []int
		adapter := New("batch", func(ctx context.Context, p testPayload) (testPayload, error) {
			order = append(order, p.Bar)
			if p.Bar == 2 {
				return testPayload{}, errors.New("record two exploded")
			}
			return p, nil
		}, logger)

		envelope := sqsBatch(t, `{"foo":"a","bar":1}`, `{"foo":"b","bar":2}`, `{"foo":"c","bar":3}`)
		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		assert.Equal(t, OriginBatchDelivery, result.Origin)
		assert.Equal(t, testPayload{Foo: "a", Bar: 1}, result.Value)
		assert.Equal(t, []int{1, 2, 3}, order)

		errs := errorEntries(hook)
		require.Len(t, errs, 1)
		assert.Equal(t, "msg-2", errs[0].Data["message_id"])
		assert.Equal(t, 1, errs[0].Data["record_index"])
		assert.EqualError(t, errs[0].Data[logrus.ErrorKey].(error), "record two exploded")
	})

	t.Run("FirstSuccessAfterFailures", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("batch", identity, logger)

		envelope := sqsBatch(t, `not json`, `{"foo":"second","bar":2}`, `{"foo":"third","bar":3}`)
		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		assert.Equal(t, testPayload{Foo: "second", Bar: 2}, result.Value)
	})

	t.Run("TotalFailure", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		adapter := New("batch", func(ctx context.Context, p testPayload) (testPayload, error) {
			return testPayload{}, fmt.Errorf("failed %s", p.Foo)
		}, logger)

		envelope := sqsBatch(t, `{"foo":"a"}`, `{"foo":"b"}`, `{bad`)
		_, err := adapter.Handle(context.Background(), envelope)
		require.Error(t, err)

		var aggregate *AggregateBatchError
		require.ErrorAs(t, err, &aggregate)
		require.Len(t, aggregate.Failures, 3)
		assert.Contains(t, err.Error(), "failed a")
		assert.Contains(t, err.Error(), "failed b")
		assert.Contains(t, err.Error(), aggregate.Failures[2].Err.Error())
		assert.Equal(t, "msg-3", aggregate.Failures[2].MessageID)
		assert.ErrorIs(t, err, ErrInvalidPayload)
		assert.Len(t, errorEntries(hook), 3)
	})

	t.Run("TrailingDataInRecord", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		calls := 0
		adapter := New("batch", func(ctx context.Context, p testPayload) (testPayload, error) {
			calls++
			return p, nil
		}, logger)

		envelope := sqsBatch(t, `{"foo":"a","bar":1} trailing garbage`, `{"foo":"b","bar":2}`)
		result, err := adapter.Handle(context.Background(), envelope)
		require.NoError(t, err)
		assert.Equal(t, testPayload{Foo: "b", Bar: 2}, result.Value)
		assert.Equal(t, 1, calls)

		errs := errorEntries(hook)
		require.Len(t, errs, 1)
		assert.Equal(t, "msg-1", errs[0].Data["message_id"])
		assert.ErrorIs(t, errs[0].Data[logrus.ErrorKey].(error), ErrInvalidPayload)
	})

	t.Run("MalformedRecord", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("batch", identity, logger)

		_, err := adapter.Handle(context.Background(), []byte(`{"Records":[42]}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("batch", identity, logger)

		_, err := adapter.Handle(context.Background(), []byte(`{"Records":[]}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("LowercaseRecordsField", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		adapter := New("batch", identity, logger)

		result, err := adapter.Handle(context.Background(),
			[]byte(`{"tags":[],"records":[{"messageId":"x","body":"{\"foo\":\"lower\"}"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "lower", result.Value.Foo)
	})
}

func TestInvocationID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	adapter := New("identity", identity, logger)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})
	_, err := adapter.Handle(ctx, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "req-123", hook.AllEntries()[0].Data["invocation_id"])
}
