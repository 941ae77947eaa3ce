package lambda

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

const unknownErrorMessage = "Unknown error"

// ResponseBody is the fixed JSON body returned across the gateway boundary.
// All three keys are always present.
type ResponseBody struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// JSONHeaders returns the headers attached to every gateway response
func JSONHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

// FormatGatewayResponse wraps a successful business result
func FormatGatewayResponse(data any) events.APIGatewayProxyResponse {
	body, err := encodeBody(ResponseBody{Success: true, Data: data})
	if err != nil {
		return FormatGatewayError(err)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    JSONHeaders(),
		Body:       body,
	}
}

// FormatGatewayError wraps a failure. The status code is taken from the error
// when it exposes one, otherwise 500. A nil error or an empty message is
// reported as "Unknown error", so the error key is never empty.
func FormatGatewayError(err error) events.APIGatewayProxyResponse {
	message := unknownErrorMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}

	statusCode := http.StatusInternalServerError
	if err != nil {
		statusCode = StatusCodeOf(err)
	}

	body, encodeErr := encodeBody(ResponseBody{Success: false, Error: &message})
	if encodeErr != nil {
		// a string message always encodes
		body = `{"success":false,"data":null,"error":"Unknown error"}`
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    JSONHeaders(),
		Body:       body,
	}
}

// encodeBody marshals without HTML escaping so the output matches what a
// JavaScript JSON.stringify client produces
func encodeBody(body ResponseBody) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(body); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
