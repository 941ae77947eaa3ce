package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"invocation-adapter/internal/middleware"
	"invocation-adapter/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 6 << 20 // Lambda synchronous payload limit

// Registry resolves function names to Lambda handlers
type Registry interface {
	Handler(name string) (awslambda.Handler, error)
	Functions() []string
}

// FunctionList is the body of the function listing
type FunctionList struct {
	Functions []string `json:"functions"`
}

// HealthStatus is the body of the liveness check
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// FunctionHandler turns local HTTP requests into gateway envelopes
type FunctionHandler struct {
	registry Registry
	logger   logrus.FieldLogger
}

// NewFunctionHandler creates a new function handler
func NewFunctionHandler(registry Registry, logger logrus.FieldLogger) *FunctionHandler {
	return &FunctionHandler{
		registry: registry,
		logger:   logger,
	}
}

// Invoke runs the named function with the request as a gateway envelope and
// writes the adapter's response verbatim
// @Summary Invoke a function
// @Description Wrap the request in a gateway envelope and run the named function. Any HTTP method is accepted.
// @Tags functions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Function name"
// @Param payload body object false "Business payload"
// @Success 200 {object} lambda.ResponseBody
// @Failure 400 {object} lambda.ResponseBody
// @Failure 401 {object} lambda.ResponseBody
// @Failure 404 {object} lambda.ResponseBody
// @Failure 413 {object} lambda.ResponseBody
// @Failure 429 {object} lambda.ResponseBody
// @Failure 500 {object} lambda.ResponseBody
// @Router /functions/{name} [post]
func (h *FunctionHandler) Invoke(c *gin.Context) {
	name := c.Param("name")
	handler, err := h.registry.Handler(name)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	envelope, err := buildEnvelope(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	out, err := handler.Invoke(c.Request.Context(), envelope)
	if err != nil {
		// gateway envelopes are always answered; reaching here is a bug in the handler
		h.logger.WithError(err).WithField("function", name).Error("Handler returned an error for a gateway envelope")
		middleware.AbortWithError(c, err)
		return
	}

	var resp events.APIGatewayProxyResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		middleware.AbortWithError(c, fmt.Errorf("malformed handler response: %w", err))
		return
	}

	for key, value := range resp.Headers {
		c.Header(key, value)
	}
	c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
}

// @Summary List functions
// @Description List the names of every registered function
// @Tags functions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} FunctionList
// @Failure 401 {object} lambda.ResponseBody
// @Router /functions [get]
func (h *FunctionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, FunctionList{Functions: h.registry.Functions()})
}

// @Summary Health check
// @Description Report liveness of the local gateway
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *FunctionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

func buildEnvelope(c *gin.Context) ([]byte, error) {
	req := lambda.GatewayRequest{
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Headers:     make(map[string]string, len(c.Request.Header)),
		QueryParams: make(map[string]string),
		PathParams:  map[string]string{"name": c.Param("name")},
		RequestID:   c.GetString(middleware.RequestIDKey),
	}

	for key := range c.Request.Header {
		req.Headers[key] = c.Request.Header.Get(key)
	}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			req.QueryParams[key] = values[0]
		}
	}

	if c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
		if err != nil {
			return nil, lambda.NewStatusError(http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		}
		if len(body) > maxBodySize {
			return nil, lambda.Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", maxBodySize)
		}
		if len(body) > 0 {
			text := string(body)
			req.Body = &text
		}
	}

	return json.Marshal(req)
}
