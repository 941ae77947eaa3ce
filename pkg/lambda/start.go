package lambda

import (
	"context"

	awslambda "github.com/aws/aws-lambda-go/lambda"
)

// HandlerRegistry resolves a function name to its handler
type HandlerRegistry interface {
	Handler(name string) (awslambda.Handler, error)
}

type namedHandler[C HandlerRegistry] struct {
	name    string
	manager *ConnectionManager[C]
}

// NewNamedHandler returns a handler that resolves name from the warm container
// on every invocation and passes it the raw payload untouched
func NewNamedHandler[C HandlerRegistry](name string, manager *ConnectionManager[C]) awslambda.Handler {
	return &namedHandler[C]{name: name, manager: manager}
}

func (h *namedHandler[C]) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	container, err := h.manager.GetContainer(ctx)
	if err != nil {
		return nil, err
	}

	handler, err := container.Handler(h.name)
	if err != nil {
		return nil, err
	}
	return handler.Invoke(ctx, payload)
}

// StartNamed runs the Lambda runtime loop for one registered function
func StartNamed[C HandlerRegistry](name string, manager *ConnectionManager[C]) {
	awslambda.StartHandler(NewNamedHandler(name, manager))
}
