package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"invocation-adapter/internal/config"
	"invocation-adapter/internal/functions"
	"invocation-adapter/internal/logging"
	"invocation-adapter/pkg/lambda"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Function names registered in every container
const (
	FunctionEcho   = "echo"
	FunctionNotify = "notify"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Validator *validator.Validate
	Notifier  *functions.Notifier

	handlers map[string]awslambda.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return NewContainerWithLogger(cfg, logger), nil
}

// NewConnectionManager returns the warm-container manager used by the Lambda
// entrypoints. Containers are built from the deployment-optimized config.
func NewConnectionManager() *lambda.ConnectionManager[*Container] {
	return lambda.NewConnectionManager(func(ctx context.Context) (*Container, error) {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return NewContainer(cfg)
	}, (*Container).Close)
}

// NewContainerWithLogger creates a container around an existing logger
func NewContainerWithLogger(cfg *config.Config, logger *logrus.Logger) *Container {
	validate := validator.New()
	notifier := functions.NewNotifier(
		&functions.LogSender{Logger: logger.WithField("component", "notify_sender")},
		validate,
		cfg.Notify.DefaultChannel,
		cfg.Notify.Username,
	)

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Validator: validate,
		Notifier:  notifier,
		handlers:  make(map[string]awslambda.Handler),
	}

	c.Register(lambda.New(FunctionEcho, functions.Echo, logger))
	c.Register(lambda.New(FunctionNotify, notifier.Notify, logger, lambda.WithStrictPayloads()))

	return c
}

// NamedHandler is a lambda.Handler that knows its function name
type NamedHandler interface {
	awslambda.Handler
	Name() string
}

// Register adds a handler, replacing any handler with the same name
func (c *Container) Register(h NamedHandler) {
	c.handlers[h.Name()] = h
}

// Handler returns the handler registered under name
func (c *Container) Handler(name string) (awslambda.Handler, error) {
	h, ok := c.handlers[name]
	if !ok {
		return nil, lambda.NewStatusError(http.StatusNotFound, fmt.Errorf("function %q is not registered", name))
	}
	return h, nil
}

// Functions lists the registered function names
func (c *Container) Functions() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close cleans up all resources
func (c *Container) Close() error {
	return nil
}
