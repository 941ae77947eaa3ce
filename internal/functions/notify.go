package functions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"invocation-adapter/pkg/lambda"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotifyRequest is the payload of the notify function
type NotifyRequest struct {
	Channel  string `json:"channel" validate:"omitempty,startswith=#"`
	Text     string `json:"text" validate:"required,max=4000"`
	Username string `json:"username,omitempty" validate:"omitempty,max=80"`
}

// Notification is the receipt returned for a delivered message
type Notification struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel"`
	Username string    `json:"username"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// Sender delivers a notification to a chat channel
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// LogSender writes notifications to the logger instead of a chat service
type LogSender struct {
	Logger logrus.FieldLogger
}

// Send logs the notification
func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.Logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"channel":         n.Channel,
		"username":        n.Username,
	}).Info(n.Text)
	return nil
}

// Notifier validates and delivers chat notifications
type Notifier struct {
	sender         Sender
	validator      *validator.Validate
	defaultChannel string
	username       string
	retry          *RetryConfig
	now            func() time.Time
}

// NewNotifier creates a new notifier
func NewNotifier(sender Sender, validate *validator.Validate, defaultChannel, username string) *Notifier {
	if validate == nil {
		validate = validator.New()
	}
	return &Notifier{
		sender:         sender,
		validator:      validate,
		defaultChannel: defaultChannel,
		username:       username,
		retry:          DefaultRetryConfig(),
		now:            time.Now,
	}
}

// Notify is the business function behind the notify Lambda
func (n *Notifier) Notify(ctx context.Context, req *NotifyRequest) (*Notification, error) {
	if req == nil {
		return nil, lambda.Errorf(http.StatusBadRequest, "notification payload is required")
	}

	if err := n.validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, lambda.NewStatusError(http.StatusBadRequest, formatValidationErrors(validationErrors))
		}
		return nil, lambda.NewStatusError(http.StatusBadRequest, err)
	}

	notification := &Notification{
		ID:       uuid.NewString(),
		Channel:  req.Channel,
		Username: req.Username,
		Text:     req.Text,
		SentAt:   n.now().UTC(),
	}
	if notification.Channel == "" {
		notification.Channel = n.defaultChannel
	}
	if notification.Username == "" {
		notification.Username = n.username
	}

	err := WithRetry(ctx, n.retry, func(ctx context.Context) error {
		return n.sender.Send(ctx, notification)
	})
	if err != nil {
		return nil, lambda.NewStatusError(http.StatusBadGateway, fmt.Errorf("failed to send notification: %w", err))
	}

	return notification, nil
}

func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "startswith":
			messages = append(messages, fmt.Sprintf("%s must start with %s", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}
