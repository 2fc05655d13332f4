// Package notify dispatches push notifications through Firebase Cloud
// Messaging. The client is constructed once at startup and injected; there
// is no lazy module-level initialization.
package notify

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("push messaging is not configured")

type BatchResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*BatchResult, error)
	SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) (string, error)
}

// Disabled is the Sender used when no FCM credentials are configured.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, string, map[string]string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) SendMulticast(context.Context, []string, string, string, map[string]string) (*BatchResult, error) {
	return nil, ErrDisabled
}

func (Disabled) SendToTopic(context.Context, string, string, string, map[string]string) (string, error) {
	return "", ErrDisabled
}
