package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/examenapp/examen-api/internal/config"
)

// FCM sends through the Firebase Admin SDK.
type FCM struct {
	client *messaging.Client
	log    *zap.Logger
}

var _ Sender = (*FCM)(nil)

func NewFCM(ctx context.Context, cfg config.FirebaseConfig, log *zap.Logger) (*FCM, error) {
	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}

	return &FCM{client: client, log: log}, nil
}

func (f *FCM) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	id, err := f.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}

	f.log.Debug("notification sent", zap.String("message_id", id))
	return id, nil
}

func (f *FCM) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*BatchResult, error) {
	if len(tokens) == 0 {
		return &BatchResult{}, nil
	}

	resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}

	f.log.Debug("multicast sent",
		zap.Int("success", resp.SuccessCount),
		zap.Int("failure", resp.FailureCount))

	return &BatchResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}, nil
}

func (f *FCM) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) (string, error) {
	id, err := f.client.Send(ctx, &messaging.Message{
		Topic:        topic,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return "", fmt.Errorf("send topic notification: %w", err)
	}

	f.log.Debug("topic notification sent",
		zap.String("topic", topic), zap.String("message_id", id))
	return id, nil
}
