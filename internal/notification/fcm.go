// Package notification is the one-way alert sink. Sends are fire-and-forget:
// a failed push is logged and dropped, never propagated to the caller's flow.
package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMSink struct {
	client *messaging.Client
}

// NewFCMSink initializes the push client. Credentials come from the
// FIREBASE_SERVICE_ACCOUNT_JSON environment variable (base64) or, failing
// that, a local service account key file.
func NewFCMSink(localFilePath string) (*FCMSink, error) {
	var opt option.ClientOption

	encoded := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
	}

	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMSink{client: client}, nil
}

// Alert sends one push to one device token. Data values are stringified
// because FCM data payloads are string-to-string.
func (s *FCMSink) Alert(ctx context.Context, token, title, body string, data map[string]any) error {
	if token == "" {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: stringData,
	}
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send failed: %w", err)
	}
	log.Printf("FCM: sent message %s", id)
	return nil
}
