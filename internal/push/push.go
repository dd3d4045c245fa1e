// Package push delivers best-effort notifications to partner devices.
package push

import (
	"context"
	"errors"
	"fmt"

	"pair-date-backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notification is one message for one device token
type Notification struct {
	Token string
	Title string
	Body  string
	Data  map[string]any
}

// Sender delivers a single notification
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// APNsSender sends through Apple Push Notification service with token auth
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender loads the .p8 signing key and builds a token client
func NewAPNsSender(cfg config.APNsConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{client: client, topic: cfg.Topic}, nil
}

// Send pushes n and reports a rejected notification as an error
func (s *APNsSender) Send(ctx context.Context, n Notification) error {
	p := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Sound("default")
	for k, v := range n.Data {
		p.Custom(k, v)
	}

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: n.Token,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("apns push: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}

// LogSender only logs notifications; used when no relay is configured
type LogSender struct{}

func (LogSender) Send(_ context.Context, n Notification) error {
	if n.Token == "" {
		return errors.New("empty push token")
	}
	log.Info().
		Str("title", n.Title).
		Str("body", n.Body).
		Interface("data", n.Data).
		Msg("Push notification (log only)")
	return nil
}
