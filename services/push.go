package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
)

// PushGateway - внешний шлюз доставки мобильных уведомлений
type PushGateway interface {
	Send(ctx context.Context, tokens []string, title, body, link string) error
}

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// FCMGateway отправляет пуши через FCM HTTP v1 API.
// Токены доступа выдает сервисный аккаунт firebase-проекта.
type FCMGateway struct {
	projectID string
	client    *http.Client
}

func NewFCMGateway(ctx context.Context, keyPath, projectID string) (*FCMGateway, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read firebase key: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(keyData, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse firebase key: %w", err)
	}
	return &FCMGateway{
		projectID: projectID,
		client:    conf.Client(ctx),
	}, nil
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Send доставляет уведомление на каждый токен по отдельности.
// Ошибка одного токена (протухший, отозванный) не прерывает остальные.
func (g *FCMGateway) Send(ctx context.Context, tokens []string, title, body, link string) error {
	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", g.projectID)

	var lastErr error
	for _, token := range tokens {
		if token == "" {
			continue
		}
		msg := fcmMessage{
			Token:        token,
			Notification: fcmNotification{Title: title, Body: body},
		}
		if link != "" {
			msg.Data = map[string]string{"link": link}
		}
		payload, err := json.Marshal(map[string]fcmMessage{"message": msg})
		if err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			cancel()
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			log.Printf("FCM request failed: %v", err)
			continue
		}
		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			lastErr = fmt.Errorf("FCM responded %d: %s", resp.StatusCode, respBody)
			log.Printf("FCM send error: %v", lastErr)
		}
		resp.Body.Close()
	}
	return lastErr
}
