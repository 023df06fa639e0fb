package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"wishlist/config"

	log "github.com/sirupsen/logrus"
)

// SendTelegramChannelMessage шлет сообщение в операторский телеграм-канал
func SendTelegramChannelMessage(text string) error {
	if config.AppConfig == nil || config.AppConfig.Telegram.AlertsBotToken == "" {
		return nil
	}
	tg := config.AppConfig.Telegram
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", tg.AlertsBotToken)

	payload, err := json.Marshal(map[string]string{
		"chat_id": tg.AlertsChannelID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(apiURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram responded %d", resp.StatusCode)
	}
	return nil
}

// AlertError уводит неожиданную ошибку оператору, не блокируя запрос
func AlertError(requestURL string, err error) {
	go func() {
		msg := fmt.Sprintf("%s\n\n%v", requestURL, err)
		if alertErr := SendTelegramChannelMessage(msg); alertErr != nil {
			log.Printf("Failed to deliver operator alert: %v", alertErr)
		}
	}()
}
