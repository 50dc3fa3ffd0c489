package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"temandifa-backend/internal/config"
)

// ExpoNotifier posts to an Expo-compatible push gateway. One message per
// call; the incoming-call payload carries what the client needs to render
// the ring screen and answer without another round trip.
type ExpoNotifier struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewExpoNotifier(cfg config.PushConfig, log *slog.Logger) *ExpoNotifier {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoNotifier{
		url:    cfg.ServiceURL,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type expoMessage struct {
	To        string         `json:"to"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Sound     string         `json:"sound"`
	Priority  string         `json:"priority"`
	ChannelID string         `json:"channelId"`
	Data      map[string]any `json:"data"`
}

func (n *ExpoNotifier) SendCallNotification(ctx context.Context, pushToken, callerName, callID, channelName string) error {
	if pushToken == "" {
		return fmt.Errorf("push token is empty")
	}

	msg := expoMessage{
		To:        pushToken,
		Title:     "Incoming call",
		Body:      fmt.Sprintf("%s is calling you", callerName),
		Sound:     "default",
		Priority:  "high",
		ChannelID: "default",
		Data: map[string]any{
			"type":        "incoming-call",
			"callId":      callID,
			"channelName": channelName,
			"callerName":  callerName,
		},
	}

	raw, err := json.Marshal([]expoMessage{msg})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	n.log.Debug("call push accepted", "call_id", callID)
	return nil
}
