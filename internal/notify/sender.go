// Package notify delivers templated notifications to the external mail service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

// HTTPSender posts notifications as JSON. Repeated failures open the breaker so a
// down mail service does not slow every request.
type HTTPSender struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPSender(url string, timeout time.Duration, log zerolog.Logger) *HTTPSender {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &HTTPSender{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (s *HTTPSender) Send(ctx context.Context, msg model.Notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("notification service returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg model.Notification) error {
	s.log.Info().
		Str("to", msg.To).
		Str("template", msg.Template).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("notification")
	return nil
}
