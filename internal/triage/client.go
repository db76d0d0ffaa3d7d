package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrRateLimited is returned by Predict when the service answers 429. The
// scheduler treats it as a signal to stand down for the rest of the cycle.
var ErrRateLimited = errors.New("triage: prediction service rate limited")

const (
	predictTimeout  = 30 * time.Second
	feedbackTimeout = 15 * time.Second
)

// Client talks to the external AI prediction service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: predictTimeout},
		logger:  logger.With().Str("component", "triage-client").Logger(),
	}
}

// Predict submits an intake payload for assessment. Connection failures
// and non-429 error statuses are soft: they return (nil, nil) so the
// caller leaves the patient eligible for the next cycle. A 429 returns
// ErrRateLimited so the caller can back off entirely.
func (c *Client) Predict(ctx context.Context, payload Payload) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal triage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/triage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build triage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("patient_id", payload.PatientID).
			Msg("prediction service unreachable")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("patient_id", payload.PatientID).
			Msg("prediction service returned error status")
		return nil, nil
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn().Err(err).Str("patient_id", payload.PatientID).
			Msg("prediction response malformed")
		return nil, nil
	}
	return result, nil
}

// SendFeedback relays a doctor's verdict to the service. It is fire and
// forget: the POST happens on a detached goroutine with its own deadline,
// and failures are logged, never surfaced to the caller.
func (c *Client) SendFeedback(feedback FeedbackRequest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
		defer cancel()

		body, err := json.Marshal(feedback)
		if err != nil {
			c.logger.Error().Err(err).Msg("marshal feedback payload")
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/feedback", bytes.NewReader(body))
		if err != nil {
			c.logger.Error().Err(err).Msg("build feedback request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Msg("feedback relay failed")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.logger.Warn().Int("status", resp.StatusCode).Msg("feedback relay rejected")
		}
	}()
}
