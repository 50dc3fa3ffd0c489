// Package aiproxy forwards uploaded media to the external AI
// microservices (object detection, OCR, voice transcription) and relays
// their JSON responses. It is stateless request plumbing: multipart
// re-encode, timeout, bounded retry.
package aiproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"temandifa-backend/internal/config"
)

const maxRetries = 3

// Target describes one upstream AI service.
type Target struct {
	// Name appears in logs and error messages.
	Name string
	// URL is the upstream endpoint.
	URL string
	// Field is the multipart field name the upstream expects.
	Field string
}

type Service struct {
	client *http.Client
	log    *slog.Logger
}

func NewService(cfg config.AIConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Result carries the upstream's verbatim response.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward re-encodes the uploaded file as multipart and posts it to the
// target, retrying on network errors and 5xx responses with exponential
// backoff. The file is re-opened per attempt so retries never send a
// half-consumed stream. requestID is propagated for cross-service
// correlation.
func (s *Service) Forward(ctx context.Context, t Target, fh *multipart.FileHeader, requestID string) (Result, error) {
	if t.URL == "" {
		return Result{}, fmt.Errorf("%s service url is not configured", t.Name)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			s.log.Warn("retrying upstream request", "service", t.Name, "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		res, retryable, err := s.attempt(ctx, t, fh, requestID)
		if err == nil {
			return res, nil
		}
		if !retryable {
			return Result{}, err
		}
		lastErr = err
	}
	return Result{}, fmt.Errorf("%s service unavailable: %w", t.Name, lastErr)
}

func (s *Service) attempt(ctx context.Context, t Target, fh *multipart.FileHeader, requestID string) (Result, bool, error) {
	file, err := fh.Open()
	if err != nil {
		return Result{}, false, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Stream the multipart body through a pipe; the upload is never
	// buffered whole in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(t.Field, fh.Filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, pr)
	if err != nil {
		return Result{}, false, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Context cancellation is terminal; network errors are retryable.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, false, err
		}
		return Result{}, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return Result{}, true, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return Result{}, true, fmt.Errorf("%s service returned %d", t.Name, resp.StatusCode)
	}

	return Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, false, nil
}
