// Package relay forwards raw uploaded report files to an external mail relay
// webhook. It observes successful parses and never affects their results.
package relay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AngelCh415/amazon-ppc-etl/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient retries connection errors, 429 and 5xx responses on the
// schedule in b. Other 4xx responses are returned at once. timeout bounds
// each attempt.
func NewHTTPClient(timeout time.Duration, b utils.Backoff, log *slog.Logger) HTTPClient {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = b.Retries()
	rc.Backoff = func(_, _ time.Duration, attempt int, _ *http.Response) time.Duration {
		return b.Delay(attempt)
	}
	rc.Logger = nil
	if log != nil {
		rc.Logger = log.With(slog.String("component", "relay"))
	}
	return rc.StandardClient()
}

// Upload is one raw file handed to the relay.
type Upload struct {
	BatchID  string
	Kind     string
	Filename string
	Uploader string
	Content  []byte
}

type payload struct {
	BatchID       string `json:"batch_id"`
	Kind          string `json:"kind"`
	Filename      string `json:"filename"`
	Uploader      string `json:"uploader"`
	ContentBase64 string `json:"content_base64"`
}

// Observer is told the outcome of every delivery.
type Observer func(outcome string)

type Relay struct {
	c       HTTPClient
	url     string
	secret  string
	log     *slog.Logger
	observe Observer
}

// New returns a Relay. With an empty url or secret the relay is disabled
// and Send is a no-op.
func New(c HTTPClient, url, secret string, log *slog.Logger, observe Observer) *Relay {
	if observe == nil {
		observe = func(string) {}
	}
	return &Relay{c: c, url: url, secret: secret, log: log, observe: observe}
}

func (r *Relay) Enabled() bool { return r != nil && r.url != "" && r.secret != "" }

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send posts u to the relay. Retries happen inside the HTTPClient.
func (r *Relay) Send(ctx context.Context, u Upload) error {
	if !r.Enabled() {
		return nil
	}
	b, err := json.Marshal(payload{
		BatchID:       u.BatchID,
		Kind:          u.Kind,
		Filename:      u.Filename,
		Uploader:      u.Uploader,
		ContentBase64: base64.StdEncoding.EncodeToString(u.Content),
	})
	if err != nil {
		return err
	}
	sig := Sign(r.secret, b)

	if err := r.post(ctx, b, sig); err != nil {
		r.observe("failed")
		r.log.Warn("relay delivery failed", slog.String("batch_id", u.BatchID), slog.String("kind", u.Kind), slog.String("err", err.Error()))
		return err
	}
	r.observe("delivered")
	r.log.Info("relay delivered", slog.String("batch_id", u.BatchID), slog.String("kind", u.Kind), slog.Int("bytes", len(u.Content)))
	return nil
}

// Notify sends u in the background so callers never wait on the relay.
func (r *Relay) Notify(u Upload, timeout time.Duration) {
	if !r.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = r.Send(ctx, u)
	}()
}

func (r *Relay) post(ctx context.Context, body []byte, sig string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)
	resp, err := r.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("relay non-2xx: %d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
