// Package wecom implements the "wecom" alert sink: it POSTs a WeCom
// (WeChat Work) group-bot text message to a webhook URL. Grounded on
// original_source/src/alert/wecom.rs, generalized from reqwest to a plain
// net/http.Client in the request-building style of the teacher's
// HTTPClient.MakeRequest (pkg/kubernetes/kubernetes.go).
package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pan1c/ephc/internal/alert"
)

// Sink posts alert.Message text to a WeCom group-bot webhook.
type Sink struct {
	url    string
	client *http.Client
}

// New builds a Sink that posts to url (the target half of a
// "wecom://<url>" alert URL).
func New(url string) *Sink {
	return &Sink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type wecomText struct {
	Content string `json:"content"`
}

type wecomPayload struct {
	MsgType string    `json:"msgtype"`
	Text    wecomText `json:"text"`
}

// Send POSTs msg to the configured webhook as WeCom's text message format.
func (s *Sink) Send(ctx context.Context, msg alert.Message) error {
	body, err := json.Marshal(wecomPayload{MsgType: "text", Text: wecomText{Content: msg.String()}})
	if err != nil {
		return fmt.Errorf("marshal wecom payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build wecom request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post wecom alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("wecom alert rejected with status %d", resp.StatusCode)
	}
	return nil
}

var _ alert.Sink = (*Sink)(nil)
