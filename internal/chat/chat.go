// Package chat adapts the chat gateway: inbound message events and outbound
// channel posts.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MessageEvent is a message seen by the gateway in some channel.
type MessageEvent struct {
	AuthorIsBot bool   `json:"authorIsBot"`
	Author      string `json:"author"`
	Text        string `json:"text"`
	ChannelID   string `json:"channelId"`
}

// Poster sends text to a channel. expireAfter is passed through to the
// gateway, which deletes the post when it elapses.
type Poster interface {
	Post(ctx context.Context, channelID, text string, expireAfter time.Duration) error
}

type postPayload struct {
	ChannelID          string `json:"channelId"`
	Content            string `json:"content"`
	DeleteAfterSeconds int    `json:"deleteAfterSeconds"`
}

// WebhookPoster posts JSON to the gateway's send endpoint.
type WebhookPoster struct {
	url    string
	token  string
	client *http.Client
}

func NewWebhookPoster(url, token string, timeout time.Duration) *WebhookPoster {
	return &WebhookPoster{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

func (p *WebhookPoster) Post(ctx context.Context, channelID, text string, expireAfter time.Duration) error {
	body, err := json.Marshal(postPayload{
		ChannelID:          channelID,
		Content:            text,
		DeleteAfterSeconds: int(expireAfter / time.Second),
	})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("X-Pintopics-Gateway-Token", p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post to channel %s: gateway returned %d", channelID, resp.StatusCode)
	}
	return nil
}

// LogPoster only logs; used when no gateway URL is configured.
type LogPoster struct{}

func (LogPoster) Post(_ context.Context, channelID, text string, expireAfter time.Duration) error {
	log.Printf("chat: [channel %s] [expires %s] %s", channelID, expireAfter, text)
	return nil
}

// Acknowledgment is the line posted after a resolved URL.
func Acknowledgment(emblem, keyword string) string {
	name := capitalize(keyword)
	return fmt.Sprintf("%s %s Mentioned %s", emblem, name, emblem)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
