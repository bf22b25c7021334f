package notify

import (
	"context"
	"net/http"
	"strings"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/httpclient"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Messenger delivers a message to a chat channel. Implementations are called
// by one goroutine at a time.
type Messenger interface {
	Post(ctx context.Context, msg Message) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, msg Message) error

func (f MessengerFunc) Post(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// WebhookMessenger posts messages to a Slack-compatible incoming webhook.
type WebhookMessenger struct {
	client *httpclient.Client
	url    string
}

// NewWebhookMessenger posts to url through client.
func NewWebhookMessenger(client *httpclient.Client, url string) *WebhookMessenger {
	return &WebhookMessenger{client: client, url: url}
}

// Post sends msg as JSON. Transport errors and non-2xx responses come back
// as DeliveryFailed.
func (m *WebhookMessenger) Post(ctx context.Context, msg Message) error {
	_, err := m.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   m.url,
		Body:   msg,
	})
	if err != nil {
		return errors.DeliveryFailed("webhook", err)
	}
	return nil
}

// LogMessenger writes messages to the log instead of a channel. It is used
// when no webhook is configured.
type LogMessenger struct {
	Log *logger.Logger
}

func (m LogMessenger) Post(_ context.Context, msg Message) error {
	log := m.Log
	if log == nil {
		log = logger.Get("notify")
	}
	fields := logger.Fields("color", msg.Color())
	for _, a := range msg.Attachments {
		for _, b := range a.Blocks {
			for _, f := range b.Fields {
				k, v := splitField(f.Text)
				fields[k] = v
			}
			if b.Type == "section" && b.Text != nil {
				k, v := splitField(b.Text.Text)
				fields[k] = strings.Trim(v, "`")
			}
			for _, e := range b.Elements {
				if e.URL != "" {
					fields["logs_url"] = e.URL
				}
			}
		}
	}
	log.Info(msg.Header(), fields)
	return nil
}

// splitField turns "*Run ID:*\nabc" into ("run_id", "abc").
func splitField(text string) (string, string) {
	name, value, ok := strings.Cut(text, ":*\n")
	if !ok {
		return "text", text
	}
	name = strings.ToLower(strings.TrimPrefix(name, "*"))
	return strings.ReplaceAll(name, " ", "_"), value
}
