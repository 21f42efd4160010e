// Package alertsink provides pluggable external delivery for alerts
// emitted by the rule engine and the anomaly threshold (spec.md §4.7,
// §6: "external delivery (webhook, email) is a pluggable sink
// contract taking an Alert"). Grounded on the teacher's
// engine/output/composite_sink.go fan-out-with-isolated-failure
// pattern, adapted from OutputSink's Write/Flush/Close contract down to
// this domain's single fire-and-forget Send.
package alertsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"time"

	"github.com/slack-go/slack"

	"github.com/Shafiyullah/siem-cyber/pkg/event"
)

// Sink delivers one Alert. Implementations must not block the
// orchestrator indefinitely; a sink with its own retry/backoff policy
// should apply its own deadline via ctx.
type Sink interface {
	Send(ctx context.Context, a *event.Alert)
}

// LogSink is the always-on core delivery: a structured log line. Every
// other sink is additive.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink returns a Sink that only logs.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Send(ctx context.Context, a *event.Alert) {
	s.log.InfoContext(ctx, "alert delivered",
		"rule", a.RuleName, "severity", a.Severity, "source", a.Source,
		"message", a.Message, "recommendation", a.Recommendation)
}

// WebhookSink POSTs the Alert as JSON to a configured URL (ALERT_WEBHOOK,
// spec.md §6).
type WebhookSink struct {
	URL    string
	Client *http.Client
	log    *slog.Logger
}

// NewWebhookSink returns a Sink that POSTs alerts to url.
func NewWebhookSink(url string, log *slog.Logger) *WebhookSink {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookSink{URL: url, Client: &http.Client{Timeout: 5 * time.Second}, log: log}
}

func (s *WebhookSink) Send(ctx context.Context, a *event.Alert) {
	body, err := json.Marshal(a)
	if err != nil {
		s.log.WarnContext(ctx, "alertsink: marshal webhook payload failed", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		s.log.WarnContext(ctx, "alertsink: build webhook request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		s.log.WarnContext(ctx, "alertsink: webhook delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.log.WarnContext(ctx, "alertsink: webhook returned non-2xx", "status", resp.StatusCode)
	}
}

// SMTPConfig configures EmailSink. There is no email-sending library
// anywhere in the retrieval pack (only the indirect, unrelated
// mailru/easyjson), so this one leaf is built on stdlib net/smtp rather
// than an ecosystem client.
type SMTPConfig struct {
	Addr     string
	From     string
	To       []string
	Identity string
	Username string
	Password string
	Host     string
}

// EmailSink emails the Alert summary to a fixed recipient list
// (ALERT_EMAIL, spec.md §6).
type EmailSink struct {
	cfg SMTPConfig
	log *slog.Logger
}

// NewEmailSink returns a Sink that sends one plain-text email per alert.
func NewEmailSink(cfg SMTPConfig, log *slog.Logger) *EmailSink {
	if log == nil {
		log = slog.Default()
	}
	return &EmailSink{cfg: cfg, log: log}
}

func (s *EmailSink) Send(ctx context.Context, a *event.Alert) {
	subject := fmt.Sprintf("[%s] %s", a.Severity, a.RuleName)
	if a.RuleName == "" {
		subject = fmt.Sprintf("[%s] anomaly detected", a.Severity)
	}
	body := fmt.Sprintf("Subject: %s\r\n\r\n%s\n\nRecommendation: %s\n", subject, a.Message, a.Recommendation)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth(s.cfg.Identity, s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(s.cfg.Addr, auth, s.cfg.From, s.cfg.To, []byte(body)); err != nil {
		s.log.WarnContext(ctx, "alertsink: email delivery failed", "error", err)
	}
}

// SlackSink posts the Alert to a Slack channel via the Slack web API.
type SlackSink struct {
	client  *slack.Client
	channel string
	log     *slog.Logger
}

// NewSlackSink returns a Sink posting to channel using token, a Slack bot
// OAuth token (xoxb-...) with chat:write scope — not an incoming-webhook
// URL, despite ALERT_SLACK_WEBHOOK's name (spec.md §6).
func NewSlackSink(token, channel string, log *slog.Logger) *SlackSink {
	if log == nil {
		log = slog.Default()
	}
	return &SlackSink{client: slack.New(token), channel: channel, log: log}
}

func (s *SlackSink) Send(ctx context.Context, a *event.Alert) {
	text := fmt.Sprintf("*%s* alert on `%s`: %s\n> %s", a.Severity, a.Source, a.Message, a.Recommendation)
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		s.log.WarnContext(ctx, "alertsink: slack delivery failed", "error", err)
	}
}

// FanoutSink delivers to every configured sink independently; one
// sink's failure never affects the others, matching the teacher's
// CompositeSink.Write isolation (each sink logs its own failure; none
// aborts the fan-out).
type FanoutSink struct {
	sinks []Sink
	log   *slog.Logger
}

// NewFanoutSink returns a Sink that delivers to every sink in sinks.
func NewFanoutSink(log *slog.Logger, sinks ...Sink) *FanoutSink {
	if log == nil {
		log = slog.Default()
	}
	return &FanoutSink{sinks: sinks, log: log}
}

func (f *FanoutSink) Send(ctx context.Context, a *event.Alert) {
	for _, s := range f.sinks {
		s.Send(ctx, a)
	}
}
