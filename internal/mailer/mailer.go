// Package mailer отправляет транзакционные письма через почтовый API с OAuth2-авторизацией.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gopkg.in/gomail.v2"
)

const (
	defaultTokenURL       = "https://oauth2.googleapis.com/token"
	defaultSendURL        = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	defaultMaxAttempts    = 3
	defaultBaseDelay      = time.Second
	defaultOTPBaseDelay   = 2 * time.Second
	defaultAttemptTimeout = 10 * time.Second
)

// ErrNotConfigured возвращается, если не заданы учётные данные почтового провайдера.
var ErrNotConfigured = errors.New("mailer: provider credentials are not configured")

// Kind обозначает тип письма для логов и метрик.
type Kind string

const (
	KindGeneric   Kind = "generic"
	KindOTP       Kind = "otp"
	KindApproval  Kind = "approval"
	KindRejection Kind = "rejection"
)

// Observer получает итог каждой отправки.
type Observer interface {
	ObserveMail(kind string, result string, attempts int)
}

// Config содержит параметры подключения к провайдеру.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
	FromName     string

	TokenURL string
	SendURL  string

	MaxAttempts    int
	BaseDelay      time.Duration
	OTPBaseDelay   time.Duration
	AttemptTimeout time.Duration

	// Transport — базовый транспорт для запросов токена и отправки.
	Transport http.RoundTripper
}

func (c Config) configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "" && c.From != ""
}

func (c *Config) applyDefaults() {
	if c.TokenURL == "" {
		c.TokenURL = defaultTokenURL
	}
	if c.SendURL == "" {
		c.SendURL = defaultSendURL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.OTPBaseDelay <= 0 {
		c.OTPBaseDelay = defaultOTPBaseDelay
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = defaultAttemptTimeout
	}
	if c.Transport == nil {
		c.Transport = cleanhttp.DefaultPooledTransport()
	}
}

// Sender отправляет письма с повторами при временных сетевых сбоях.
// Токен доступа запрашивается при первой отправке и переиспользуется до истечения.
type Sender struct {
	cfg      Config
	client   *http.Client
	logger   *zap.Logger
	observer Observer
}

// NewSender создаёт отправителя. При неполной конфигурации отправитель создаётся,
// но каждая отправка завершается ErrNotConfigured.
func NewSender(cfg Config, logger *zap.Logger, observer Observer) *Sender {
	cfg.applyDefaults()

	s := &Sender{
		cfg:      cfg,
		logger:   logger.Named("mailer"),
		observer: observer,
	}

	if !cfg.configured() {
		s.logger.Warn("mail provider credentials missing, notifications are disabled")
		return s
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: cfg.Transport,
		Timeout:   cfg.AttemptTimeout,
	})

	s.client = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauthCfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken}),
			Base:   cfg.Transport,
		},
	}

	return s
}

// Send отправляет произвольное HTML-письмо с базовой задержкой повторов.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	return s.send(ctx, KindGeneric, s.cfg.BaseDelay, to, subject, htmlBody)
}

type sendRequest struct {
	Raw string `json:"raw"`
}

// ProviderError описывает ответ провайдера с неуспешным HTTP-статусом.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("mail provider responded %d: %s", e.StatusCode, e.Body)
}

func (s *Sender) send(ctx context.Context, kind Kind, baseDelay time.Duration, to, subject, htmlBody string) error {
	if s.client == nil {
		s.observe(kind, "not_configured", 0)
		return ErrNotConfigured
	}

	raw, err := s.encode(to, subject, htmlBody)
	if err != nil {
		s.observe(kind, "failed", 0)
		return err
	}

	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), retry.NewExponential(baseDelay))

	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := s.deliver(ctx, raw)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			s.logger.Warn("transient mail delivery failure",
				zap.String("kind", string(kind)),
				zap.String("to", to),
				zap.Int("attempt", attempts),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		s.observe(kind, "failed", attempts)
		s.logger.Error("mail delivery failed",
			zap.String("kind", string(kind)),
			zap.String("to", to),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return fmt.Errorf("send %s email after %d attempt(s): %w", kind, attempts, err)
	}

	s.observe(kind, "sent", attempts)
	s.logger.Info("mail delivered",
		zap.String("kind", string(kind)),
		zap.String("to", to),
		zap.Int("attempts", attempts))
	return nil
}

func (s *Sender) deliver(ctx context.Context, raw string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	payload, err := json.Marshal(sendRequest{Raw: raw})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// encode собирает MIME-сообщение и кодирует его в base64url без выравнивания.
func (s *Sender) encode(to, subject, htmlBody string) (string, error) {
	m := gomail.NewMessage()
	if s.cfg.FromName != "" {
		m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		m.SetHeader("From", s.cfg.From)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("build mime message: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Sender) observe(kind Kind, result string, attempts int) {
	if s.observer != nil {
		s.observer.ObserveMail(string(kind), result, attempts)
	}
}
