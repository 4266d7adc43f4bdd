package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

var (
	otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family:Arial,sans-serif">
<h2>Email verification</h2>
<p>Hello {{.Name}},</p>
<p>Your verification code is: <b style="font-size:20px;letter-spacing:4px">{{.Code}}</b></p>
<p>The code expires in {{.Minutes}} minutes. If you did not sign up, ignore this email.</p>
</div>`))

	approvalTemplate = template.Must(template.New("approval").Parse(`<div style="font-family:Arial,sans-serif">
<h2>Your seller account is approved</h2>
<p>Hello {{.Name}},</p>
<p>Your seller account has been reviewed and approved. You can now list products and receive orders.</p>
</div>`))

	rejectionTemplate = template.Must(template.New("rejection").Parse(`<div style="font-family:Arial,sans-serif">
<h2>Your seller application was not approved</h2>
<p>Hello {{.Name}},</p>
<p>Unfortunately your seller application has been rejected.</p>
<p><b>Reason:</b> {{.Reason}}</p>
<p>You can contact support to resolve the issue.</p>
</div>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// SendOTP отправляет код подтверждения почты. Повторы идут с увеличенной базовой задержкой.
func (s *Sender) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	body, err := render(otpTemplate, struct {
		Name    string
		Code    string
		Minutes int
	}{name, code, int(ttl.Minutes())})
	if err != nil {
		return err
	}
	return s.send(ctx, KindOTP, s.cfg.OTPBaseDelay, to, "Verify your email address", body)
}

// SendApproval уведомляет продавца об одобрении заявки.
func (s *Sender) SendApproval(ctx context.Context, to, name string) error {
	body, err := render(approvalTemplate, struct{ Name string }{name})
	if err != nil {
		return err
	}
	return s.send(ctx, KindApproval, s.cfg.BaseDelay, to, "Your seller account has been approved", body)
}

// SendRejection уведомляет продавца об отклонении заявки с указанием причины.
func (s *Sender) SendRejection(ctx context.Context, to, name, reason string) error {
	body, err := render(rejectionTemplate, struct {
		Name   string
		Reason string
	}{name, reason})
	if err != nil {
		return err
	}
	return s.send(ctx, KindRejection, s.cfg.BaseDelay, to, "Your seller application status", body)
}
