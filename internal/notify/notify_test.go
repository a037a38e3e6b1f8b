package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

type fakeSender struct {
	sent []*mail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func request(ntype types.NotificationType, extra map[string]string) pipeline.NotificationRequest {
	params := map[string]string{
		"candidate_name":  "Ada Obi",
		"recipient_email": "ada@example.com",
		"subject":         pipeline.NotificationSubject(ntype),
	}
	for k, v := range extra {
		params[k] = v
	}
	return pipeline.NotificationRequest{ApplicationID: uuid.New(), NotificationType: ntype, TemplateParams: params}
}

func body(t *testing.T, m *mail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestMailer_Notify(t *testing.T) {
	sender := &fakeSender{}
	m, err := NewMailerWithSender("Hiring <no-reply@example.com>", sender, nil)
	require.NoError(t, err)

	req := request(types.NotificationInterviewScheduled, map[string]string{
		"interview_type": "technical",
		"interview_date": "2026-11-02T10:00:00Z",
		"meeting_link":   "https://meet.example.com/abc",
	})
	resp := m.Notify(context.Background(), req)

	require.True(t, resp.Success, resp.Error)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Hiring <no-reply@example.com>"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Your interview has been scheduled"}, msg.GetHeader("Subject"))
	assert.Contains(t, body(t, msg), "Dear Ada Obi")

	html, err := m.Render(req.NotificationType, req.TemplateParams)
	require.NoError(t, err)
	assert.Contains(t, html, "2026-11-02T10:00:00Z")
	assert.Contains(t, html, "https://meet.example.com/abc")
	assert.NotContains(t, html, "Location:")
}

func TestMailer_EveryTypeRenders(t *testing.T) {
	m, err := NewMailerWithSender("x@example.com", &fakeSender{}, nil)
	require.NoError(t, err)

	for _, nt := range notificationTypes {
		t.Run(string(nt), func(t *testing.T) {
			out, err := m.Render(nt, map[string]string{"candidate_name": "Ada"})
			require.NoError(t, err)
			assert.Contains(t, out, "Dear Ada")
			assert.Contains(t, out, "The Hiring Team")
		})
	}
}

func TestMailer_EscapesParams(t *testing.T) {
	m, err := NewMailerWithSender("x@example.com", &fakeSender{}, nil)
	require.NoError(t, err)

	out, err := m.Render(types.NotificationBCQInvitation, map[string]string{"candidate_name": "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestMailer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		sender  *fakeSender
		req     pipeline.NotificationRequest
		wantErr string
	}{
		{
			name:    "smtp error",
			sender:  &fakeSender{err: errors.New("connection refused")},
			req:     request(types.NotificationDecisionHired, nil),
			wantErr: "connection refused",
		},
		{
			name:    "missing recipient",
			sender:  &fakeSender{},
			req:     request(types.NotificationDecisionHired, map[string]string{"recipient_email": " "}),
			wantErr: "recipient_email is required",
		},
		{
			name:    "unknown type",
			sender:  &fakeSender{},
			req:     request("offer_letter", nil),
			wantErr: "no template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailerWithSender("x@example.com", tt.sender, nil)
			require.NoError(t, err)

			resp := m.Notify(context.Background(), tt.req)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
			assert.Empty(t, tt.sender.sent)
		})
	}
}

func TestMailer_DefaultSubject(t *testing.T) {
	sender := &fakeSender{}
	m, err := NewMailerWithSender("x@example.com", sender, nil)
	require.NoError(t, err)

	req := request(types.NotificationDecisionRejected, map[string]string{"subject": ""})
	require.True(t, m.Notify(context.Background(), req).Success)
	assert.Equal(t, []string{"Your application: update"}, sender.sent[0].GetHeader("Subject"))
}

func TestNewMailer_RequiresConfig(t *testing.T) {
	_, err := NewMailer(SMTPConfig{Host: "smtp.example.com"}, nil)
	assert.Error(t, err)

	m, err := NewMailer(SMTPConfig{Host: "smtp.example.com", From: "x@example.com"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestLogNotifier(t *testing.T) {
	resp := NewLogNotifier(nil).Notify(context.Background(), request(types.NotificationBCQInvitation, nil))
	assert.False(t, resp.Success)
	assert.Equal(t, NotDeliveredMessage, resp.Error)
}
