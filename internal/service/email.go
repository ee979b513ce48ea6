package service

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/reyschwartz19/OpTracker/internal/markdown"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/scheduler"
	"github.com/resend/resend-go/v2"
)

//go:embed emails/*.md
var emailFS embed.FS

// ReminderDateLayout formats deadlines in reminder emails.
const ReminderDateLayout = "Jan 2, 2006"

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	// quote makes a value safe inside YAML frontmatter; JSON strings are YAML.
	"quote": func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	},
}).ParseFS(emailFS, "emails/*.md"))

type EmailService struct {
	client    *resend.Client
	parser    *markdown.Parser
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		parser:    markdown.NewParser(),
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

type reminderEmailData struct {
	AppName  string
	Name     string
	Title    string
	Deadline string
	Link     string
	DaysLeft int
}

// OpportunityURL is the deep link used in reminder emails.
func (s *EmailService) OpportunityURL(opportunityID string) string {
	return fmt.Sprintf("%s/opportunities/%s", s.appURL, opportunityID)
}

func (s *EmailService) renderReminder(name string, opp *model.Opportunity, daysLeft int) (*markdown.Message, error) {
	deadline := "Unknown"
	if opp.Deadline != nil {
		deadline = opp.Deadline.UTC().Format(ReminderDateLayout)
	}
	if name == "" {
		name = "there"
	}

	return s.parser.RenderTemplate(emailTemplates.Lookup("reminder.md"), reminderEmailData{
		AppName:  s.appName,
		Name:     name,
		Title:    opp.Title,
		Deadline: deadline,
		Link:     s.OpportunityURL(opp.ID),
		DaysLeft: daysLeft,
	})
}

// SendReminderEmail tells the owner that opp is due in daysLeft days. In
// development the message is logged and scheduler.ErrNotDelivered returned,
// so no sent row is written for it.
func (s *EmailService) SendReminderEmail(ctx context.Context, to, name string, opp *model.Opportunity, daysLeft int) error {
	msg, err := s.renderReminder(name, opp, daysLeft)
	if err != nil {
		return err
	}

	err = s.send(ctx, "reminder", to, msg, "opportunity_id", opp.ID, "offset_days", daysLeft)
	if err == nil && s.isDev {
		return scheduler.ErrNotDelivered
	}
	return err
}

func (s *EmailService) SendPasswordResetEmail(ctx context.Context, to, token string, expiry time.Duration) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)

	msg, err := s.parser.RenderTemplate(emailTemplates.Lookup("password_reset.md"), map[string]any{
		"AppName": s.appName,
		"Link":    resetURL,
		"Expiry":  expiry.String(),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "password_reset", to, msg, "url", resetURL)
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	dashboardURL := fmt.Sprintf("%s/dashboard", s.appURL)

	msg, err := s.parser.RenderTemplate(emailTemplates.Lookup("welcome.md"), map[string]any{
		"AppName": s.appName,
		"Name":    name,
		"Link":    dashboardURL,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "welcome", to, msg)
}

func (s *EmailService) send(ctx context.Context, kind, to string, msg *markdown.Message, attrs ...any) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", append([]any{"type", kind, "to", to, "subject", msg.Subject}, attrs...)...)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
