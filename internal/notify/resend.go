package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
)

// emailSender is the subset of the Resend client used here.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier sends notifications as e-mail through Resend.
type ResendNotifier struct {
	emails emailSender
	from   string
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{emails: resend.NewClient(apiKey).Emails, from: from}
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	_, err := n.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

var onboardingCompleteHTML = template.Must(template.New("onboarding_complete").Parse(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">Nice work, {{.Name}}!</h2>
				<p>You created a project, connected a tool, ran it in the Sandbox, shipped to staging and asked the assistant for help.</p>
				<p>Your workspace is ready.</p>
			</div>
		`))

// OnboardingComplete builds the message sent when a user finishes every step.
// name is user input and is HTML-escaped.
func OnboardingComplete(to, name string) Message {
	var body strings.Builder
	if err := onboardingCompleteHTML.Execute(&body, struct{ Name string }{name}); err != nil {
		body.Reset()
		body.WriteString("<p>Your workspace is ready.</p>")
	}
	return Message{
		To:      to,
		Subject: "You're all set up on DevFlowHub",
		HTML:    body.String(),
	}
}
