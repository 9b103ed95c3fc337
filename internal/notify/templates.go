package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[string]emailTemplate{
	"stage_changed": {
		subject: "Your horsebox enquiry has been updated",
		body: template.Must(template.New("stage_changed").Parse(`
		<h2>Hello {{.first_name}},</h2>
		<p>Your enquiry with J Taylor Horseboxes has moved to <strong>{{.stage}}</strong>.</p>
		<p>Your sales contact will be in touch shortly.</p>
		<p>Best regards,<br>The JTH Team</p>
	`)),
	},
	"deal_won": {
		subject: "Thank you for your order",
		body: template.Must(template.New("deal_won").Parse(`
		<h2>Congratulations {{.first_name}}!</h2>
		<p>Your horsebox order has been confirmed and passed to our production team.</p>
		<p>We will send build updates as your horsebox progresses.</p>
		<p>Best regards,<br>The JTH Team</p>
	`)),
	},
	"production_handover": {
		subject: "New build ready for planning",
		body: template.Must(template.New("production_handover").Parse(`
		<h3>Deal won: {{.full_name}}</h3>
		<p>Customer email: {{.lead_email}}</p>
		<p>A build record has been created and is waiting for planning.</p>
	`)),
	},
	"lead_received": {
		subject: "We've received your enquiry",
		body: template.Must(template.New("lead_received").Parse(`
		<h2>Thank you {{.first_name}},</h2>
		<p>We have received your enquiry and saved your configuration.</p>
		<p>A member of our sales team will contact you within one working day.</p>
		<p>Best regards,<br>The JTH Team</p>
	`)),
	},
}

// render returns the subject and HTML body for a named template. A subject
// override replaces the template's default.
func render(name, subjectOverride string, data map[string]string) (string, string, error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email template %q: %w", name, err)
	}

	subject := t.subject
	if subjectOverride != "" {
		subject = subjectOverride
	}
	return subject, buf.String(), nil
}

// HasTemplate reports whether name is a known email template.
func HasTemplate(name string) bool {
	_, ok := templates[name]
	return ok
}
