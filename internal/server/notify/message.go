// Package notify sends best-effort email notifications. Nothing here is
// allowed to fail a request: callers hand a Message to a Dispatcher and move
// on.
package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	TemplateWelcome     = "welcome"
	TemplatePostCreated = "post-created"
)

// Message asks for Template to be rendered with Data and sent to To.
type Message struct {
	To       string
	Template string
	Data     map[string]string
}

// Email is a rendered message, as queued for the mailer.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template"`
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]emailTemplate{
	TemplateWelcome: {
		subject: mustParse("welcome.subject", `Welcome to Postboard, {{.name}}`),
		body: mustParse("welcome.body", `Hi {{.name}},

Your Postboard account for {{.email}} is ready. Sign in any time to start posting.
`),
	},
	TemplatePostCreated: {
		subject: mustParse("post-created.subject", `Your post "{{.title}}" is live`),
		body: mustParse("post-created.body", `Hi {{.name}},

Your post "{{.title}}" was created{{if .published}} and published{{end}}.
Post id: {{.postId}}
`),
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(text))
}

// Render produces the Email for msg. Missing data keys render as empty.
func Render(msg Message) (Email, error) {
	tpl, ok := templates[msg.Template]
	if !ok {
		return Email{}, fmt.Errorf("unknown template %q", msg.Template)
	}
	if msg.To == "" {
		return Email{}, fmt.Errorf("template %q: empty recipient", msg.Template)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, msg.Data); err != nil {
		return Email{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, msg.Data); err != nil {
		return Email{}, fmt.Errorf("render body: %w", err)
	}

	return Email{To: msg.To, Subject: subject.String(), Body: body.String(), Template: msg.Template}, nil
}
