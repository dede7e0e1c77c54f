package authkit

import (
	"context"
	"html/template"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var confirmationEmailTmpl = template.Must(template.New("confirmation_email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Email Confirmation</title>
    <style>
        .button {
            background-color: #3498db;
            border: none;
            color: white;
            padding: 12px 24px;
            text-align: center;
            text-decoration: none;
            display: inline-block;
            font-size: 16px;
            margin: 4px 2px;
            cursor: pointer;
            border-radius: 5px;
        }
    </style>
</head>
<body>
    <h2>Confirmation Email</h2>
    <p>Hello, {{.Name}},</p>
    <p>Thank you for registering. Please click the button below to confirm your email:</p>
    <p>
        <a href="{{.Link}}" class="button">Confirm Email</a>
    </p>
    <p>
        Note: This link will expire in 15 minutes.
    </p>
</body>
</html>`))

// RenderConfirmationEmail renders the account-confirmation email body.
func RenderConfirmationEmail(name, link string) (string, error) {
	var buf strings.Builder
	err := confirmationEmailTmpl.Execute(&buf, struct {
		Name string
		Link template.URL
	}{Name: name, Link: template.URL(link)})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render confirmation email")
	}
	return buf.String(), nil
}

// logEmailDispatcher is the default EmailDispatcher: it logs the delivery
// instead of sending it, which keeps development setups working without an
// SMTP relay.
type logEmailDispatcher struct {
	logger Logger
}

var _ EmailDispatcher = logEmailDispatcher{}

func (d logEmailDispatcher) Send(_ context.Context, to, _ string) error {
	d.logger.Info("confirmation email queued for %s", to)
	return nil
}

// NewLogEmailDispatcher returns a dispatcher that only logs deliveries.
func NewLogEmailDispatcher(logger Logger) EmailDispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	return logEmailDispatcher{logger: logger}
}
