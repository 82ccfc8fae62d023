package utils

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"

	"dunly/config"

	"gopkg.in/gomail.v2"
)

// MailSender is the outbound transport seam. The delivery processor depends
// on this interface so tests can stub the SMTP dialer.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends through the configured SMTP relay.
type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		Host:      config.AppConfig.SMTP.Host,
		Port:      config.AppConfig.SMTP.Port,
		Username:  config.AppConfig.SMTP.Username,
		Password:  config.AppConfig.SMTP.Password,
		FromName:  config.AppConfig.FromName,
		FromEmail: config.AppConfig.FromEmail,
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// ReminderData feeds the embedded reminder templates.
type ReminderData struct {
	ClientName    string
	CompanyName   string
	InvoiceNumber string
	AmountDue     string
	DueDate       string
	DaysOverdue   int
	SenderName    string
	Year          int
}

type emailTemplate struct {
	Subject string
	Body    string
}

// Embedded email templates, keyed by template id from the strategy catalog.
var emailTemplates = map[string]emailTemplate{
	"payment_reminder_gentle": {
		Subject: "Friendly reminder: invoice {{.InvoiceNumber}} is due",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .amount { font-size: 20px; font-weight: bold; color: #3498db; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Invoice {{.InvoiceNumber}}</h2>
    </div>
    <p>Hi {{.ClientName}},</p>
    <p>Just a friendly note that invoice {{.InvoiceNumber}} for
    <span class="amount">{{.AmountDue}}</span> was due on {{.DueDate}}.
    If you've already sent payment, please disregard this message.</p>
    <p>Thanks,<br>{{.SenderName}}</p>
    <div class="footer">
        <p>© {{.Year}} {{.SenderName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	},

	"payment_reminder_firm": {
		Subject: "Invoice {{.InvoiceNumber}} is {{.DaysOverdue}} days overdue",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .amount { font-size: 20px; font-weight: bold; color: #e67e22; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Payment overdue: invoice {{.InvoiceNumber}}</h2>
    </div>
    <p>Hi {{.ClientName}},</p>
    <p>Invoice {{.InvoiceNumber}} for <span class="amount">{{.AmountDue}}</span>
    is now {{.DaysOverdue}} days past its due date of {{.DueDate}}.</p>
    <p>Please arrange payment at your earliest convenience, or reply to this
    email if something is holding it up.</p>
    <p>Best regards,<br>{{.SenderName}}</p>
    <div class="footer">
        <p>© {{.Year}} {{.SenderName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	},

	"payment_reminder_final": {
		Subject: "Final notice: invoice {{.InvoiceNumber}}",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #c0392b; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .amount { font-size: 20px; font-weight: bold; color: #c0392b; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Final notice: invoice {{.InvoiceNumber}}</h2>
    </div>
    <p>Hi {{.ClientName}},</p>
    <p>Despite earlier reminders, invoice {{.InvoiceNumber}} for
    <span class="amount">{{.AmountDue}}</span> remains unpaid
    ({{.DaysOverdue}} days overdue).</p>
    <p>Please settle the outstanding amount promptly to avoid interruption of
    service. If payment has been made in the last few days, kindly let us know.</p>
    <p>Regards,<br>{{.SenderName}}</p>
    <div class="footer">
        <p>© {{.Year}} {{.SenderName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	},

	"follow_up": {
		Subject: "Following up",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <p>Hi {{.ClientName}},</p>
    <p>I wanted to follow up on our recent work together. Is there anything
    you need from our side, or anything we could be doing better?</p>
    <p>Best,<br>{{.SenderName}}</p>
    <div class="footer">
        <p>© {{.Year}} {{.SenderName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	},

	"check_in": {
		Subject: "Checking in",
		Body: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <p>Hi {{.ClientName}},</p>
    <p>It's been a while since we last spoke. I'd love to hear how things are
    going at {{.CompanyName}} and whether we can help with anything new.</p>
    <p>Warm regards,<br>{{.SenderName}}</p>
    <div class="footer">
        <p>© {{.Year}} {{.SenderName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	},
}

// RenderReminderTemplate renders an embedded template and its subject line.
func RenderReminderTemplate(templateID string, data ReminderData) (subject, body string, err error) {
	tmpl, ok := emailTemplates[templateID]
	if !ok {
		return "", "", fmt.Errorf("template '%s' not found", templateID)
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	subjTmpl, err := texttemplate.New("subject").Parse(tmpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("error parsing subject template: %v", err)
	}
	var subjBuf bytes.Buffer
	if err := subjTmpl.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("error executing subject template: %v", err)
	}

	bodyTmpl, err := template.New("email").Parse(tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("error parsing template: %v", err)
	}
	var bodyBuf bytes.Buffer
	if err := bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("error executing template: %v", err)
	}

	return subjBuf.String(), bodyBuf.String(), nil
}

// IsKnownTemplate reports whether a template id exists in the embedded set.
func IsKnownTemplate(templateID string) bool {
	_, ok := emailTemplates[templateID]
	return ok
}
