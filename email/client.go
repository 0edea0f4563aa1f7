// Package email provides the Resend notification client.
package email

import (
	"fmt"
	"html"
	"os"

	"github.com/resendlabs/resend-go"

	"github.com/mozanhq/campaign-go/leads"
)

// Client sends campaign staff notifications through Resend.
type Client struct {
	resend    *resend.Client
	fromEmail string
	fromName  string
	notifyTo  string
}

// NewClientFromEnv builds a client from RESEND_API_KEY and
// LEAD_NOTIFY_EMAIL. Both are required; notifications are an optional
// feature and the caller is expected to run without them when this fails.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	notifyTo := os.Getenv("LEAD_NOTIFY_EMAIL")
	if notifyTo == "" {
		return nil, fmt.Errorf("LEAD_NOTIFY_EMAIL environment variable is required")
	}

	fromEmail := os.Getenv("CAMPAIGN_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@yourdomain.com"
	}

	fromName := os.Getenv("CAMPAIGN_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Campaign"
	}

	return &Client{
		resend:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		notifyTo:  notifyTo,
	}, nil
}

// SendLeadNotification emails staff about a new registration.
func (c *Client) SendLeadNotification(lead *leads.Lead) error {
	subject := fmt.Sprintf("New campaign registration: %s", lead.FullName)

	htmlContent := fmt.Sprintf(`
		<h2>New campaign registration</h2>
		<table>
			<tr><td><strong>Name</strong></td><td>%s</td></tr>
			<tr><td><strong>Phone</strong></td><td>%s</td></tr>
			<tr><td><strong>Email</strong></td><td>%s</td></tr>
			<tr><td><strong>Institution</strong></td><td>%s</td></tr>
			<tr><td><strong>Occupation</strong></td><td>%s</td></tr>
			<tr><td><strong>Registered</strong></td><td>%s</td></tr>
		</table>`,
		html.EscapeString(lead.FullName),
		html.EscapeString(lead.PhoneNumber),
		html.EscapeString(lead.Email),
		html.EscapeString(lead.Institution),
		html.EscapeString(lead.Occupation),
		html.EscapeString(lead.CreatedAt),
	)

	request := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{c.notifyTo},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.resend.Emails.Send(request)
	if err != nil {
		return fmt.Errorf("failed to send lead notification: %w", err)
	}

	return nil
}
