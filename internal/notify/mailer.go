package notify

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// Mailer sends messages through SES v2.
type Mailer struct {
	client aws.SESAPI
	from   string
}

// NewMailer fails with a configuration error when no sender address is set.
func NewMailer(client aws.SESAPI, from string) (*Mailer, error) {
	if strings.TrimSpace(from) == "" {
		return nil, errorx.Configuration("mail sender address is not set")
	}
	return &Mailer{client: client, from: from}, nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errorx.Validation("to", "recipient is required")
	}
	body := &sestypes.Body{}
	if msg.HTML != "" {
		body.Html = content(msg.HTML)
	}
	if msg.Text != "" {
		body.Text = content(msg.Text)
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: sdkaws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: content(msg.Subject),
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

func content(s string) *sestypes.Content {
	return &sestypes.Content{Data: sdkaws.String(s), Charset: sdkaws.String("UTF-8")}
}
