package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"audiophile-store/internal/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Item is one order line as rendered in the confirmation email. Image must
// be an absolute URL since the email is viewed outside the storefront.
type Item struct {
	Name     string
	Price    int64
	Quantity int
	Image    string
}

// OrderConfirmation is the payload for a confirmation email.
type OrderConfirmation struct {
	CustomerName    string
	CustomerEmail   string
	OrderID         string
	Items           []Item
	ShippingAddress string
	ShippingCity    string
	ShippingZipCode string
	ShippingCountry string
	Subtotal        int64
	Shipping        int64
	VAT             int64
	GrandTotal      int64
}

// Mailer dispatches order confirmation messages. Delivery transport and
// credentials are entirely the implementation's concern.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, conf OrderConfirmation) (messageID string, err error)
}

//go:embed order_confirmation.gohtml
var templateFS embed.FS

// SMTPMailer renders the confirmation template and delivers it over SMTP.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	tmpl   *template.Template
	logger *zap.Logger
}

// NewSMTPMailer parses the embedded confirmation template and returns a
// mailer using the given SMTP transport configuration.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	tmpl, err := template.New("order_confirmation.gohtml").
		Funcs(template.FuncMap{"price": FormatPrice}).
		ParseFS(templateFS, "order_confirmation.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}

	return &SMTPMailer{
		cfg:    cfg,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// Render produces the HTML body for a confirmation email.
func (m *SMTPMailer) Render(conf OrderConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, conf); err != nil {
		return "", fmt.Errorf("failed to render confirmation email: %w", err)
	}
	return buf.String(), nil
}

// SendOrderConfirmation renders and sends the confirmation message,
// returning the generated message id.
func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, conf OrderConfirmation) (string, error) {
	body, err := m.Render(conf)
	if err != nil {
		return "", err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat("Audiophile", m.cfg.From); err != nil {
		return "", fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(conf.CustomerEmail); err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Order Confirmation - " + conf.OrderID)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := msg.GetMessageID()
	m.logger.Debug("Email dispatched",
		zap.String("order_id", conf.OrderID),
		zap.String("message_id", messageID),
	)

	return messageID, nil
}

// FormatPrice renders a whole currency amount as a dollar figure with
// thousands separators, e.g. 156050 -> "$156,050".
func FormatPrice(v int64) string {
	s := strconv.FormatInt(v, 10)

	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	var buf bytes.Buffer
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			buf.WriteByte(',')
		}
		buf.WriteRune(r)
	}

	if neg {
		return "-$" + buf.String()
	}
	return "$" + buf.String()
}
