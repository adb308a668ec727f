package smtp

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/config"
)

// Mailer sends order receipts over plain SMTP.
type Mailer struct {
	addr string
	from string
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer builds a Mailer from the notifications config section.
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		addr: net.JoinHostPort(cfg.Notifications.SMTPHost, strconv.Itoa(cfg.Notifications.SMTPPort)),
		from: cfg.Notifications.From,
	}
}

// SendOrderReceipt sends one notification email for a received order.
func (mailer *Mailer) SendOrderReceipt(ctx context.Context, to, orderID string, total orders.Money) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: We received your order!\r\n\r\n"+
			"We received your order %s, totaling $%.2f.\r\n",
		mailer.from, to, orderID, total.ToFloat2(),
	)

	if err := smtp.SendMail(mailer.addr, nil, mailer.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("send order receipt to %s: %w", to, err)
	}
	return nil
}
