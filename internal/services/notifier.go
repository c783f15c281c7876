package services

import (
	"context"
	"errors"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/models"
)

// AdminNotifier alerts the shop staff. TelegramService implements it.
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order, customer *models.User) error
	NotifyCancellation(ctx context.Context, order *models.Order) error
}

// CustomerNotifier tells a customer about changes to their order.
type CustomerNotifier interface {
	OrderCancelled(ctx context.Context, customer *models.User, order *models.Order) error
}

// ContactNotifier reaches customers by SMS and email, whichever they have.
type ContactNotifier struct {
	sms    SMSSender
	mailer Mailer
	log    *zap.Logger
}

func NewContactNotifier(sms SMSSender, mailer Mailer, log *zap.Logger) *ContactNotifier {
	return &ContactNotifier{sms: sms, mailer: mailer, log: log}
}

// OrderCancelled sends both messages and returns the joined errors.
func (n *ContactNotifier) OrderCancelled(ctx context.Context, customer *models.User, order *models.Order) error {
	if customer == nil {
		return nil
	}

	var errs []error
	if phone := customer.PhoneNumber(); phone != "" && n.sms != nil {
		body := fmt.Sprintf("Your order %s has been cancelled.", order.OrderNumber)
		if err := n.sms.SendSMS(ctx, phone, body); err != nil && !errors.Is(err, ErrSMSNotConfigured) {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}

	if email := customer.EmailAddress(); email != "" && n.mailer != nil {
		subject := fmt.Sprintf("Order %s cancelled", order.OrderNumber)
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your order <b>%s</b> totalling %s has been cancelled.</p>",
			html.EscapeString(customer.Name), html.EscapeString(order.OrderNumber), FormatPrice(order.TotalAmount))
		if err := n.mailer.SendMail(ctx, email, subject, body); err != nil && !errors.Is(err, ErrMailNotConfigured) {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	return errors.Join(errs...)
}
