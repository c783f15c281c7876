package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/models"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService handles sending notifications to the shop's admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiURL      string
	httpClient  *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiURL:      telegramAPI,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin sends a message to the admin chat. Missing configuration is not an error.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.botToken == "" || s.adminChatID == "" {
		s.log.Debug("telegram not configured, skipping admin message")
		return nil
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:    s.adminChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// FormatPrice formats an amount with thousand separators and two decimals.
func FormatPrice(amount float64) string {
	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	str := fmt.Sprintf("%d", whole)

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return fmt.Sprintf("%s.%02d", result.String(), cents)
}

// FormatOrderMessage renders the admin alert for a newly placed order.
func FormatOrderMessage(order *models.Order, customer *models.User) string {
	var items strings.Builder
	for i, item := range order.Items {
		items.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			item.Quantity,
			FormatPrice(item.UnitPrice),
			FormatPrice(item.LineTotal),
		))
	}

	kind := "Regular order"
	if order.IsHamper {
		kind = "Hamper"
	}

	name, phone := "-", "-"
	if customer != nil {
		if customer.Name != "" {
			name = customer.Name
		}
		if p := customer.PhoneNumber(); p != "" {
			phone = p
		}
	}

	msg := fmt.Sprintf(`<b>🧁 NEW ORDER</b>
<b>Order:</b> %s (%s)
<b>Customer:</b> %s
<b>Phone:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s`,
		order.OrderNumber,
		kind,
		html.EscapeString(name),
		html.EscapeString(phone),
		items.String(),
		FormatPrice(order.TotalAmount),
	)
	if order.Customization != "" {
		msg += "\n<b>Note:</b> " + html.EscapeString(order.Customization)
	}
	return strings.TrimSpace(msg)
}

// NotifyNewOrder alerts the admin chat about a new order.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order *models.Order, customer *models.User) error {
	return s.SendToAdmin(ctx, FormatOrderMessage(order, customer))
}

// NotifyCancellation alerts the admin chat that a customer cancelled.
func (s *TelegramService) NotifyCancellation(ctx context.Context, order *models.Order) error {
	return s.SendToAdmin(ctx, fmt.Sprintf("<b>❌ ORDER CANCELLED</b>\n<b>Order:</b> %s\n<b>Total:</b> %s",
		order.OrderNumber, FormatPrice(order.TotalAmount)))
}
