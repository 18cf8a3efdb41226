package service

import (
	"context"
	"fmt"
	"strings"

	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{
		bot: bot,
	}
}

func (s *TelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return s.bot.Send(msg)
}

func (s *TelegramService) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return s.bot.Send(msg)
}

// ManagerNotifier tells the service managers about new bookings. Handle runs
// inside EventBus.Publish, so it only queues; Run does the sending.
type ManagerNotifier struct {
	telegram *TelegramService
	chatIDs  []int64
	queue    chan events.BookingEventPayload
	logger   *zerolog.Logger
}

func NewManagerNotifier(telegram *TelegramService, chatIDs []int64, logger *zerolog.Logger) *ManagerNotifier {
	return &ManagerNotifier{
		telegram: telegram,
		chatIDs:  chatIDs,
		queue:    make(chan events.BookingEventPayload, models.WorkerQueueSize),
		logger:   logger,
	}
}

// Handle is an events.EventHandler for booking_created.
func (n *ManagerNotifier) Handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}

	select {
	case n.queue <- payload:
	default:
		n.logger.Warn().Str("booking_id", payload.BookingID).Msg("notification queue full, dropping")
	}
	return nil
}

func (n *ManagerNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-n.queue:
			n.notify(payload)
		}
	}
}

func (n *ManagerNotifier) notify(payload events.BookingEventPayload) {
	text := formatNewBooking(payload)
	for _, chatID := range n.chatIDs {
		if _, err := n.telegram.SendHTML(chatID, text); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("booking_id", payload.BookingID).Msg("failed to notify manager")
		}
	}
}

func formatNewBooking(p events.BookingEventPayload) string {
	var b strings.Builder
	b.WriteString("🚗 <b>Новая заявка</b>\n\n")
	fmt.Fprintf(&b, "📅 %s %s\n", escapeHTML(p.BookingDate), escapeHTML(p.BookingTime))
	fmt.Fprintf(&b, "🔧 %s, %.2f\n", escapeHTML(p.ServiceType), p.Price)
	fmt.Fprintf(&b, "🚘 %s\n", escapeHTML(p.CarPlate))
	if p.PhoneNumber != "" {
		fmt.Fprintf(&b, "📞 %s\n", escapeHTML(p.PhoneNumber))
	}
	fmt.Fprintf(&b, "\nID: <code>%s</code>", escapeHTML(p.BookingID))
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
