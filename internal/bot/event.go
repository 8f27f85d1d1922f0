package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const defaultDisplayName = "User"

// Event is one inbound unit from Telegram: a Message or a Callback.
type Event interface {
	sender() (userID int64, displayName string)
	chat() int64
	traceID() string
}

// Message is a plain text message.
type Message struct {
	TraceID     string
	ChatID      int64
	UserID      int64
	DisplayName string
	Text        string
}

// Callback is an inline keyboard button press.
type Callback struct {
	TraceID     string
	QueryID     string
	ChatID      int64
	UserID      int64
	DisplayName string
	MessageID   int
	Data        string
}

func (m Message) sender() (int64, string) { return m.UserID, m.DisplayName }
func (m Message) chat() int64             { return m.ChatID }
func (m Message) traceID() string         { return m.TraceID }

func (c Callback) sender() (int64, string) { return c.UserID, c.DisplayName }
func (c Callback) chat() int64             { return c.ChatID }
func (c Callback) traceID() string         { return c.TraceID }

// eventFromUpdate converts a Telegram update. Updates without a sender or chat are skipped.
func eventFromUpdate(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return nil, false
		}
		return Callback{
			TraceID:     uuid.NewString(),
			QueryID:     cb.ID,
			ChatID:      cb.Message.Chat.ID,
			UserID:      cb.From.ID,
			DisplayName: displayName(cb.From),
			MessageID:   cb.Message.MessageID,
			Data:        cb.Data,
		}, true
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return nil, false
		}
		return Message{
			TraceID:     uuid.NewString(),
			ChatID:      msg.Chat.ID,
			UserID:      msg.From.ID,
			DisplayName: displayName(msg.From),
			Text:        msg.Text,
		}, true
	default:
		return nil, false
	}
}

func displayName(u *tgbotapi.User) string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return defaultDisplayName
}
