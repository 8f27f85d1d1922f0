package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gptbot/internal/model"
)

// maxMessageRunes is Telegram's limit for a single text message.
const maxMessageRunes = 4096

// chattableSender is the part of *tgbotapi.BotAPI the messenger needs.
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramMessenger implements Messenger on top of the Bot API.
type TelegramMessenger struct {
	api chattableSender
}

func NewTelegramMessenger(api chattableSender) *TelegramMessenger {
	return &TelegramMessenger{api: api}
}

// Send delivers text, split into several messages when it exceeds Telegram's limit.
// The keyboard is attached to the first part.
func (m *TelegramMessenger) Send(_ context.Context, chatID int64, text string, kb Keyboard) error {
	for i, part := range splitText(text, maxMessageRunes) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 {
			switch kb {
			case KeyboardMainMenu:
				msg.ReplyMarkup = mainMenuKeyboard()
			case KeyboardLanguage:
				msg.ReplyMarkup = languageKeyboard()
			}
		}
		if _, err := m.api.Send(msg); err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
	}
	return nil
}

func (m *TelegramMessenger) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := m.api.Send(edit); err != nil {
		return fmt.Errorf("edit %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func (m *TelegramMessenger) AnswerCallback(_ context.Context, queryID string) error {
	if _, err := m.api.Request(tgbotapi.NewCallback(queryID, "")); err != nil {
		return fmt.Errorf("callback ack: %w", err)
	}
	return nil
}

// SendToChannel posts to a channel given either as a numeric chat id or as @username.
func (m *TelegramMessenger) SendToChannel(_ context.Context, channel, text string) error {
	channel = strings.TrimSpace(channel)
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		if !strings.HasPrefix(channel, "@") {
			channel = "@" + channel
		}
		msg = tgbotapi.NewMessageToChannel(channel, text)
	}
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send to channel %s: %w", channel, err)
	}
	return nil
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelLanguage),
			tgbotapi.NewKeyboardButton(menuLabelImage),
			tgbotapi.NewKeyboardButton(menuLabelStart),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
			tgbotapi.NewKeyboardButton(menuLabelSwitchRoles),
			tgbotapi.NewKeyboardButton(menuLabelRestartSession),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStatistics),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("English", languageCallbackData(model.LanguageEnglish)),
			tgbotapi.NewInlineKeyboardButtonData("中文", languageCallbackData(model.LanguageChinese)),
		),
	)
}

func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		// prefer breaking after a newline in the second half of the chunk
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
