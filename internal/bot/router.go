package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gptbot/internal/model"
	"gptbot/internal/service"
)

const (
	textHelp = "Available commands:\n" +
		"/start - Start the bot\n" +
		"/help - Show help\n" +
		"Use the menu buttons for more options."
	textChooseLanguage  = "Please choose your language:"
	textImageDisabled   = "No OpenAI API key configured, cannot generate images."
	textImagePending    = "Image prompt placeholder. Implement with OpenAI Image Generation if desired."
	textNewChat         = "Starting new conversation..."
	textMenuHelp        = "Use /help for detailed instructions. Ask me anything!"
	textSwitchRoles     = "Role switching feature is not fully implemented yet."
	textRestartSession  = "Session restarted. All conversation context cleared."
	textStatistics      = "Statistics are not implemented yet. (Placeholder)"
	textRateLimited     = "You are being rate-limited, please wait."
	textCompletionError = "Error generating AI response. Please try again."
	textAIDisabled      = "No AI features configured. Received: "
	textLanguageEnglish = "Language set to English 🇬🇧"
	textLanguageChinese = "语言已切换为中文 🇨🇳"
)

// Keyboard selects the reply markup attached to an outgoing message.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMainMenu
	KeyboardLanguage
)

// Messenger delivers replies. Errors are reported to the caller, which only logs them.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, queryID string) error
}

// Directory is the best-effort user store.
type Directory interface {
	EnsureUser(ctx context.Context, userID int64, nickName string)
	SetLanguage(ctx context.Context, userID int64, nickName string, lang model.Language)
}

// Completer answers a prompt with a language-model reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Router handles one event at a time and keeps no per-event state, so Handle may run concurrently.
type Router struct {
	messenger Messenger
	directory Directory
	completer Completer
	limiter   service.Limiter
	log       *zap.Logger
}

// NewRouter builds a Router. A nil completer disables AI replies; a nil limiter permits everything.
func NewRouter(messenger Messenger, directory Directory, completer Completer, limiter service.Limiter, log *zap.Logger) *Router {
	if limiter == nil {
		limiter = service.Unlimited{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		messenger: messenger,
		directory: directory,
		completer: completer,
		limiter:   limiter,
		log:       log,
	}
}

// Handle routes a single event. The user record is ensured first, then the rate limit is
// checked once. Callback queries are acknowledged after the check, limited or not, and only
// then is the event dispatched.
func (r *Router) Handle(ctx context.Context, ev Event) {
	userID, name := ev.sender()
	log := r.log.With(zap.String("trace_id", ev.traceID()), zap.Int64("user_id", userID))

	r.directory.EnsureUser(ctx, userID, name)

	allowed := r.limiter.Allow(ctx, userID)

	if cb, ok := ev.(Callback); ok {
		if err := r.messenger.AnswerCallback(ctx, cb.QueryID); err != nil {
			log.Warn("answer callback failed", zap.Error(err))
		}
	}

	if !allowed {
		log.Info("rate limited")
		r.send(ctx, log, ev.chat(), textRateLimited, KeyboardNone)
		return
	}

	switch e := ev.(type) {
	case Message:
		r.handleMessage(ctx, log, e)
	case Callback:
		r.handleCallback(ctx, log, e)
	}
}

func (r *Router) handleMessage(ctx context.Context, log *zap.Logger, msg Message) {
	cmd := Classify(msg.Text)
	log.Debug("message classified", zap.Int("command", int(cmd)))

	switch cmd {
	case CommandStart:
		r.send(ctx, log, msg.ChatID, fmt.Sprintf("Hello, %s! Use the menu below:", msg.DisplayName), KeyboardMainMenu)
	case CommandHelp:
		r.send(ctx, log, msg.ChatID, textHelp, KeyboardNone)
	case MenuLanguage:
		r.send(ctx, log, msg.ChatID, textChooseLanguage, KeyboardLanguage)
	case MenuImage:
		if r.completer == nil {
			r.send(ctx, log, msg.ChatID, textImageDisabled, KeyboardNone)
			return
		}
		r.send(ctx, log, msg.ChatID, textImagePending, KeyboardNone)
	case MenuNewChat:
		r.send(ctx, log, msg.ChatID, textNewChat, KeyboardNone)
	case MenuHelp:
		r.send(ctx, log, msg.ChatID, textMenuHelp, KeyboardNone)
	case MenuSwitchRoles:
		r.send(ctx, log, msg.ChatID, textSwitchRoles, KeyboardNone)
	case MenuRestartSession:
		r.send(ctx, log, msg.ChatID, textRestartSession, KeyboardNone)
	case MenuStatistics:
		r.send(ctx, log, msg.ChatID, textStatistics, KeyboardNone)
	default:
		r.handlePrompt(ctx, log, msg)
	}
}

func (r *Router) handlePrompt(ctx context.Context, log *zap.Logger, msg Message) {
	if r.completer == nil {
		r.send(ctx, log, msg.ChatID, textAIDisabled+msg.Text, KeyboardNone)
		return
	}
	reply, err := r.completer.Complete(ctx, msg.Text)
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		r.send(ctx, log, msg.ChatID, textCompletionError, KeyboardNone)
		return
	}
	r.send(ctx, log, msg.ChatID, reply, KeyboardNone)
}

func (r *Router) handleCallback(ctx context.Context, log *zap.Logger, cb Callback) {
	action, err := ParseCallback(cb.Data)
	if err != nil {
		log.Warn("callback ignored", zap.String("data", cb.Data), zap.Error(err))
		return
	}

	r.directory.SetLanguage(ctx, cb.UserID, cb.DisplayName, action.Lang)

	text := textLanguageEnglish
	if action.Lang == model.LanguageChinese {
		text = textLanguageChinese
	}
	if err := r.messenger.EditText(ctx, cb.ChatID, cb.MessageID, text); err != nil {
		log.Warn("edit message failed", zap.Int("message_id", cb.MessageID), zap.Error(err))
	}
}

func (r *Router) send(ctx context.Context, log *zap.Logger, chatID int64, text string, kb Keyboard) {
	if err := r.messenger.Send(ctx, chatID, text, kb); err != nil {
		log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
