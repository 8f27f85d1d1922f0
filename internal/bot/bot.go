package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gptbot/internal/service"
)

// pollTimeout bounds the long poll, and with it how long StopReceivingUpdates takes to land.
const pollTimeout = 25

// Bot connects the Telegram API to the Router.
type Bot struct {
	api       *tgbotapi.BotAPI
	messenger *TelegramMessenger
	router    *Router
	log       *zap.Logger
	wg        sync.WaitGroup
}

// New authorizes against the Bot API. completer may be nil when AI replies are disabled.
func New(token string, directory Directory, completer Completer, limiter service.Limiter, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	messenger := NewTelegramMessenger(api)
	return &Bot{
		api:       api,
		messenger: messenger,
		router:    NewRouter(messenger, directory, completer, limiter, log),
		log:       log,
	}, nil
}

// Messenger exposes the outbound side for jobs that post outside of an event.
func (b *Bot) Messenger() *TelegramMessenger {
	return b.messenger
}

// Start begins polling updates until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.log.Warn("delete webhook", zap.Error(err))
	}

	updates := b.api.GetUpdatesChan(newUpdateConfig())

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.Dispatch(ctx, update)
	}

	b.Wait()
	return ctx.Err()
}

func newUpdateConfig() tgbotapi.UpdateConfig {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	return cfg
}

// RegisterWebhook points Telegram at url. Updates then arrive through Dispatch.
func (b *Bot) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.log.Info("webhook registered", zap.String("url", url))
	return nil
}

// Dispatch handles update in its own goroutine. Handlers outlive ctx cancellation so a
// reply already in progress is still delivered during shutdown.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, ok := eventFromUpdate(update)
	if !ok {
		return
	}
	handlerCtx := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("handler panic", zap.Any("panic", r), zap.Int("update_id", update.UpdateID))
			}
		}()
		b.router.Handle(handlerCtx, ev)
	}()
}

// Wait blocks until every dispatched handler has returned.
func (b *Bot) Wait() {
	b.wg.Wait()
}
