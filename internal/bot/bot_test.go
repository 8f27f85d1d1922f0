package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"gptbot/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func textUpdate(id int, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: userID, FirstName: "Alice"},
			Chat:      &tgbotapi.Chat{ID: userID},
			Text:      text,
		},
	}
}

func callbackUpdate(id int, userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "q",
			From: &tgbotapi.User{ID: userID, FirstName: "Bob"},
			Message: &tgbotapi.Message{
				MessageID: 900,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}

func TestEventFromUpdate(t *testing.T) {
	ev, ok := eventFromUpdate(textUpdate(1, 42, "hello"))
	require.True(t, ok)
	m := ev.(Message)
	assert.Equal(t, int64(42), m.UserID)
	assert.Equal(t, int64(42), m.ChatID)
	assert.Equal(t, "Alice", m.DisplayName)
	assert.Equal(t, "hello", m.Text)
	assert.NotEmpty(t, m.TraceID)

	ev, ok = eventFromUpdate(callbackUpdate(2, 7, "lang_cn"))
	require.True(t, ok)
	cb := ev.(Callback)
	assert.Equal(t, "q", cb.QueryID)
	assert.Equal(t, 900, cb.MessageID)
	assert.Equal(t, "lang_cn", cb.Data)
	assert.Equal(t, "Bob", cb.DisplayName)
}

func TestEventFromUpdate_Skipped(t *testing.T) {
	_, ok := eventFromUpdate(tgbotapi.Update{UpdateID: 1})
	assert.False(t, ok)

	_, ok = eventFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}})
	assert.False(t, ok, "channel posts without a sender are skipped")

	_, ok = eventFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 1}}})
	assert.False(t, ok, "inline-mode callbacks without a message are skipped")
}

func TestEventFromUpdate_DisplayNameFallback(t *testing.T) {
	u := textUpdate(1, 3, "hi")
	u.Message.From.FirstName = "  "
	ev, ok := eventFromUpdate(u)
	require.True(t, ok)
	assert.Equal(t, "User", ev.(Message).DisplayName)
}

func TestDispatch_ConcurrentUsers(t *testing.T) {
	m, dir := &fakeMessenger{}, newFakeDirectory()
	comp := &fakeCompleter{reply: "ok"}
	b := &Bot{router: NewRouter(m, dir, comp, nil, zap.NewNop()), log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 20; i++ {
		b.Dispatch(ctx, textUpdate(i, 1, "question"))
		b.Dispatch(ctx, callbackUpdate(100+i, 2, "lang_cn"))
	}
	cancel()
	b.Dispatch(ctx, textUpdate(999, 3, "/start"))
	b.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.sent, 21)
	assert.Len(t, m.edits, 20)
	assert.Len(t, comp.prompts, 20)
	assert.Equal(t, model.LanguageChinese, dir.lang(2))
	assert.Contains(t, dir.names, int64(3), "events dispatched after cancellation still run")
}

type panicDirectory struct{}

func (panicDirectory) EnsureUser(context.Context, int64, string)                  { panic("boom") }
func (panicDirectory) SetLanguage(context.Context, int64, string, model.Language) {}

func TestDispatch_RecoversPanic(t *testing.T) {
	b := &Bot{router: NewRouter(&fakeMessenger{}, panicDirectory{}, nil, nil, nil), log: zap.NewNop()}

	assert.NotPanics(t, func() {
		b.Dispatch(context.Background(), textUpdate(1, 1, "hi"))
		b.Wait()
	})
}

func TestNewUpdateConfig(t *testing.T) {
	cfg := newUpdateConfig()
	assert.Equal(t, 0, cfg.Offset)
	assert.Positive(t, cfg.Timeout)
	assert.Less(t, cfg.Timeout, 30, "long poll must end inside a typical termination grace period")
}
