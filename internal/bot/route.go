package bot

import (
	"errors"
	"fmt"
	"strings"

	"gptbot/internal/model"
)

// Command is the classified intent of a plain message.
type Command int

const (
	CommandPrompt Command = iota
	CommandStart
	CommandHelp
	MenuLanguage
	MenuImage
	MenuNewChat
	MenuHelp
	MenuSwitchRoles
	MenuRestartSession
	MenuStatistics
)

const (
	menuLabelLanguage       = "🔤Language"
	menuLabelImage          = "🖼Image"
	menuLabelStart          = "🚀Start"
	menuLabelHelp           = "🆘Help"
	menuLabelSwitchRoles    = "🙋Switch Roles"
	menuLabelRestartSession = "🔃Restart Session"
	menuLabelStatistics     = "📈Statistics"
)

var menuCommands = map[string]Command{
	menuLabelLanguage:       MenuLanguage,
	menuLabelImage:          MenuImage,
	menuLabelStart:          MenuNewChat,
	menuLabelHelp:           MenuHelp,
	menuLabelSwitchRoles:    MenuSwitchRoles,
	menuLabelRestartSession: MenuRestartSession,
	menuLabelStatistics:     MenuStatistics,
}

var slashCommands = map[string]Command{
	"/start": CommandStart,
	"/help":  CommandHelp,
}

// Classify maps message text to a Command. Menu labels match verbatim; a slash command must be
// the whole message, optionally suffixed with @botname. Everything else is a prompt.
func Classify(text string) Command {
	if cmd, ok := menuCommands[text]; ok {
		return cmd
	}
	name := strings.TrimSpace(text)
	if i := strings.IndexByte(name, '@'); i > 0 && i < len(name)-1 && !strings.ContainsAny(name, " \t\n") {
		name = name[:i]
	}
	if cmd, ok := slashCommands[name]; ok {
		return cmd
	}
	return CommandPrompt
}

const callbackLangPrefix = "lang_"

var (
	ErrUnknownCallback = errors.New("unknown callback payload")
	ErrUnknownLanguage = errors.New("unknown language code")
)

// CallbackAction is a decoded callback payload.
type CallbackAction struct {
	Lang model.Language
}

// ParseCallback decodes callback data. Only "lang_<code>" with a known code is accepted.
func ParseCallback(data string) (CallbackAction, error) {
	code, ok := strings.CutPrefix(data, callbackLangPrefix)
	if !ok {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
	}
	lang, ok := model.ParseLanguage(code)
	if !ok {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return CallbackAction{Lang: lang}, nil
}

func languageCallbackData(lang model.Language) string {
	return callbackLangPrefix + string(lang)
}
