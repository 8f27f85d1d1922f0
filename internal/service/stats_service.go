package service

import (
	"context"
	"fmt"
	"strings"

	"gptbot/internal/model"
	"gptbot/internal/repository"
)

// LanguageCounter reports how many users picked each language.
type LanguageCounter interface {
	CountByLanguage(ctx context.Context) ([]repository.LanguageCount, error)
}

// ChannelPoster posts plain text to a channel by id or @name.
type ChannelPoster interface {
	SendToChannel(ctx context.Context, channel, text string) error
}

// StatsService builds the user summary posted to the notification channel.
type StatsService struct {
	counter LanguageCounter
	poster  ChannelPoster
	channel string
}

func NewStatsService(counter LanguageCounter, poster ChannelPoster, channel string) *StatsService {
	return &StatsService{counter: counter, poster: poster, channel: channel}
}

func (s *StatsService) Summary(ctx context.Context) (string, error) {
	counts, err := s.counter.CountByLanguage(ctx)
	if err != nil {
		return "", err
	}

	var total int64
	for _, c := range counts {
		total += c.Total
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 Users: %d\n", total)
	for _, c := range counts {
		fmt.Fprintf(&b, "• %s: %d\n", languageName(c.Lang), c.Total)
	}
	return strings.TrimSpace(b.String()), nil
}

// Report posts the summary to the configured channel. It is a no-op without a channel.
func (s *StatsService) Report(ctx context.Context) error {
	if s.channel == "" {
		return nil
	}
	text, err := s.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build stats: %w", err)
	}
	if err := s.poster.SendToChannel(ctx, s.channel, text); err != nil {
		return fmt.Errorf("post stats to %s: %w", s.channel, err)
	}
	return nil
}

func languageName(lang model.Language) string {
	switch lang {
	case model.LanguageEnglish:
		return "English"
	case model.LanguageChinese:
		return "中文"
	default:
		return "not set"
	}
}
