package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		code string
		want Language
		ok   bool
	}{
		{"en", LanguageEnglish, true},
		{"cn", LanguageChinese, true},
		{"", LanguageUnset, false},
		{"EN", LanguageUnset, false},
		{"de", LanguageUnset, false},
	}
	for _, tt := range tests {
		got, ok := ParseLanguage(tt.code)
		assert.Equal(t, tt.want, got, tt.code)
		assert.Equal(t, tt.ok, ok, tt.code)
	}
}
