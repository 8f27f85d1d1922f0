package model

import "time"

// Language is the reply language a user picked from the language menu.
type Language string

const (
	LanguageUnset   Language = ""
	LanguageEnglish Language = "en"
	LanguageChinese Language = "cn"
)

// ParseLanguage maps a callback language code to a known Language.
func ParseLanguage(code string) (Language, bool) {
	switch Language(code) {
	case LanguageEnglish, LanguageChinese:
		return Language(code), true
	default:
		return LanguageUnset, false
	}
}

// User stores Telegram user profile fields.
type User struct {
	UserID    int64    `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	NickName  string   `gorm:"column:nick_name;size:255"`
	Lang      Language `gorm:"column:lang;size:8;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
