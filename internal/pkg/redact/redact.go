// redact маскирует чувствительные данные перед записью в лог:
// e-mail, телефоны и токены.
package redact

import (
	"strings"
	"unicode/utf8"
)

// Email оставляет первые два символа локальной части и домен.
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	if utf8.RuneCountInString(local) <= 2 {
		return "***@" + domain
	}

	r := []rune(local)
	return string(r[:2]) + "***@" + domain
}

// Phone оставляет только последние две цифры номера.
func Phone(s string) string {
	if len(s) <= 2 {
		return "***"
	}

	return strings.Repeat("*", len(s)-2) + s[len(s)-2:]
}

// Token оставляет последние 6 символов: этого хватает, чтобы сопоставить
// запись лога со строкой журнала токенов.
//
//	"2f.eyJhbGciOi...Xy9Qz1" -> "***Xy9Qz1"
//	короткие строки          -> "[REDACTED_TOKEN]"
func Token(s string) string {
	if len(s) <= 16 {
		return "[REDACTED_TOKEN]"
	}

	return "***" + s[len(s)-6:]
}
