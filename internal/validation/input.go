package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxURILength      = 500
	MaxNoteLength     = 2000
	MaxReasonLength   = 2000

	// Бюджет проекта в минимальных единицах валюты.
	MinProjectBudget = int64(1)
	MaxProjectBudget = int64(10_000_000_000)
)

// Хэш содержимого — hex-кодированный SHA-256.
var contentHashRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	// Проверка на валидные символы в локальной части
	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	// Проверка на валидные символы в доменной части
	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	// Только буквы, цифры и подчеркивание
	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateBudget проверяет бюджет проекта.
func ValidateBudget(budget int64) error {
	if budget < MinProjectBudget {
		return fmt.Errorf("бюджет должен быть положительным")
	}
	if budget > MaxProjectBudget {
		return fmt.Errorf("бюджет не может превышать %d", MaxProjectBudget)
	}
	return nil
}

// ValidateContentHash проверяет хэш содержимого: hex-кодированный SHA-256
// в нижнем регистре.
func ValidateContentHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("хэш содержимого обязателен")
	}
	if !contentHashRegex.MatchString(hash) {
		return fmt.Errorf("хэш содержимого должен быть hex-кодированным SHA-256")
	}
	return nil
}

// ValidateURI проверяет локатор внешнего содержимого. Схема не
// ограничивается http: допустимы ipfs://, s3:// и прочие указатели.
func ValidateURI(rawURI string) error {
	if rawURI == "" {
		return fmt.Errorf("URI обязателен")
	}

	rawURI = strings.TrimSpace(rawURI)
	if err := ValidateLength("URI", rawURI, 0, MaxURILength); err != nil {
		return err
	}

	parsed, err := url.Parse(rawURI)
	if err != nil {
		return fmt.Errorf("некорректный формат URI")
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("URI должен содержать схему")
	}
	return nil
}

// ValidateNote проверяет необязательную заметку к доказательству.
func ValidateNote(note *string) error {
	if note != nil && *note != "" {
		return ValidateLength("заметка", strings.TrimSpace(*note), 0, MaxNoteLength)
	}
	return nil
}

// ValidateRejectionReason проверяет причину отклонения работы.
func ValidateRejectionReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина отклонения обязательна")
	}
	return ValidateLength("причина отклонения", reason, 0, MaxReasonLength)
}
