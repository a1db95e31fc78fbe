package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Коды арбитража. CONFLICT покрывает нарушение предусловий статуса,
	// ресурсные и временные нарушения выделены отдельно ради понятных
	// сообщений клиенту ("слишком рано" против "слишком поздно").
	ErrCodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientJurors ErrorCode = "INSUFFICIENT_JURORS"
	ErrCodeTooEarly           ErrorCode = "TOO_EARLY"
	ErrCodeTooLate            ErrorCode = "TOO_LATE"
	// Нарушение консистентности — дефект самой машины состояний, а не
	// ошибка пользователя. Никогда не глотается, транзакция откатывается.
	ErrCodeConsistency ErrorCode = "CONSISTENCY_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeTooEarly, ErrCodeTooLate:
		return http.StatusConflict
	case ErrCodeInsufficientFunds, ErrCodeInsufficientJurors:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

func IsConsistency(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConsistency
}

// Code возвращает код AppError или ErrCodeInternal для прочих ошибок.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

var (
	ErrProjectNotFound = New(ErrCodeNotFound, "проект не найден")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")

	// Предусловия машины состояний спора.
	ErrInvalidState      = New(ErrCodeConflict, "проект не в статусе rejected, спор открыть нельзя")
	ErrAlreadyDisputed   = New(ErrCodeConflict, "по проекту уже открыт спор")
	ErrNotAwaitingAi     = New(ErrCodeConflict, "спор не ожидает вердикта ИИ")
	ErrNotAppealable     = New(ErrCodeConflict, "спор не в статусе appealable")
	ErrNotLoser          = New(ErrCodeForbidden, "апелляцию подаёт только проигравшая сторона")
	ErrMaxRoundsReached  = New(ErrCodeConflict, "достигнут предел раундов, решение окончательное")
	ErrNotJuror          = New(ErrCodeForbidden, "аккаунт не входит в состав присяжных раунда")
	ErrAlreadyVoted      = New(ErrCodeConflict, "присяжный уже проголосовал в этом раунде")
	ErrNotVotingPhase    = New(ErrCodeConflict, "спор не в фазе голосования")
	ErrVotingNotComplete = New(ErrCodeTooEarly, "голосование не завершено: нет кворума и срок не истёк")
	ErrAppealWindowOpen  = New(ErrCodeTooEarly, "окно апелляции ещё открыто")
	ErrAppealWindowShut  = New(ErrCodeTooLate, "окно апелляции уже закрыто")
	ErrVotingClosed      = New(ErrCodeTooLate, "срок голосования истёк")
	ErrAlreadyResolved   = New(ErrCodeConflict, "спор уже разрешён, повторное исполнение запрещено")
	ErrAiNotExpired      = New(ErrCodeTooEarly, "срок ожидания вердикта ИИ ещё не истёк")

	// Ресурсные нарушения.
	ErrInsufficientBond   = New(ErrCodeInsufficientFunds, "недостаточно средств для залога")
	ErrInsufficientJurors = New(ErrCodeInsufficientJurors, "недостаточно подходящих присяжных в реестре")

	// Реестр присяжных.
	ErrJurorIneligible = New(ErrCodeForbidden, "репутация не позволяет вступить в реестр присяжных")
	ErrJurorRegistered = New(ErrCodeConflict, "аккаунт уже зарегистрирован как присяжный")
	ErrJurorSeated     = New(ErrCodeConflict, "нельзя снять стейк: присяжный занят в активном голосовании")
)
