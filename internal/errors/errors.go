package errors

import (
	"fmt"

	"github.com/Proton-105/hermes-bot/internal/telegram"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("That doesn't look right. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "A temporary problem occurred. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E250",
		Message:     fmt.Sprintf("Storage error: %s", underlyingMsg),
		UserMessage: "A temporary problem occurred. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewTelegramError wraps a failed Bot API call, mapping its failure kind
// onto a severity the reporting pipeline understands.
func NewTelegramError(cause *telegram.Error) *AppError {
	severity := SeverityMedium
	retryable := false
	userMessage := "The messaging service is temporarily unavailable."

	if cause != nil {
		switch cause.Kind {
		case telegram.KindUnauthorized:
			severity = SeverityCritical
			userMessage = "The bot is misconfigured. Please contact the operator."
		case telegram.KindRateLimit:
			severity = SeverityLow
			retryable = true
			userMessage = "Too many requests. Please slow down."
		case telegram.KindNetwork:
			severity = SeverityMedium
			retryable = true
		}
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("Telegram API error: %v", cause),
		UserMessage: userMessage,
		Severity:    severity,
		Retryable:   retryable,
		cause:       cause,
	}
}

func NewFormError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "That action isn't possible right now.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       nil,
	}
}
