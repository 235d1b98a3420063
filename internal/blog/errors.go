package blog

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(fields map[string]string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Please fill in all required fields!", fields)
}

func imageError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "IMAGE_ERROR", message, nil)
}

func immutableRecordError(id string) *DomainError {
	return domainError(http.StatusForbidden, "IMMUTABLE_RECORD", "Demo records cannot be modified", map[string]any{"id": id})
}

func notFoundError(id string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", map[string]any{"id": id})
}

// RemoteError is how the remote store surfaces failures. Codes follow the
// document store's vocabulary: permission-denied, unavailable, quota-exceeded.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote store: %s: %s", e.Code, e.Message)
}

const (
	RemotePermissionDenied = "permission-denied"
	RemoteUnavailable      = "unavailable"
	RemoteQuotaExceeded    = "quota-exceeded"
)

// friendlyRemoteMessage translates a remote error code into the message shown
// to the user in a notification.
func friendlyRemoteMessage(code string) string {
	switch code {
	case RemoteUnavailable:
		return "Network connection lost. Please check your internet and try again."
	case RemotePermissionDenied:
		return "Permission denied. Please log in again."
	case RemoteQuotaExceeded:
		return "Storage quota exceeded. Please contact support."
	default:
		return "Failed to save changes. Please try again."
	}
}
