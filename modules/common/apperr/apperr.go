package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind - 에러 분류
type Kind string

const (
	KindValidation           Kind = "validation"
	KindUnauthorized         Kind = "unauthorized"
	KindPermissionDenied     Kind = "permission_denied"
	KindNotFound             Kind = "not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindUpstream             Kind = "upstream"
	KindNotificationDispatch Kind = "notification_dispatch"
	KindVendorRejection      Kind = "vendor_rejection"
	KindInternal             Kind = "internal"
)

// Error - 워크플로우 공통 에러
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is - 같은 Kind면 일치 (errors.Is(err, apperr.NotFound) 용)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// 비교용 sentinel
var (
	Validation           = &Error{Kind: KindValidation}
	Unauthorized         = &Error{Kind: KindUnauthorized}
	PermissionDenied     = &Error{Kind: KindPermissionDenied}
	NotFound             = &Error{Kind: KindNotFound}
	InvalidTransition    = &Error{Kind: KindInvalidTransition}
	Upstream             = &Error{Kind: KindUpstream}
	NotificationDispatch = &Error{Kind: KindNotificationDispatch}
	VendorRejection      = &Error{Kind: KindVendorRejection}
)

// New - 에러 생성
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap - 원인 에러를 포함한 에러 생성
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validationf - ValidationError 생성
func Validationf(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, fmt.Sprintf(format, args...))
}

// NotFoundf - NotFoundError 생성
func NotFoundf(op, format string, args ...interface{}) *Error {
	return New(KindNotFound, op, fmt.Sprintf(format, args...))
}

// KindOf - 에러 Kind 추출 (분류되지 않은 에러는 internal)
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus - Kind → HTTP 상태 코드
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition:
		return http.StatusConflict
	case KindUpstream, KindVendorRejection, KindNotificationDispatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
