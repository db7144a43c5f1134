// Package errs содержит доменные ошибки координатора комнат.
//
// Все ошибки, которые можно вернуть клиенту, оборачивают один из sentinel-ов
// ниже, поэтому транспортный слой классифицирует их через errors.Is.
package errs

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidPassword = errors.New("invalid room password")
	ErrRoomFull        = errors.New("room is full")
	ErrForbidden       = errors.New("forbidden")
	ErrFeatureDisabled = errors.New("feature disabled")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrBroadcastActive - слот транслятора занят другим соединением
	ErrBroadcastActive = &codedError{msg: "another member is already broadcasting", code: "BroadcastActive", parent: ErrForbidden}
)

type codedError struct {
	msg    string
	code   string
	parent error
}

func (e *codedError) Error() string { return e.msg }

func (e *codedError) Unwrap() error { return e.parent }

// Code возвращает машиночитаемый код ошибки для клиента.
// Непредвиденные ошибки сводятся к "Internal".
func Code(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrInvalidPassword):
		return "InvalidPassword"
	case errors.Is(err, ErrRoomFull):
		return "RoomFull"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrFeatureDisabled):
		return "FeatureDisabled"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	default:
		return "Internal"
	}
}

// IsDomain сообщает, относится ли ошибка к доменной таксономии
func IsDomain(err error) bool {
	return Code(err) != "Internal"
}
