package models

import "errors"

// Таксономия ошибок уровня бизнес-правил. Хендлеры мапят их на HTTP-статусы:
// ErrNotFound -> 404, ErrForbidden -> 403, ErrConflict -> 409,
// ErrUnauthenticated -> 401. Всё остальное - 500 с алертом оператору.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("not authenticated")
)
