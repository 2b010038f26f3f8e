package domain

import "errors"

var (
	// ErrUnauthorized - токен отсутствует, битый или отклонён верификатором
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired - токен подписан верно, но просрочен. Всегда вместе с ErrUnauthorized.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnroutableEvent - у события нет корректного дискриминанта маршрутизации
	ErrUnroutableEvent = errors.New("unroutable event")

	// ErrConnectionClosed - доставка в уже закрытое соединение
	ErrConnectionClosed = errors.New("connection closed")

	// ErrBackpressure - очередь исходящих сообщений соединения заполнена
	ErrBackpressure = errors.New("outbound queue is full")
)
