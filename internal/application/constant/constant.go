package constant

// Ключи атрибутов для slog
const (
	Error        = "error"
	UserID       = "user_id"
	ConnectionID = "connection_id"
	Room         = "room"
	Event        = "event"
	Remote       = "remote_addr"
)
