package constant

// Ключи атрибутов для slog
const (
	Error     = "error"
	UserID    = "user_id"
	UserName  = "user_name"
	RoomID    = "room_id"
	ConnID    = "conn_id"
	TargetID  = "target_id"
	Role      = "role"
	EventType = "event_type"
	Driver    = "driver"
	Addr      = "addr"
)
