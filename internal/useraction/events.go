package useraction

const (
	KindIsOnline      = "user.is_online"
	KindIsVanished    = "user.is_vanished"
	KindHasPermission = "user.has_permission"
	KindMessage       = "user.message"
	KindTeleport      = "user.teleport"
	KindOnlinePlayers = "server.online_players"
	KindMail          = "server.mail"
)

// Query asks about one player. Permissions is set for permission checks.
type Query struct {
	PlayerID    string   `json:"player_id"`
	Permissions []string `json:"permissions,omitempty"`
}

type Message struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// Mail is told to every server; nobody replies.
type Mail struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type TeleportRequest struct {
	PlayerID string   `json:"player_id"`
	Location Location `json:"location"`
}
