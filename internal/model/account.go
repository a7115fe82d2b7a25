package model

import "time"

// Account is a mail account a user sends from. Connector names which
// transport implementation handles it; Host/Username/Secret are handed to
// the connector as-is.
type Account struct {
	ID        int64
	UserID    int64
	Address   string
	Connector string
	Host      string // submission host:port
	IMAPHost  string // retrieval host:port, empty for send-only accounts
	Username  string
	Secret    string
	CreatedAt time.Time
}
