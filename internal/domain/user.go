package domain

import "time"

// User is the durable profile record kept for every person the bot has
// talked to. Conversation state never lives here; only directory data.
type User struct {
	ID           int64
	TelegramID   int64
	FirstName    string
	LastName     string
	Username     string
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// DisplayName returns the best human-readable name available for the user.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Username != "":
		return "@" + u.Username
	case u.LastName != "":
		return u.FirstName + " " + u.LastName
	default:
		return u.FirstName
	}
}
