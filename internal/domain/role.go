package domain

// Identity is resolved fresh for every event; group membership and the sudo
// list can change between two messages.
type Identity struct {
	IsGroup     bool
	AuthorID    string
	BotID       string
	IsSuperUser bool
	IsDeveloper bool
	FromMe      bool
}

// IsBot reports whether the author is the bot account itself.
func (i Identity) IsBot() bool {
	return i.FromMe || (i.BotID != "" && i.AuthorID == i.BotID)
}
