package domain

import "strings"

const (
	UserServer   = "s.whatsapp.net"
	GroupServer  = "g.us"
	StatusFeedID = "status@broadcast"
	groupSuffix  = "@" + GroupServer
	userSuffix   = "@" + UserServer
)

func IsGroupID(id string) bool {
	return strings.HasSuffix(id, groupSuffix)
}

func IsStatusID(id string) bool {
	return id == StatusFeedID
}

// UserID turns a phone number in any format into a user id. Empty input, or
// input without digits, yields "".
func UserID(number string) string {
	digits := onlyDigits(number)
	if digits == "" {
		return ""
	}
	return digits + userSuffix
}

// NumberOf returns the user part of an id ("254700@s.whatsapp.net" -> "254700").
func NumberOf(id string) string {
	user, _, _ := strings.Cut(id, "@")
	return user
}

// BareID strips the device suffix from an id ("254700:12@s.whatsapp.net" ->
// "254700@s.whatsapp.net").
func BareID(id string) string {
	user, server, ok := strings.Cut(id, "@")
	if !ok {
		return id
	}
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	return user + "@" + server
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
