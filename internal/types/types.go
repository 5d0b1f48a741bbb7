package types

import (
	"time"
)

// Role governs authorization for promote, kick and mute within a room.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleMod   Role = "mod"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMod || r == RoleUser
}

// RoomSummary is the public room listing entry.
type RoomSummary struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	IsPublic bool   `json:"isPublic,omitempty"`
}

// Member is a room member with its resolved nickname and role.
type Member struct {
	Identity string `json:"identity"`
	Nickname string `json:"nickname,omitempty"`
	Role     Role   `json:"role"`
}

// Peer identifies an existing room member a joiner may open a
// peer connection to.
type Peer struct {
	Identity string `json:"identity"`
	Nickname string `json:"nickname,omitempty"`
}

// Friend is a friend list entry with online status.
type Friend struct {
	Identity string `json:"identity"`
	Nickname string `json:"nickname,omitempty"`
	Online   bool   `json:"online"`
	Code     string `json:"code,omitempty"`
}

// Message is a retained room chat message.
type Message struct {
	Id      string    `json:"id"`
	RoomId  string    `json:"roomId"`
	Sender  string    `json:"sender"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}
