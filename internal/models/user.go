package models

import (
	"strconv"
	"time"
)

// Role identifies which side of the accelerator a user belongs to. A
// messaging peer is always the pair (id, role): ids are only unique
// within a role.
type Role string

const (
	RoleMentor      Role = "mentor"
	RoleStartup     Role = "startup"
	RoleParticulier Role = "particulier"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMentor, RoleStartup, RoleParticulier, RoleAdmin:
		return true
	default:
		return false
	}
}

// Applicant reports whether the role is on the applicant side of the
// program (startup team or individual applicant).
func (r Role) Applicant() bool {
	return r == RoleStartup || r == RoleParticulier
}

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Peer names one end of a conversation. It doubles as the conversation
// key: relative to the current user, one peer maps to exactly one thread.
type Peer struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (p Peer) String() string {
	return strconv.FormatInt(p.ID, 10) + ":" + string(p.Role)
}
