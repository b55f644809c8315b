package models

import "time"

// Program is the accelerator program a mentor or startup belongs to. The
// messaging service only needs membership to answer who may talk to whom;
// program management itself lives in another service.
type Program struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ProgramMember struct {
	ProgramID int64 `json:"program_id"`
	UserID    int64 `json:"user_id"`
	UserRole  Role  `json:"user_role"`
}
