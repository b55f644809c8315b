package repository

import (
	"context"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListForUser returns the contacts the actor is allowed to message. The
// scoping rule is entirely server-side: mentors see applicants sharing a
// program plus admins, applicants see mentors in their programs plus
// admins, admins see everyone.
func (r *ContactRepository) ListForUser(
	ctx context.Context,
	actor models.Peer,
) ([]models.Contact, error) {
	var query string
	args := []any{actor.ID, actor.Role}

	switch {
	case actor.Role == models.RoleAdmin:
		query = `
			SELECT id, role, name, avatar_url
			FROM users
			WHERE NOT (id = $1 AND role = $2)
			ORDER BY name, id
		`
	case actor.Role == models.RoleMentor:
		query = `
			SELECT DISTINCT u.id, u.role, u.name, u.avatar_url
			FROM users u
			LEFT JOIN program_members pm ON pm.user_id = u.id AND pm.user_role = u.role
			LEFT JOIN program_members own ON own.program_id = pm.program_id
				AND own.user_id = $1 AND own.user_role = $2
			WHERE u.role = 'admin'
			   OR (u.role IN ('startup', 'particulier') AND own.user_id IS NOT NULL)
			ORDER BY u.name, u.id
		`
	default:
		query = `
			SELECT DISTINCT u.id, u.role, u.name, u.avatar_url
			FROM users u
			LEFT JOIN program_members pm ON pm.user_id = u.id AND pm.user_role = u.role
			LEFT JOIN program_members own ON own.program_id = pm.program_id
				AND own.user_id = $1 AND own.user_role = $2
			WHERE u.role = 'admin'
			   OR (u.role = 'mentor' AND own.user_id IS NOT NULL)
			ORDER BY u.name, u.id
		`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var contact models.Contact
		if err := rows.Scan(&contact.ID, &contact.Role, &contact.Name, &contact.AvatarURL); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contacts, nil
}

// AreLinked reports whether the actor may message the peer under the same
// scoping rule as ListForUser.
func (r *ContactRepository) AreLinked(
	ctx context.Context,
	actor models.Peer,
	peer models.Peer,
) (bool, error) {
	if actor.Role == models.RoleAdmin || peer.Role == models.RoleAdmin {
		return true, nil
	}

	// Only mentor<->applicant pairs remain, and those need a shared program.
	if actor.Role == models.RoleMentor == (peer.Role == models.RoleMentor) {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM program_members a
			JOIN program_members b ON b.program_id = a.program_id
			WHERE a.user_id = $1 AND a.user_role = $2
			  AND b.user_id = $3 AND b.user_role = $4
		)
	`

	var linked bool
	err := r.db.QueryRow(ctx, query, actor.ID, actor.Role, peer.ID, peer.Role).Scan(&linked)
	if err != nil {
		return false, err
	}
	return linked, nil
}
