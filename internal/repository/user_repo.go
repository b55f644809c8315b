package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByPeer(ctx context.Context, peer models.Peer) (*models.User, error) {
	query := `
		SELECT id, name, role, avatar_url, created_at, updated_at
		FROM users
		WHERE id = $1 AND role = $2
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, peer.ID, peer.Role).
		Scan(&user.ID, &user.Name, &user.Role, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
