package services

import (
	"context"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type contactLister interface {
	ListForUser(ctx context.Context, actor models.Peer) ([]models.Contact, error)
}

// DirectoryService resolves the role-scoped set of people a user may
// message. The client performs no filtering beyond free-text search; the
// scoping rule lives here and in the contact repository.
type DirectoryService struct {
	contactRepo contactLister
}

func NewDirectoryService(contactRepo contactLister) *DirectoryService {
	return &DirectoryService{contactRepo: contactRepo}
}

func (s *DirectoryService) ListContacts(
	ctx context.Context,
	actorID int64,
	role models.Role,
) ([]models.Contact, error) {
	if !role.Valid() {
		return nil, ErrForbidden
	}

	return s.contactRepo.ListForUser(ctx, models.Peer{ID: actorID, Role: role})
}
