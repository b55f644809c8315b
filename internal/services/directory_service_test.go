package services

import (
	"context"
	"errors"
	"testing"

	"github.com/meryambn/ScaleUpMessaging/internal/models"
)

type stubContactLister struct {
	result    []models.Contact
	err       error
	lastActor models.Peer
}

func (s *stubContactLister) ListForUser(_ context.Context, actor models.Peer) ([]models.Contact, error) {
	s.lastActor = actor
	return s.result, s.err
}

func TestListContactsPassesActorToRepository(t *testing.T) {
	repo := &stubContactLister{
		result: []models.Contact{{ID: 7, Role: models.RoleMentor, Name: "Amel"}},
	}
	service := NewDirectoryService(repo)

	contacts, err := service.ListContacts(context.Background(), 42, models.RoleStartup)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if repo.lastActor != (models.Peer{ID: 42, Role: models.RoleStartup}) {
		t.Fatalf("unexpected actor: %+v", repo.lastActor)
	}
	if len(contacts) != 1 || contacts[0].Name != "Amel" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestListContactsRejectsUnknownRole(t *testing.T) {
	service := NewDirectoryService(&stubContactLister{})

	_, err := service.ListContacts(context.Background(), 42, "ghost")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
