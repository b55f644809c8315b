package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/meryambn/ScaleUpMessaging/internal/models"
	"github.com/meryambn/ScaleUpMessaging/internal/services"
)

type stubDirectoryService struct {
	contactsResult []models.Contact
	contactsErr    error
	lastActorID    int64
	lastRole       models.Role
}

func (s *stubDirectoryService) ListContacts(_ context.Context, actorID int64, role models.Role) ([]models.Contact, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.contactsResult, s.contactsErr
}

func TestListContactsReturnsRoleScopedContacts(t *testing.T) {
	service := &stubDirectoryService{
		contactsResult: []models.Contact{
			{ID: 7, Role: models.RoleMentor, Name: "Amel"},
			{ID: 9, Role: models.RoleStartup, Name: "Borealis"},
		},
	}
	handler := NewDirectoryHandler(service)

	app := authedApp("42", "startup")
	app.Get("/api/v1/contacts", handler.ListContacts)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastRole != models.RoleStartup {
		t.Fatalf("unexpected actor: %d %q", service.lastActorID, service.lastRole)
	}

	var body struct {
		Contacts []models.Contact `json:"contacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Contacts) != 2 || body.Contacts[0].Name != "Amel" {
		t.Fatalf("unexpected response: %+v", body.Contacts)
	}
}

func TestListContactsForbiddenRole(t *testing.T) {
	handler := NewDirectoryHandler(&stubDirectoryService{contactsErr: services.ErrForbidden})

	app := authedApp("42", "startup")
	app.Get("/api/v1/contacts", handler.ListContacts)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListContactsWithoutAuthContextReturnsUnauthorized(t *testing.T) {
	handler := NewDirectoryHandler(&stubDirectoryService{})

	app := fiber.New()
	app.Get("/api/v1/contacts", handler.ListContacts)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
