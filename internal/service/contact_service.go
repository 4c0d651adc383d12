package service

import (
	"context"

	"github.com/lightsms/lightsms/internal/domain"
)

type contactStore interface {
	CreateGroup(ctx context.Context, userID int64, name string, description *string) (*domain.ContactGroup, error)
	ListGroups(ctx context.Context, userID int64) ([]domain.ContactGroup, error)
	DeleteGroup(ctx context.Context, userID, groupID int64) error
	CreateContact(ctx context.Context, userID int64, groupID *int64, phoneNumber string, firstName, lastName, email *string) (*domain.Contact, error)
	ListContacts(ctx context.Context, userID int64, page, pageSize int) ([]domain.Contact, int64, error)
	OptOut(ctx context.Context, userID, contactID int64) error
	GetGroupByID(ctx context.Context, id int64) (*domain.ContactGroup, error)
}

type templateStore interface {
	Create(ctx context.Context, userID int64, name, content string) (*domain.MessageTemplate, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.MessageTemplate, error)
}

// ContactService manages the audience side: groups, contacts, opt-out
// state and message templates.
type ContactService struct {
	contacts  contactStore
	templates templateStore
}

func NewContactService(contacts contactStore, templates templateStore) *ContactService {
	return &ContactService{contacts: contacts, templates: templates}
}

func (s *ContactService) CreateGroup(ctx context.Context, userID int64, name string, description *string) (*domain.ContactGroup, error) {
	return s.contacts.CreateGroup(ctx, userID, name, description)
}

func (s *ContactService) ListGroups(ctx context.Context, userID int64) ([]domain.ContactGroup, error) {
	return s.contacts.ListGroups(ctx, userID)
}

// DeleteGroup removes the group only; its contacts survive with the
// group reference cleared.
func (s *ContactService) DeleteGroup(ctx context.Context, userID, groupID int64) error {
	return s.contacts.DeleteGroup(ctx, userID, groupID)
}

func (s *ContactService) CreateContact(
	ctx context.Context,
	userID int64,
	groupID *int64,
	phoneNumber string,
	firstName, lastName, email *string,
) (*domain.Contact, error) {
	if groupID != nil {
		group, err := s.contacts.GetGroupByID(ctx, *groupID)
		if err != nil {
			return nil, err
		}
		if group.UserID != userID {
			return nil, domain.NewValidationError("group %d does not belong to this user", *groupID)
		}
	}

	return s.contacts.CreateContact(ctx, userID, groupID, phoneNumber, firstName, lastName, email)
}

func (s *ContactService) ListContacts(ctx context.Context, userID int64, page, pageSize int) ([]domain.Contact, int64, error) {
	return s.contacts.ListContacts(ctx, userID, page, pageSize)
}

// OptOutContact permanently withdraws a contact from all future sends.
func (s *ContactService) OptOutContact(ctx context.Context, userID, contactID int64) error {
	return s.contacts.OptOut(ctx, userID, contactID)
}

func (s *ContactService) CreateTemplate(ctx context.Context, userID int64, name, content string) (*domain.MessageTemplate, error) {
	return s.templates.Create(ctx, userID, name, content)
}

func (s *ContactService) ListTemplates(ctx context.Context, userID int64) ([]domain.MessageTemplate, error) {
	return s.templates.ListByUser(ctx, userID)
}
