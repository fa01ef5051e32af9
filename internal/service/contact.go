package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// MaxMessageLength caps a contact message body.
const MaxMessageLength = 5000

// ContactService manages the contact-message inbox.
type ContactService struct {
	repo   repository.ContactRepository
	logger *slog.Logger
}

// NewContactService creates a ContactService.
func NewContactService(repo repository.ContactRepository, logger *slog.Logger) *ContactService {
	return &ContactService{repo: repo, logger: logger}
}

// Submit records a new message. userID is empty for anonymous
// submissions; authenticated ones are linked to the account so
// my-messages can find them.
func (s *ContactService) Submit(ctx context.Context, userID, name, email, message string) (*model.Contact, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}
	if len(message) > MaxMessageLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("message must be %d characters or fewer", MaxMessageLength))
	}
	email = model.NormalizeEmail(email)
	if email != "" && !model.ValidEmail(email) {
		return nil, apperror.ValidationFailed("email", "email is not valid")
	}

	contact := &model.Contact{
		UserID:  userID,
		Name:    strings.TrimSpace(name),
		Email:   email,
		Message: message,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("service/contact: saving message: %w", err)
	}

	s.logger.Info("contact message submitted",
		slog.String("contactID", contact.ID),
		slog.Bool("anonymous", userID == ""),
	)
	return contact, nil
}

// ListMine returns the caller's live messages, newest first.
func (s *ContactService) ListMine(ctx context.Context, userID string) ([]model.Contact, error) {
	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/contact: listing messages: %w", err)
	}
	return contacts, nil
}

// Update rewrites the body of the caller's own message.
func (s *ContactService) Update(ctx context.Context, userID, id, message string) (*model.Contact, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}

	contact, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	contact.Message = message
	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("service/contact: updating %s: %w", id, err)
	}
	return contact, nil
}

// Delete soft-deletes the caller's own message.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("service/contact: deleting %s: %w", id, err)
	}
	return nil
}

// ListAll returns every live message. Admin-only: the handler puts this
// behind the role gate.
func (s *ContactService) ListAll(ctx context.Context) ([]model.Contact, error) {
	contacts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/contact: listing all messages: %w", err)
	}
	return contacts, nil
}

// AdminDelete soft-deletes any message regardless of owner.
func (s *ContactService) AdminDelete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "contact id is required")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("service/contact: admin-deleting %s: %w", id, err)
	}
	return nil
}

func (s *ContactService) getOwned(ctx context.Context, userID, id string) (*model.Contact, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "contact id is required")
	}
	contact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/contact: fetching %s: %w", id, err)
	}
	if contact.UserID == "" || contact.UserID != userID {
		return nil, apperror.Forbidden("message belongs to another user")
	}
	return contact, nil
}
