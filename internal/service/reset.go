package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/authkit/backend/internal/db"
	"github.com/authkit/backend/internal/template"
	"github.com/authkit/backend/internal/token"
)

const resetTokenTTL = 15 * time.Minute

// Mailer delivers a rendered email. *client.MailClient satisfies it.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResetService runs the self-service password-reset flow. Reset tokens
// are signed with the user's current password hash, so a successful
// reset (or any other password change) invalidates every token issued
// before it without any bookkeeping.
type ResetService struct {
	store     UserStore
	mailer    Mailer
	clientURL string
}

func NewResetService(store UserStore, mailer Mailer, clientURL string) *ResetService {
	return &ResetService{
		store:     store,
		mailer:    mailer,
		clientURL: clientURL,
	}
}

func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		return err
	}

	resetToken, err := token.IssueReset(user.ID.String(), user.Email, []byte(user.PasswordHash), resetTokenTTL)
	if err != nil {
		return err
	}

	url := template.ResetURL(s.clientURL, user.ID.String(), resetToken)
	subject, html := template.RenderPasswordReset(user.Email, url)

	if err := s.mailer.Send(ctx, user.Email, subject, html); err != nil {
		log.Printf("[Reset] failed to send reset mail to user %s: %v", user.ID, err)
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}
	return nil
}

// ConfirmReset verifies the token against the freshly loaded current
// password hash, never a cached copy. Expired, tampered and already
// used tokens all fail the same way here.
func (s *ResetService) ConfirmReset(ctx context.Context, userID uuid.UUID, resetToken, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		return err
	}

	subject, err := token.Verify(resetToken, []byte(user.PasswordHash))
	if err != nil || subject != user.ID.String() {
		return ErrInvalidOrExpiredToken
	}

	if len(newPassword) < minPasswordLength || len(newPassword) > 128 {
		return ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	// The password change is committed; a mail failure past this point
	// is reported but never rolls it back.
	subjectLine, html := template.RenderPasswordResetConfirmation(user.Email)
	if err := s.mailer.Send(ctx, user.Email, subjectLine, html); err != nil {
		log.Printf("[Reset] password updated for user %s but confirmation mail failed: %v", user.ID, err)
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}
	return nil
}
