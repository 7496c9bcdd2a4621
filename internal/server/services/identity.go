package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/auth"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
	"github.com/secrypt/secrypt/internal/shared"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100

	// encryptionKeySaltBytes is the size of the per-identity salt generated
	// once at registration. The server never sees derived keys.
	encryptionKeySaltBytes = 32

	verificationTokenBytes = 32
	passwordResetBytes     = 32
)

// IdentityService handles registration, login, email verification, password
// resets, and deactivation.
type IdentityService struct {
	db                            *sql.DB
	repomanager                   repomanager.RepositoryManager
	jwtSecret                     []byte
	accessTokenValidityDuration   time.Duration
	passwordResetValidityDuration time.Duration
}

// NewIdentityService constructs an IdentityService using repositories and
// server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                            db,
		repomanager:                   m,
		jwtSecret:                     []byte(cfg.SecretKey),
		accessTokenValidityDuration:   cfg.AccessTokenValidityDuration,
		passwordResetValidityDuration: cfg.PasswordResetValidityDuration,
	}
}

// Register creates a new identity. The email is stored case-normalized and
// must be globally unique; the password is bcrypt-hashed and the encryption
// key salt is generated here, once, and never changes afterwards.
func (s *IdentityService) Register(ctx context.Context, email, name, password string) (*chat.Identity, error) {
	email = chat.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, chat.NewValidation("email", "malformed address")
	}
	if name == "" || len(name) > maxNameLength {
		return nil, chat.NewValidation("name", "must be between 1 and 100 characters")
	}
	if len(password) < minPasswordLength {
		return nil, chat.NewValidation("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, chat.NewStorage(err)
	}

	salt, err := shared.MakeRandHexString(encryptionKeySaltBytes)
	if err != nil {
		return nil, chat.NewStorage(err)
	}

	verificationToken, err := shared.MakeRandHexString(verificationTokenBytes)
	if err != nil {
		return nil, chat.NewStorage(err)
	}

	now := time.Now()
	identity := &chat.Identity{
		ID:                     uuid.New().String(),
		Email:                  email,
		Name:                   name,
		PasswordHash:           string(hash),
		Status:                 chat.PresenceOffline,
		LastSeen:               now,
		EmailVerificationToken: verificationToken,
		ProfileVisibility:      chat.ProfilePublic,
		LastSeenVisibility:     chat.LastSeenEveryone,
		IsActive:               true,
		EncryptionKeySalt:      salt,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	repo := s.repomanager.Identities(s.db)
	if err := repo.Create(ctx, identity); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, chat.NewConflict("email is already registered")
		}
		return nil, storageErr(err)
	}

	return identity, nil
}

// Login verifies credentials, marks the identity online, and returns a
// signed access token. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *chat.Identity, error) {
	repo := s.repomanager.Identities(s.db)

	identity, err := repo.GetByEmail(ctx, chat.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return "", nil, chat.NewPermission("invalid credentials")
		}
		return "", nil, storageErr(err)
	}
	if !identity.IsActive {
		return "", nil, chat.NewPermission("account is deactivated")
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return "", nil, chat.NewPermission("invalid credentials")
	}

	now := time.Now()
	if err := repo.UpdatePresence(ctx, identity.ID, chat.PresenceOnline, now); err != nil {
		return "", nil, storageErr(err)
	}
	identity.Status = chat.PresenceOnline
	identity.LastSeen = now

	token, err := auth.GenerateToken(identity.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", nil, chat.NewStorage(err)
	}

	return token, identity, nil
}

// Logout marks the identity offline and stamps last-seen.
func (s *IdentityService) Logout(ctx context.Context, identityID string) error {
	repo := s.repomanager.Identities(s.db)
	if err := repo.UpdatePresence(ctx, identityID, chat.PresenceOffline, time.Now()); err != nil {
		return storageErr(err)
	}
	return nil
}

// Authenticate resolves an access token to the identity it was issued for.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*chat.Identity, error) {
	identityID, err := auth.IdentityIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, chat.NewPermission("invalid or expired token")
	}

	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, identityID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !identity.IsActive {
		return nil, chat.NewPermission("account is deactivated")
	}
	return identity, nil
}

// VerifyEmail consumes a verification token and flags the identity as
// verified.
func (s *IdentityService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return chat.NewValidation("token", "must not be empty")
	}

	repo := s.repomanager.Identities(s.db)
	identity, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		return storageErr(err)
	}
	if err := repo.SetEmailVerified(ctx, identity.ID); err != nil {
		return storageErr(err)
	}
	return nil
}

// StartPasswordReset issues a reset token for the given email and returns
// the raw token to hand to the user. Only its sha256 is stored. An unknown
// email returns an empty token and no error so that existence does not leak.
func (s *IdentityService) StartPasswordReset(ctx context.Context, email string) (string, error) {
	repo := s.repomanager.Identities(s.db)

	identity, err := repo.GetByEmail(ctx, chat.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return "", nil
		}
		return "", storageErr(err)
	}

	raw, err := shared.MakeRandHexString(passwordResetBytes)
	if err != nil {
		return "", chat.NewStorage(err)
	}

	expires := time.Now().Add(s.passwordResetValidityDuration)
	if err := repo.SetPasswordReset(ctx, identity.ID, hashResetToken(raw), &expires); err != nil {
		return "", storageErr(err)
	}

	return raw, nil
}

// ResetPassword consumes a raw reset token and replaces the password. The
// token single-uses: the stored hash is cleared in the same transaction.
func (s *IdentityService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return chat.NewValidation("password", "must be at least 8 characters")
	}

	identity, err := s.repomanager.Identities(s.db).GetByPasswordResetToken(ctx, hashResetToken(rawToken), time.Now())
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return chat.NewPermission("invalid or expired reset token")
		}
		return storageErr(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return chat.NewStorage(err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Identities(tx)
		if err := repo.SetPasswordHash(ctx, identity.ID, string(hash)); err != nil {
			return err
		}
		return repo.SetPasswordReset(ctx, identity.ID, "", nil)
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// Deactivate soft-disables the account. Memberships and content survive;
// the identity can no longer authenticate.
func (s *IdentityService) Deactivate(ctx context.Context, identityID string) error {
	repo := s.repomanager.Identities(s.db)
	if err := repo.Deactivate(ctx, identityID, time.Now()); err != nil {
		return storageErr(err)
	}
	return nil
}

// Profile returns the privacy-filtered view of one identity as seen by
// another member.
func (s *IdentityService) Profile(ctx context.Context, identityID string) (*chat.PublicProfile, error) {
	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, identityID)
	if err != nil {
		return nil, storageErr(err)
	}
	p := identity.Public()
	return &p, nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
