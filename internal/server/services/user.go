// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login with an optional emailed
// code, session tokens and the account profile.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/auth"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/repomanager"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/revocations"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const (
	registrationCodeTTL = 15 * time.Minute
	loginCodeTTL        = 5 * time.Minute
	resetTokenTTL       = time.Hour

	minPasswordLen = 8
	maxSearchLen   = 100
	maxPage        = 10000
	maxPerPage     = 100
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// generateCode returns a random six digit code.
var generateCode = func() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generateResetToken returns an unguessable password reset token.
var generateResetToken = func() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ResetRequestedMessage is returned whether or not the email is known.
const ResetRequestedMessage = "If that email exists, a password reset code has been sent."

// Session is an opened session: the account and the token that proves it.
type Session struct {
	User  *models.User
	Token *auth.Token
}

// LoginResult is either an opened Session or, for accounts with two-factor
// login, a pending challenge for the code sent to Email.
type LoginResult struct {
	Session     *Session
	Requires2FA bool
	Email       string
}

// UserService provides authentication-related operations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	revoked     revocations.Store
	codes       CodeSender
	clock       clockwork.Clock
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer,
	revoked revocations.Store, codes CodeSender, clock clockwork.Clock) *UserService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &UserService{db: db, repomanager: m, issuer: issuer, revoked: revoked, codes: codes, clock: clock}
}

// Register creates an unverified account and sends it a verification code.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Username, email, and password are required")
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	code, err := generateCode()
	if err != nil {
		return nil, common.ErrorInternal
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.Create(ctx, &models.User{Username: username, Email: email, PasswordHash: hash})
		if err != nil {
			return err
		}
		user = u
		return repo.SetCode(ctx, u.ID, code, s.clock.Now().Add(registrationCodeTTL))
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.WithMessage(common.ErrorAlreadyExists, "Username or email already exists.")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := s.codes.SendCode(ctx, email, code); err != nil {
		return nil, fmt.Errorf("error sending verification code: %w", err)
	}
	return user, nil
}

// VerifyRegistration marks the account verified and opens a session.
func (s *UserService) VerifyRegistration(ctx context.Context, email, code string) (*Session, error) {
	if email == "" || code == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Email and verification code are required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorUnauthorized, "Invalid verification code")
		}
		return nil, common.ErrorInternal
	}
	if user.IsVerified {
		return nil, common.WithMessage(common.ErrorValidation, "Email already verified. Please login.")
	}

	user, err = s.consumeCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	user.IsVerified = true
	if err := repo.Update(ctx, user); err != nil {
		return nil, common.ErrorInternal
	}
	return s.open(user)
}

// Login checks the password. Accounts with two-factor login get a code
// instead of a session.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if identifier == "" || password == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Username/email and password are required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorNotFound, "User does not exist")
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.WithMessage(common.ErrorUnauthorized, "Incorrect password")
	}
	if !user.IsVerified {
		return nil, common.WithMessage(common.ErrorForbidden, "Please verify your email before logging in.")
	}

	if user.TwoFAEnabled {
		code, err := generateCode()
		if err != nil {
			return nil, common.ErrorInternal
		}
		if err := repo.SetCode(ctx, user.ID, code, s.clock.Now().Add(loginCodeTTL)); err != nil {
			return nil, common.ErrorInternal
		}
		if err := s.codes.SendCode(ctx, user.Email, code); err != nil {
			return nil, common.WithMessage(common.ErrorInternal, "Failed to send verification code. Please try again.")
		}
		return &LoginResult{Requires2FA: true, Email: user.Email}, nil
	}

	sess, err := s.open(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: sess}, nil
}

// Verify2FA completes a two-factor login.
func (s *UserService) Verify2FA(ctx context.Context, email, code string) (*Session, error) {
	if email == "" || code == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Email and verification code are required")
	}
	user, err := s.consumeCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	return s.open(user)
}

// Authenticate validates a presented token and rejects revoked ones.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return nil, common.ErrSessionRevoked
	}

	cutoff, err := s.revoked.UserCutoff(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if !cutoff.IsZero() && (claims.IssuedAt == nil || !claims.IssuedAt.After(cutoff)) {
		return nil, common.ErrSessionRevoked
	}
	return claims, nil
}

// Extend issues a fresh token for the caller. The presented token stays
// valid until its own expiry.
func (s *UserService) Extend(ctx context.Context, claims *auth.Claims) (*Session, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorUnauthorized, "User not found")
		}
		return nil, common.ErrorInternal
	}
	return s.open(user)
}

// Logout revokes the presented token until it would have expired.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorNotFound, "User not found")
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdateProfile changes username and email. A new email must be verified
// again.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, username, email string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)

	if username == "" || email == "" {
		return nil, common.WithMessage(common.ErrorValidation, "Username and email are required")
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if email != user.Email {
		user.IsVerified = false
	}
	user.Username = username
	user.Email = email

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.WithMessage(common.ErrorAlreadyExists, "Username or email is already taken")
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// DeleteAccount removes the account with everything it wrote and revokes
// the presented token.
func (s *UserService) DeleteAccount(ctx context.Context, claims *auth.Claims) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, claims.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "User not found")
		}
		return common.ErrorInternal
	}
	return s.Logout(ctx, claims)
}

func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorNotFound, "User not found")
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// ListUsers pages through the user directory, newest accounts first.
func (s *UserService) ListUsers(ctx context.Context, f models.UserFilter) (*models.UsersPage, error) {
	if f.Page < 1 || f.Page > maxPage {
		return nil, common.WithMessage(common.ErrorValidation, fmt.Sprintf("Page must be between 1 and %d", maxPage))
	}
	if f.PerPage < 1 || f.PerPage > maxPerPage {
		return nil, common.WithMessage(common.ErrorValidation, fmt.Sprintf("Per page must be between 1 and %d", maxPerPage))
	}
	if len(f.Search) > maxSearchLen {
		return nil, common.WithMessage(common.ErrorValidation, fmt.Sprintf("Search query too long (max %d characters)", maxSearchLen))
	}

	page, err := s.repomanager.Users(s.db).List(ctx, f)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return page, nil
}

// ResendVerification issues a fresh registration code to an unverified
// account, found by username or email.
func (s *UserService) ResendVerification(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return common.WithMessage(common.ErrorValidation, "Username or email is required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorNotFound, "User not found")
		}
		return common.ErrorInternal
	}
	if user.IsVerified {
		return common.WithMessage(common.ErrorValidation, "Email already verified.")
	}

	code, err := generateCode()
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.SetCode(ctx, user.ID, code, s.clock.Now().Add(registrationCodeTTL)); err != nil {
		return common.ErrorInternal
	}
	if err := s.codes.SendCode(ctx, user.Email, code); err != nil {
		return fmt.Errorf("error sending verification code: %w", err)
	}
	return nil
}

// ForgotPassword mails a reset token when email belongs to an account.
// Unknown addresses are not reported.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.WithMessage(common.ErrorValidation, "Email is required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}

	token, err := generateResetToken()
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.SetResetToken(ctx, user.ID, hashToken(token), s.clock.Now().Add(resetTokenTTL)); err != nil {
		return common.ErrorInternal
	}
	if err := s.codes.SendCode(ctx, user.Email, token); err != nil {
		return fmt.Errorf("error sending reset token: %w", err)
	}
	return nil
}

// ResetPassword sets a new password with a token from ForgotPassword and
// ends every session of the account.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" || password == "" {
		return common.WithMessage(common.ErrorValidation, "Token and new password are required")
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.ConsumeResetToken(ctx, hashToken(token), s.clock.Now())
		if err != nil {
			return err
		}
		user = u
		return repo.SetPassword(ctx, u.ID, hash)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WithMessage(common.ErrorValidation, "Invalid or expired reset token")
		}
		return fmt.Errorf("error resetting password: %w", common.ErrorInternal)
	}
	return s.endAllSessions(ctx, user.ID)
}

// ChangePassword replaces the caller's password after checking the current
// one, then ends every session of the account including the caller's.
func (s *UserService) ChangePassword(ctx context.Context, claims *auth.Claims, current, next string) error {
	if current == "" || next == "" {
		return common.WithMessage(common.ErrorValidation, "Current password and new password are required")
	}

	user, err := s.Profile(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)) != nil {
		return common.WithMessage(common.ErrorValidation, "Current password is incorrect")
	}
	if current == next {
		return common.WithMessage(common.ErrorValidation, "New password must be different from current password")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.repomanager.Users(s.db).SetPassword(ctx, user.ID, hash); err != nil {
		return common.ErrorInternal
	}
	return s.endAllSessions(ctx, user.ID)
}

// SetTwoFactor turns the emailed login code on or off for the caller.
func (s *UserService) SetTwoFactor(ctx context.Context, userID int64, enable bool) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.TwoFAEnabled = enable
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, common.ErrorInternal
	}
	return user, nil
}

// --- helpers below ---

// endAllSessions revokes every token issued to userID up to now.
func (s *UserService) endAllSessions(ctx context.Context, userID int64) error {
	now := s.clock.Now()
	if err := s.revoked.RevokeUser(ctx, userID, now, now.Add(s.issuer.TTL())); err != nil {
		return fmt.Errorf("error revoking sessions: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *UserService) consumeCode(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).ConsumeCode(ctx, email, code, s.clock.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorUnauthorized, "Invalid or expired verification code")
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

func (s *UserService) open(user *models.User) (*Session, error) {
	tok, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{User: user, Token: tok}, nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 20 {
		return common.WithMessage(common.ErrorValidation, "Username must be 3-20 characters long")
	}
	if !usernameRe.MatchString(username) {
		return common.WithMessage(common.ErrorValidation, "Username can only contain lowercase letters, numbers, and underscores")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return common.WithMessage(common.ErrorValidation,
			fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	return nil
}

func validateEmail(email string) error {
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return common.WithMessage(common.ErrorValidation, "Invalid email address")
	}
	return nil
}
