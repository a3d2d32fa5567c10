package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/auth"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/config"
	"gwi.com/aiclone/internal/store"
)

const forgotPasswordMessage = "If email exists, password reset link has been sent"

// EmailValidator normalizes an address or rejects it with a validation error.
type EmailValidator interface {
	Validate(ctx context.Context, email string) (string, error)
}

// Notifier delivers account emails. Each call reports whether the mail went out.
type Notifier interface {
	SendRegistrationConfirmation(to, username string) bool
	SendPasswordReset(to, username, link string) bool
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResult struct {
	Success   bool   `json:"success"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	EmailSent bool   `json:"email_sent"`
	Message   string `json:"message"`
}

type LoginResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        *auth.Identity `json:"user"`
	Role        string         `json:"role"`
}

// UserInput is the admin view of a user. Empty fields are left unchanged on update.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserService struct {
	users         store.UserStore
	authenticator *auth.Authenticator
	tokens        *auth.TokenIssuer
	validator     EmailValidator
	notifier      Notifier
	frontendURL   string
	logger        logrus.FieldLogger
}

func NewUserService(users store.UserStore, authenticator *auth.Authenticator, tokens *auth.TokenIssuer,
	validator EmailValidator, notifier Notifier, frontendURL string, logger logrus.FieldLogger) *UserService {
	return &UserService{
		users:         users,
		authenticator: authenticator,
		tokens:        tokens,
		validator:     validator,
		notifier:      notifier,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		logger:        logger,
	}
}

func validRole(role string) bool {
	return role == store.RoleUser || role == store.RoleSuperadmin
}

var userNotFound = common.NotFound("User not found")

// checkAvailable rejects a username or email already held by someone other than selfID.
func (s *UserService) checkAvailable(ctx context.Context, username, email, selfID, emailTaken string) error {
	if username != "" {
		u, err := s.users.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if u != nil && u.ID != selfID {
			return common.Validation("Username already exists")
		}
	}
	if email != "" {
		u, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if u != nil && u.ID != selfID {
			return common.Validation(emailTaken)
		}
	}
	return nil
}

func (s *UserService) create(ctx context.Context, in UserInput, emailTaken string) (*store.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, common.Validation("Username is required")
	}
	if in.Password == "" {
		return nil, common.Validation("Password is required")
	}
	email, err := s.validator.Validate(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, username, email, "", emailTaken); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.Validation("Username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Register creates a regular user account and sends a confirmation email.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	user, err := s.create(ctx, UserInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Role:     store.RoleUser,
	}, "Email already registered")
	if err != nil {
		return nil, err
	}

	sent := s.notifier.SendRegistrationConfirmation(user.Email, user.Username)
	msg := "✅ Registration successful!"
	if sent {
		msg += " Confirmation email sent to " + user.Email
	} else {
		s.logger.WithField("email", user.Email).Warn("confirmation email not sent")
	}
	s.logger.WithField("username", user.Username).Info("user registered")

	return &RegisterResult{
		Success:   true,
		Username:  user.Username,
		Email:     user.Email,
		EmailSent: sent,
		Message:   msg,
	}, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	id, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.IssueToken(id.Username, id.Role, 0)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		User:        id,
		Role:        id.Role,
	}, nil
}

// Identify resolves a bearer access token to its identity. Reset tokens are not accepted.
func (s *UserService) Identify(token string) (*auth.Identity, error) {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != auth.TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}
	return &auth.Identity{Username: claims.Subject, Role: claims.Role}, nil
}

// ForgotPassword always returns the same message so callers cannot probe for accounts.
func (s *UserService) ForgotPassword(ctx context.Context, email string) string {
	log := s.logger.WithField("email", email)
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		log.WithError(err).Error("forgot password lookup failed")
		return forgotPasswordMessage
	}
	if user == nil {
		return forgotPasswordMessage
	}

	token, err := s.tokens.IssueResetToken(user.Username)
	if err != nil {
		log.WithError(err).Error("failed to issue reset token")
		return forgotPasswordMessage
	}
	now := time.Now().UTC()
	user.ResetToken = token
	user.ResetTokenCreatedAt = &now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		log.WithError(err).Error("failed to store reset token")
		return forgotPasswordMessage
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if !s.notifier.SendPasswordReset(user.Email, user.Username, link) {
		log.Warn("password reset email not sent")
	}
	return forgotPasswordMessage
}

var errBadResetToken = common.Validation("Invalid or expired reset token")

// ResetPassword sets a new password. The token must be the one last issued
// to the user and is cleared on success.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return errBadResetToken
	}
	if claims.Type != auth.TokenTypePasswordReset {
		return common.Validation("Invalid reset token")
	}
	if newPassword == "" {
		return common.Validation("Password is required")
	}

	user, err := s.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return userNotFound
	}
	if user.ResetToken == "" || user.ResetToken != token {
		return errBadResetToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenCreatedAt = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.WithField("username", user.Username).Info("password reset")
	return nil
}

// CreateUser is the admin path: any valid role, same email policy as Register.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*store.User, bool, error) {
	if in.Role == "" {
		in.Role = store.RoleUser
	}
	if !validRole(in.Role) {
		return nil, false, common.Validation("Role must be 'user' or 'superadmin'")
	}
	user, err := s.create(ctx, in, "Email already exists")
	if err != nil {
		return nil, false, err
	}
	sent := s.notifier.SendRegistrationConfirmation(user.Email, user.Username)
	return user, sent, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]store.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []store.User{}
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*store.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, userNotFound
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, in UserInput) (*store.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if email, err = s.validator.Validate(ctx, email); err != nil {
			return nil, err
		}
	}
	if err := s.checkAvailable(ctx, username, email, user.ID, "Email already exists"); err != nil {
		return nil, err
	}
	if in.Role != "" && !validRole(in.Role) {
		return nil, common.Validation("Role must be 'user' or 'superadmin'")
	}

	setIfPresent(&user.Username, username)
	setIfPresent(&user.Email, email)
	setIfPresent(&user.Role, in.Role)
	if in.Password != "" {
		if user.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return userNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserService) SetRole(ctx context.Context, id, role string) (*store.User, error) {
	if !validRole(role) {
		return nil, common.Validation("Role must be 'user' or 'superadmin'")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleStatus flips the active flag. Inactive users cannot log in.
func (s *UserService) ToggleStatus(ctx context.Context, id string) (*store.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *store.User) error {
	err := s.users.UpdateUser(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return userNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return common.Validation("Username already exists")
	}
	return fmt.Errorf("failed to update user: %w", err)
}

// SeedBuiltin makes sure every configured account also exists in the store.
func (s *UserService) SeedBuiltin(ctx context.Context, accounts []config.Account) error {
	for _, acc := range accounts {
		log := s.logger.WithField("username", acc.Username)
		if !validRole(acc.Role) {
			log.WithField("role", acc.Role).Warn("skipping builtin account with unknown role")
			continue
		}
		existing, err := s.users.GetUserByUsername(ctx, acc.Username)
		if err != nil {
			return fmt.Errorf("failed to check builtin account %s: %w", acc.Username, err)
		}
		if existing != nil {
			continue
		}

		hash, err := auth.HashPassword(acc.Password)
		if err != nil {
			return err
		}
		email := strings.ToLower(acc.Email)
		if email == "" {
			email = acc.Username + "@aiclone.local"
		}
		err = s.users.CreateUser(ctx, &store.User{
			Username:      acc.Username,
			Email:         email,
			PasswordHash:  hash,
			Role:          acc.Role,
			IsActive:      true,
			EmailVerified: true,
		})
		if err != nil {
			return fmt.Errorf("failed to seed builtin account %s: %w", acc.Username, err)
		}
		log.Info("builtin account seeded")
	}
	return nil
}
