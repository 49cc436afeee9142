package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*model.User, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	users       repository.UserRepository
	tokens      *jwt.Manager
	sessionIdle time.Duration
	logger      *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *jwt.Manager, sessionIdle time.Duration, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{users: users, tokens: tokens, sessionIdle: sessionIdle, logger: logger}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		s.logger.Info("login rejected", zap.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	roleCode := ""
	if user.Role != nil {
		roleCode = user.Role.Code
	}

	// single session: a new token version invalidates older tokens
	version := uuid.New().String()
	if err := s.users.StartSession(ctx, user.ID, version); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.FullName, roleCode, user.GetPrivilegeCodes(), version)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("user signed in", zap.String("user_id", user.ID.String()), zap.String("role", roleCode))
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	// sign out every device
	return s.users.StartSession(ctx, user.ID, uuid.New().String())
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	user, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

// Authenticate resolves a bearer token to an active user holding the
// current session.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	if s.sessionIdle > 0 && (user.LastSeenAt == nil || time.Since(*user.LastSeenAt) > s.sessionIdle) {
		return nil, ErrSessionTimeout
	}
	return user, nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return s.users.UpdateLastSeen(ctx, userID)
}

// SeedAccessControl creates the default privileges and roles, grants them,
// and creates the first MASTER_ADMIN account when it does not exist yet.
func SeedAccessControl(ctx context.Context, privileges repository.PrivilegeRepository, roles repository.RoleRepository,
	users repository.UserRepository, adminEmail, adminPassword string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := privileges.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	all, err := privileges.FindAll(ctx)
	if err != nil {
		return err
	}
	master, err := roles.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		return err
	}
	if len(master.Privileges) == 0 {
		if err := roles.AssignPrivileges(ctx, master, all); err != nil {
			return err
		}
		master.Privileges = all
		logger.Info("role granted privileges", zap.String("role", master.Code), zap.Int("count", len(all)))
	}

	cashier, err := roles.FindByCode(ctx, model.RoleCashier)
	if err != nil {
		return err
	}
	if len(cashier.Privileges) == 0 {
		granted, err := privileges.FindByCodes(ctx, model.CashierPrivileges)
		if err != nil {
			return err
		}
		if err := roles.AssignPrivileges(ctx, cashier, granted); err != nil {
			return err
		}
		logger.Info("role granted privileges", zap.String("role", cashier.Code), zap.Int("count", len(granted)))
	}

	_, err = users.FindByEmail(ctx, adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	admin := &model.User{
		Email:      adminEmail,
		FullName:   "Store Manager",
		RoleID:     &master.ID,
		IsActive:   true,
		Privileges: master.Privileges,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(adminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("admin user created", zap.String("email", adminEmail), zap.String("role", model.RoleMasterAdmin))
	return nil
}
