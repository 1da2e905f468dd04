package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"room-designer/internal/domain"
	"room-designer/internal/repository"
)

// AuthService registers accounts and issues JWTs.
type AuthService struct {
	userRepo    repository.UserRepository
	jwtSecret   []byte
	jwtExpiry   time.Duration
	adminEmails map[string]bool
	now         func() time.Time
}

// NewAuthService creates an AuthService. Accounts registered with one of
// adminEmails get the admin role.
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int, adminEmails ...string) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &AuthService{
		userRepo:    userRepo,
		jwtSecret:   []byte(jwtSecretKey),
		jwtExpiry:   time.Duration(jwtExpiryHours) * time.Hour,
		adminEmails: admins,
		now:         time.Now,
	}, nil
}

// Register creates an account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	logCtx := logrus.WithFields(logrus.Fields{"email": email})

	if name == "" || email == "" || password == "" {
		return nil, "", ErrInvalidInput
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		logCtx.Warn("Registration failed: email already registered")
		return nil, "", ErrRegistrationFailed
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		logCtx.WithError(err).Error("Database error while checking email")
		return nil, "", ErrInternalServer
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, "", ErrInternalServer
	}

	user := &domain.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
		Role:     domain.RoleUser,
	}
	if s.adminEmails[email] {
		user.Role = domain.RoleAdmin
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: email already registered (repo error)")
			return nil, "", ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, "", ErrInternalServer
	}

	token, err := s.generateJWT(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during registration")
		return nil, "", ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	user.Password = ""
	return user, token, nil
}

// Login checks the credentials and returns the account with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)
	logCtx := logrus.WithField("email", email)

	if email == "" || password == "" {
		return nil, "", ErrInvalidInput
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: User not found")
			return nil, "", ErrAuthenticationFailed
		}
		logCtx.WithError(err).Error("Login attempt failed: Error finding user")
		return nil, "", ErrInternalServer
	}
	if user == nil {
		return nil, "", ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: Invalid password")
		return nil, "", ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return nil, "", ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	out := *user
	out.Password = ""
	return &out, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     now.Add(s.jwtExpiry).Unix(),
		"iat":     now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
