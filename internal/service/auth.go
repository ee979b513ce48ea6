package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordlessLogin  = errors.New("this account signs in with Google")
	ErrEmailAlreadyExists = invalid("email", "User already exists")
	ErrInvalidResetToken  = invalid("token", "Invalid or expired token")
	ErrInvalidEmail       = invalid("email", "invalid email address")
)

type SignupInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type AuthService struct {
	userRepository           repository.UserRepository
	profileRepository        repository.ProfileRepository
	tokenRepository          repository.TokenRepository
	emailService             *EmailService
	jwtSecret                string
	isProduction             bool
	jwtExpiry                time.Duration
	tokenPasswordResetExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	profileRepository repository.ProfileRepository,
	tokenRepository repository.TokenRepository,
	emailService *EmailService,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	tokenPasswordResetExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:           userRepository,
		profileRepository:        profileRepository,
		tokenRepository:          tokenRepository,
		emailService:             emailService,
		jwtSecret:                jwtSecret,
		isProduction:             isProduction,
		jwtExpiry:                jwtExpiry,
		tokenPasswordResetExpiry: tokenPasswordResetExpiry,
	}
}

// Signup creates a password account with its profile and sends the welcome
// email.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	err := validateStruct(in)
	if err != nil {
		return nil, err
	}
	err = validation.ValidatePassword(in.Password)
	if err != nil {
		return nil, invalid("password", err.Error())
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.createUser(ctx, in.Email, in.Name, &hash, nil)
	if err != nil {
		return nil, err
	}

	err = s.emailService.SendWelcomeEmail(ctx, user.Email, in.Name)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}

	slog.Info("new user signed up", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, name string, passwordHash *string, verifiedAt *time.Time) (*model.User, error) {
	now := time.Now().UTC()
	user := &model.User{
		ID:              uuid.New().String(),
		Email:           email,
		PasswordHash:    passwordHash,
		Role:            model.UserRoleUser,
		EmailVerifiedAt: verifiedAt,
		CreatedAt:       now,
	}

	err := s.userRepository.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := &model.Profile{
		UserID:    user.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.profileRepository.Create(ctx, profile)
	if err != nil {
		delErr := s.userRepository.Delete(ctx, user.ID)
		if delErr != nil {
			slog.Error("failed to delete user during rollback", "error", delErr, "user_id", user.ID)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordlessLogin
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// AuthenticateOAuth returns the user for a provider-verified email, creating
// the account on first sign-in.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, name, provider string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}

		now := time.Now().UTC()
		user, err = s.createUser(ctx, email, strings.TrimSpace(name), nil, &now)
		if err != nil {
			return nil, err
		}

		slog.Info("new OAuth user created", "email", email, "user_id", user.ID, "provider", provider)
		return user, nil
	}

	if user.EmailVerifiedAt == nil {
		now := time.Now().UTC()
		user.EmailVerifiedAt = &now
		err = s.userRepository.Update(ctx, user)
		if err != nil {
			slog.Warn("failed to mark email as verified", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
	return user, nil
}

// ForgotPassword emails a single-use reset link when the account exists.
// Unknown addresses are not reported, to avoid account enumeration.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		slog.Info("forgot password requested for non-existent email", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	err = s.tokenRepository.DeleteByUserAndType(ctx, user.ID, model.TokenTypePasswordReset)
	if err != nil {
		slog.Warn("failed to delete old reset tokens", "error", err, "user_id", user.ID)
	}

	resetToken, err := s.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.tokenRepository.Create(ctx, &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypePasswordReset,
		Token:     resetToken,
		ExpiresAt: time.Now().Add(s.tokenPasswordResetExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	err = s.emailService.SendPasswordResetEmail(ctx, user.Email, resetToken, s.tokenPasswordResetExpiry)
	if err != nil {
		slog.Error("failed to send password reset email", "error", err, "user_id", user.ID)
	}

	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}

	err := validation.ValidatePassword(newPassword)
	if err != nil {
		return invalid("password", err.Error())
	}

	t, err := s.tokenRepository.ConsumeToken(ctx, model.TokenTypePasswordReset, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = &hash
	err = s.userRepository.Update(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password reset", "user_id", user.ID)
	return nil
}

// PurgeExpiredTokens deletes tokens that expired or were used more than a
// day ago.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepository.CleanupExpired(ctx, 24*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}
	if n > 0 {
		slog.Info("purged expired tokens", "count", n)
	}
	return n, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.jwtExpiry)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiry.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiry, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
