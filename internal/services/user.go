package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 365

// UserService handles user-related business logic
type UserService struct {
	store     repository.Store
	jwtSecret string
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, jwtSecret string) *UserService {
	return &UserService{
		store:     store,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// CreateUserResponse is a freshly registered user with its bearer token
type CreateUserResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// sessionClaims is the bearer token payload
type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateJWT issues a long-lived HS256 token for userID
func (s *UserService) GenerateJWT(userID string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.AddDate(0, 0, jwtExpDays)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateJWT checks signature and expiry and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.UserID == "" {
		return "", errors.New("user_id not found in token")
	}
	return claims.UserID, nil
}

// CreateUser registers a new user and issues its token
func (s *UserService) CreateUser(ctx context.Context, displayName string) (*CreateUserResponse, error) {
	user := &models.User{
		ID:          uuid.New().String(),
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   s.now(),
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &CreateUserResponse{User: user, Token: token}, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err, "user not found")
	}
	return user, nil
}

// SetPushToken stores or clears the push token for a user
func (s *UserService) SetPushToken(ctx context.Context, userID string, pushToken *string) error {
	if pushToken != nil {
		trimmed := strings.TrimSpace(*pushToken)
		if trimmed == "" {
			pushToken = nil
		} else {
			pushToken = &trimmed
		}
	}
	if err := s.store.Users().UpdatePushToken(ctx, userID, pushToken); err != nil {
		return wrapLookup(err, "failed to update push token")
	}
	return nil
}
