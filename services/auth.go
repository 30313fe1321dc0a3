package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

type RegisterInput struct {
	Email        string           `json:"email" validate:"required,email"`
	Password     string           `json:"password" validate:"required,min=6"`
	Name         string           `json:"name" validate:"required,max=100"`
	Age          int              `json:"age" validate:"required,min=18,max=100"`
	Gender       models.Gender    `json:"gender" validate:"required,oneof=male female other"`
	InterestedIn []models.Gender  `json:"interestedIn" validate:"required,min=1,dive,oneof=male female other"`
	Bio          string           `json:"bio" validate:"max=500"`
	Interests    []string         `json:"interests" validate:"dive,min=1,max=50"`
	Photos       []string         `json:"photos" validate:"dive,required"`
	Location     *models.GeoPoint `json:"location"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.OwnProfile `json:"user"`
}

type AuthService struct {
	users  repositories.UserRepository
	tokens *TokenService
}

func NewAuthService(users repositories.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Location != nil && !in.Location.Valid() {
		return nil, apperr.Validation("location coordinates are out of range")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}

	now := time.Now()
	u := &models.User{
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		Name:         in.Name,
		Age:          in.Age,
		Gender:       in.Gender,
		InterestedIn: in.InterestedIn,
		Bio:          in.Bio,
		Photos:       nonNilStrings(in.Photos),
		Interests:    nonNilStrings(in.Interests),
		Preferences:  models.DefaultPreferences(),
		Likes:        []primitive.ObjectID{},
		Dislikes:     []primitive.ObjectID{},
		LastActive:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Location != nil {
		u.Location = models.NewGeoPoint(in.Location.Longitude(), in.Location.Latitude())
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("Failed to create user", err)
	}
	log.Info("user registered", "user", u.ID.Hex())

	return s.result(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	return s.result(u)
}

// Authenticate resolves a bearer token to an existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := parseID(userID, "Invalid token")
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token")
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unauthorized("User no longer exists")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	return u, nil
}

func (s *AuthService) result(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u.OwnProfile()}, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
