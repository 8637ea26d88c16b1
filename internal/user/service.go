package user

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"chat-connect/internal/apperr"
)

// store is what the service needs from the repository.
type store interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfileImage(ctx context.Context, id int64, url string) error
}

type Service struct {
	repo      store
	jwtSecret string
}

type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(repo store, secret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: secret,
	}
}

// NormalizeEmail is the canonical form of the addressing key: lowercased and
// trimmed. Every lookup and every stored row goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)

	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("A valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("Password must be at least 8 characters")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: string(hashedPwd),
	}

	return s.repo.Create(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := NormalizeEmail(req.Email)

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Auth("Invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Auth("Invalid email or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chat-connect",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:  ss,
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
	}, nil
}

// ValidateToken is the credential collaborator contract: verify signature and
// expiry, resolve to a user id and email. The same token is accepted as a
// bearer header on REST calls and as a header or query parameter on the
// realtime handshake; that routing lives in the auth middleware.
func (s *Service) ValidateToken(tokenString string) (int64, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Auth("Unexpected token signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", apperr.Auth("Invalid or expired token")
	}

	return claims.UserID, claims.Email, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfileImage(ctx context.Context, id int64, req *ProfileImageRequest) (*User, error) {
	url := strings.TrimSpace(req.ProfileImageURL)
	if url == "" {
		return nil, apperr.Validation("Profile image URL is required")
	}
	if err := s.repo.UpdateProfileImage(ctx, id, url); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
