package user

import (
	"context"
	"testing"

	"chat-connect/internal/apperr"
)

type fakeStore struct {
	nextID  int64
	byEmail map[string]*User
	byID    map[int64]*User
}

func newFakeStore() *fakeStore {
	return &fakeStore{byEmail: make(map[string]*User), byID: make(map[int64]*User)}
}

func (f *fakeStore) Create(ctx context.Context, u *User) (*User, error) {
	if _, exists := f.byEmail[u.Email]; exists {
		return nil, apperr.Conflict("Email already registered")
	}
	f.nextID++
	saved := *u
	saved.ID = f.nextID
	f.byEmail[saved.Email] = &saved
	f.byID[saved.ID] = &saved
	return &saved, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func (f *fakeStore) UpdateProfileImage(ctx context.Context, id int64, url string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("User not found")
	}
	u.ProfileImageURL = &url
	return nil
}

func TestRegisterNormalizesEmail(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "test-secret")

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Name:     "Alice",
		Email:    "  Alice@Test.LOCAL ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if u.Email != "alice@test.local" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.Password == "password123" {
		t.Fatal("password must not be stored in plaintext")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"blank name", RegisterRequest{Name: "  ", Email: "a@test.local", Password: "password123"}},
		{"bad email", RegisterRequest{Name: "A", Email: "not-an-email", Password: "password123"}},
		{"short password", RegisterRequest{Name: "A", Email: "a@test.local", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.req)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")

	req := &RegisterRequest{Name: "Alice", Email: "alice@test.local", Password: "password123"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	// Same mailbox, different casing: normalization must collide.
	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Imposter", Email: "ALICE@test.local", Password: "password456",
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginAndValidateTokenRoundtrip(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")

	registered, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Alice", Email: "alice@test.local", Password: "password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	auth, err := svc.Login(context.Background(), &LoginRequest{
		Email: "Alice@Test.Local", Password: "password123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if auth.Token == "" || auth.UserID != registered.ID {
		t.Fatalf("unexpected auth response: %+v", auth)
	}

	userID, email, err := svc.ValidateToken(auth.Token)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if userID != registered.ID || email != "alice@test.local" {
		t.Fatalf("token resolved wrong identity: %d %q", userID, email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")
	if _, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Alice", Email: "alice@test.local", Password: "password123",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "alice@test.local", Password: "wrong-password"})
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@test.local", Password: "password123"})
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("unknown email must map to the same auth error, got %v", err)
	}
}

func TestUpdateProfileImage(t *testing.T) {
	svc := NewService(newFakeStore(), "test-secret")

	registered, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Alice", Email: "alice@test.local", Password: "password123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	u, err := svc.UpdateProfileImage(context.Background(), registered.ID, &ProfileImageRequest{
		ProfileImageURL: " https://cdn.test.local/alice.png ",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if u.ProfileImageURL == nil || *u.ProfileImageURL != "https://cdn.test.local/alice.png" {
		t.Fatalf("profile image not stored trimmed: %v", u.ProfileImageURL)
	}

	_, err = svc.UpdateProfileImage(context.Background(), registered.ID, &ProfileImageRequest{ProfileImageURL: "   "})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("blank url must be rejected, got %v", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService(newFakeStore(), "secret-one")
	verifier := NewService(newFakeStore(), "secret-two")

	if _, err := issuer.Register(context.Background(), &RegisterRequest{
		Name: "Alice", Email: "alice@test.local", Password: "password123",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	auth, err := issuer.Login(context.Background(), &LoginRequest{Email: "alice@test.local", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, _, err := verifier.ValidateToken(auth.Token); apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("token signed with a different secret must be rejected, got %v", err)
	}

	if _, _, err := verifier.ValidateToken("not-a-jwt"); apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("garbage token must be rejected, got %v", err)
	}
}
