package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUsers(t *testing.T) (*MemoryRepository, []User) {
	t.Helper()
	repo := NewMemoryRepository()
	users := []User{
		{ID: "7f1c9a1e-0000-4000-8000-000000000001", Code: "B12345", Phone: "+2348000000001", Name: "Bola", Tier: TierZero, CreatedAt: time.Now()},
		{ID: "7f1c9a1e-0000-4000-8000-000000000002", Code: "C22222", Phone: "+2348000000002", Name: "Chi", Tier: TierZero, CreatedAt: time.Now()},
	}
	for _, u := range users {
		if err := repo.Create(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo, users
}

func TestDirectoryLookupOrder(t *testing.T) {
	repo, users := seedUsers(t)
	dir := NewDirectory(repo)
	ctx := context.Background()

	cases := map[string]string{
		users[0].ID:         users[0].ID,
		"b12345":            users[0].ID,
		"C22222":            users[1].ID,
		"+234 800 000 0002": users[1].ID,
	}
	for identifier, want := range cases {
		got, err := dir.Lookup(ctx, identifier)
		if err != nil {
			t.Fatalf("lookup %q: %v", identifier, err)
		}
		if got.ID != want {
			t.Fatalf("lookup %q resolved %s, want %s", identifier, got.ID, want)
		}
	}

	for _, identifier := range []string{"", "   ", "Z99999", "7f1c9a1e-0000-4000-8000-000000000099"} {
		if _, err := dir.Lookup(ctx, identifier); !errors.Is(err, ErrNotFound) {
			t.Fatalf("lookup %q: expected not found, got %v", identifier, err)
		}
	}
}

type failingFinder struct{ Finder }

func (failingFinder) FindByID(context.Context, string) (User, error) {
	return User{}, errors.New("connection reset")
}

func TestDirectoryLookupPropagatesStoreErrors(t *testing.T) {
	dir := NewDirectory(failingFinder{})
	if _, err := dir.Lookup(context.Background(), "7f1c9a1e-0000-4000-8000-000000000001"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestDirectoryPhone(t *testing.T) {
	repo, users := seedUsers(t)
	dir := NewDirectory(repo)
	if got := dir.Phone(context.Background(), users[1].ID); got != users[1].Phone {
		t.Fatalf("expected %s, got %q", users[1].Phone, got)
	}
	if got := dir.Phone(context.Background(), "missing"); got != "" {
		t.Fatalf("expected empty phone, got %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	good := map[string]string{
		"+234 (800) 000-0000": "+2348000000000",
		"0800.000.0000":       "08000000000",
	}
	for in, want := range good {
		got, err := NormalizePhone(in)
		if err != nil || got != want {
			t.Fatalf("NormalizePhone(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"12345", "080+0000000", "phone", "+1234567890123456"} {
		if _, err := NormalizePhone(in); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("NormalizePhone(%q): expected error", in)
		}
	}
}
