package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/repository"
)

type stubUserRepository struct {
	users     map[string]*repository.User
	createErr error
	findErr   error
	nextID    uint
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{users: map[string]*repository.User{}}
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *repository.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.users[user.Email]; ok {
		return repository.ErrDuplicateUser
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Email] = user
	return nil
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

type stubCache struct {
	values  map[string]int64
	ttls    map[string]time.Duration
	getErrs []error
	getKeys []string
	deleted []string
}

func newStubCache() *stubCache {
	return &stubCache{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	if len(s.getErrs) > 0 {
		err := s.getErrs[0]
		s.getErrs = s.getErrs[1:]
		if err != nil {
			return "", err
		}
	}
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return strconv.FormatInt(value, 10), nil
}

func (s *stubCache) Incr(ctx context.Context, key string) (int64, error) {
	s.values[key]++
	return s.values[key], nil
}

func (s *stubCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	s.ttls[key] = expiration
	return nil
}

func (s *stubCache) Del(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.values, key)
	return nil
}

type stubIssuer struct {
	subjects []string
	err      error
}

func (s *stubIssuer) Issue(subject string) (string, error) {
	s.subjects = append(s.subjects, subject)
	if s.err != nil {
		return "", s.err
	}
	return "token-" + subject, nil
}

type transientRedisError struct{}

func (transientRedisError) Error() string   { return "redis transient" }
func (transientRedisError) Timeout() bool   { return true }
func (transientRedisError) Temporary() bool { return true }

func newTestAccountUseCase(repo *stubUserRepository, cache *stubCache, issuer *stubIssuer) *AccountUseCase {
	uc := NewAccountUseCase(repo, cache, issuer, zap.NewNop())
	uc.bcryptCost = bcrypt.MinCost
	uc.retry.initialBackoff = time.Millisecond
	uc.retry.maxBackoff = 2 * time.Millisecond
	return uc
}

func TestSignupRequiresAllFields(t *testing.T) {
	uc := newTestAccountUseCase(newStubUserRepository(), newStubCache(), &stubIssuer{})

	cases := [][3]string{
		{"", "a@example.com", "secret"},
		{"alice", " ", "secret"},
		{"alice", "a@example.com", ""},
	}
	for _, tc := range cases {
		if _, err := uc.Signup(context.Background(), tc[0], tc[1], tc[2]); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("Signup(%q, %q, %q): expected ErrMissingFields, got %v", tc[0], tc[1], tc[2], err)
		}
	}
}

func TestSignupHashesPassword(t *testing.T) {
	repo := newStubUserRepository()
	uc := newTestAccountUseCase(repo, newStubCache(), &stubIssuer{})

	user, err := uc.Signup(context.Background(), "alice", " Alice@Example.com ", "secret")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "secret" {
		t.Fatal("password stored in clear text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestSignupReportsExistingUser(t *testing.T) {
	uc := newTestAccountUseCase(newStubUserRepository(), newStubCache(), &stubIssuer{})

	if _, err := uc.Signup(context.Background(), "alice", "a@example.com", "secret"); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if _, err := uc.Signup(context.Background(), "alice2", "a@example.com", "secret"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginIssuesTokenAndResetsFailures(t *testing.T) {
	repo := newStubUserRepository()
	cache := newStubCache()
	issuer := &stubIssuer{}
	uc := newTestAccountUseCase(repo, cache, issuer)

	if _, err := uc.Signup(context.Background(), "alice", "a@example.com", "secret"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	cache.values[failureKey("a@example.com")] = 2

	result, err := uc.Login(context.Background(), "A@example.com", "secret")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.Username != "alice" || result.UserID != 1 {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if result.Token != "token-1" {
		t.Fatalf("unexpected token: %s", result.Token)
	}
	if _, ok := cache.values[failureKey("a@example.com")]; ok {
		t.Fatal("expected failure counter to be cleared")
	}
}

func TestLoginRejectsBadPasswordAndCountsFailure(t *testing.T) {
	repo := newStubUserRepository()
	cache := newStubCache()
	uc := newTestAccountUseCase(repo, cache, &stubIssuer{})

	if _, err := uc.Signup(context.Background(), "alice", "a@example.com", "secret"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if _, err := uc.Login(context.Background(), "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	key := failureKey("a@example.com")
	if cache.values[key] != 1 {
		t.Fatalf("expected one recorded failure, got %d", cache.values[key])
	}
	if cache.ttls[key] != defaultFailureWindow {
		t.Fatalf("expected failure window to be set, got %s", cache.ttls[key])
	}
}

func TestLoginUnknownEmailIsInvalidCredentials(t *testing.T) {
	uc := newTestAccountUseCase(newStubUserRepository(), newStubCache(), &stubIssuer{})

	if _, err := uc.Login(context.Background(), "nobody@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginThrottlesAfterRepeatedFailures(t *testing.T) {
	repo := newStubUserRepository()
	cache := newStubCache()
	issuer := &stubIssuer{}
	uc := newTestAccountUseCase(repo, cache, issuer)

	if _, err := uc.Signup(context.Background(), "alice", "a@example.com", "secret"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	for i := 0; i < defaultMaxLoginFailures; i++ {
		if _, err := uc.Login(context.Background(), "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	if _, err := uc.Login(context.Background(), "a@example.com", "secret"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if len(issuer.subjects) != 0 {
		t.Fatalf("expected no token to be issued, got %v", issuer.subjects)
	}
}

func TestLoginRetriesTransientCacheErrors(t *testing.T) {
	repo := newStubUserRepository()
	cache := newStubCache()
	uc := newTestAccountUseCase(repo, cache, &stubIssuer{})

	if _, err := uc.Signup(context.Background(), "alice", "a@example.com", "secret"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	cache.getErrs = []error{transientRedisError{}}

	if _, err := uc.Login(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(cache.getKeys) != 2 {
		t.Fatalf("expected 2 cache reads (retry), got %d", len(cache.getKeys))
	}
}

func TestLoginReturnsOperationErrorOnCacheFailure(t *testing.T) {
	cache := newStubCache()
	cache.getErrs = []error{errors.New("boom")}
	uc := newTestAccountUseCase(newStubUserRepository(), cache, &stubIssuer{})

	_, err := uc.Login(context.Background(), "a@example.com", "secret")
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T (%v)", err, err)
	}
	if opErr.Operation != "cache.get.login_failures" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}
