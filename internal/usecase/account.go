package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/repository"
)

var (
	// ErrMissingFields reports an incomplete signup or login request.
	ErrMissingFields = errors.New("missing required fields")
	// ErrUserExists reports a username or email collision on signup.
	ErrUserExists = errors.New("username or email already exists")
	// ErrInvalidCredentials reports an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts reports an email locked out by the login throttle.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
)

const (
	defaultMaxLoginFailures = 5
	defaultFailureWindow    = 15 * time.Minute
)

// UserRepository defines the persistence operations needed by the account flow.
type UserRepository interface {
	CreateUser(ctx context.Context, user *repository.User) error
	FindByEmail(ctx context.Context, email string) (*repository.User, error)
}

// TokenIssuer signs an access token for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	UserID   uint
	Username string
	Token    string
}

// AccountUseCase implements signup and login.
type AccountUseCase struct {
	repo          UserRepository
	cache         Cache
	tokens        TokenIssuer
	logger        *zap.Logger
	retry         retrier
	maxFailures   int64
	failureWindow time.Duration
	bcryptCost    int
}

// NewAccountUseCase constructs a new use case instance.
func NewAccountUseCase(repo UserRepository, cache Cache, tokens TokenIssuer, logger *zap.Logger) *AccountUseCase {
	named := logger.Named("account_usecase")
	return &AccountUseCase{
		repo:          repo,
		cache:         cache,
		tokens:        tokens,
		logger:        named,
		retry:         newRetrier(named),
		maxFailures:   defaultMaxLoginFailures,
		failureWindow: defaultFailureWindow,
		bcryptCost:    bcrypt.DefaultCost,
	}
}

// Signup registers a new account.
func (uc *AccountUseCase) Signup(ctx context.Context, username, email, password string) (*repository.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return nil, logging.NewOperationError("usecase.hash_password", "", err)
	}

	user := &repository.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		uc.logger.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	uc.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues an access token. Failed attempts are
// counted per email; once the limit is reached further attempts are refused
// until the window expires.
func (uc *AccountUseCase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	key := failureKey(email)
	failures, err := uc.failureCount(ctx, key)
	if err != nil {
		return nil, err
	}
	if failures >= uc.maxFailures {
		return nil, ErrTooManyAttempts
	}

	user, err := uc.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		uc.recordFailure(ctx, key)
		return nil, ErrInvalidCredentials
	}

	if err := uc.retry.withRedisRetry(ctx, "", "cache.del.login_failures", func() error {
		return uc.cache.Del(ctx, key)
	}); err != nil {
		uc.logger.Warn("failed to reset login failures", zap.Error(err))
	}

	subject := strconv.FormatUint(uint64(user.ID), 10)
	token, err := uc.tokens.Issue(subject)
	if err != nil {
		return nil, logging.NewOperationError("usecase.issue_token", "", err)
	}

	return &LoginResult{UserID: user.ID, Username: user.Username, Token: token}, nil
}

func (uc *AccountUseCase) failureCount(ctx context.Context, key string) (int64, error) {
	var raw string
	err := uc.retry.withRedisRetry(ctx, "", "cache.get.login_failures", func() error {
		value, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		raw = value
		return nil
	}, redis.Nil)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		uc.logger.Warn("discarding malformed login failure counter", zap.String("value", raw))
		return 0, nil
	}
	return count, nil
}

func (uc *AccountUseCase) recordFailure(ctx context.Context, key string) {
	var count int64
	err := uc.retry.withRedisRetry(ctx, "", "cache.incr.login_failures", func() error {
		value, err := uc.cache.Incr(ctx, key)
		count = value
		return err
	})
	if err != nil {
		uc.logger.Warn("failed to record login failure", zap.Error(err))
		return
	}
	if count == 1 {
		if err := uc.retry.withRedisRetry(ctx, "", "cache.expire.login_failures", func() error {
			return uc.cache.Expire(ctx, key, uc.failureWindow)
		}); err != nil {
			uc.logger.Warn("failed to set login failure window", zap.Error(err))
		}
	}
}

func failureKey(email string) string {
	return "login:failures:" + email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
