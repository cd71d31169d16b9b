package authcore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ciphemic/authcore/mailer"
	"github.com/ciphemic/authcore/password"
)

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// mockUserProvider is an in-memory UserProvider with optional fault
// injection per method.
type mockUserProvider struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string
	nextID  int

	failCreate     error
	failUpdateHash error
	failMark       error
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserProvider) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *mockUserProvider) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *account
	return &cp, nil
}

func (m *mockUserProvider) Create(_ context.Context, in CreateAccountInput) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return nil, m.failCreate
	}
	if _, taken := m.byEmail[in.Email]; taken {
		return nil, ErrEmailExists
	}

	m.nextID++
	account := &Account{
		ID:           "u" + strconv.Itoa(m.nextID),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    time.Now().Unix(),
	}
	m.byID[account.ID] = account
	m.byEmail[account.Email] = account.ID

	cp := *account
	return &cp, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdateHash != nil {
		return m.failUpdateHash
	}
	account, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	account.PasswordHash = hash
	return nil
}

func (m *mockUserProvider) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failMark != nil {
		return m.failMark
	}
	account, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	account.Verified = true
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

// mockSender records outbound mail and can be told to fail.
type mockSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *mockSender) Send(_ context.Context, to string, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: msg.Subject, Text: msg.Text})
	return nil
}

func (m *mockSender) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret")
	cfg.JWT.ResetSecret = []byte("test-reset-secret")
	// keep argon2 cheap in tests
	cfg.Password.Argon2.Memory = 8 * 1024
	cfg.Password.Argon2.Time = 1
	cfg.Password.Argon2.Parallelism = 1
	return cfg
}

type testEnv struct {
	engine *Engine
	users  *mockUserProvider
	mail   *mockSender
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	users := newMockUserProvider()
	mail := &mockSender{}

	engine, err := New(cfg, newTestRedis(t), users, mail)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &testEnv{engine: engine, users: users, mail: mail}
}

func (env *testEnv) register(t *testing.T, email, pass string) *AuthResult {
	t.Helper()

	res, err := env.engine.Register(context.Background(), email, pass, "test-agent")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return res
}

// strongerHasher clones the engine's hasher config with a higher time cost
// so rehash-on-login has something to upgrade to.
func strongerHasher(env *testEnv, timeCost uint32) (*password.Argon2, error) {
	cfg := env.engine.config.Password.Argon2
	cfg.Time = timeCost
	return password.NewArgon2(cfg)
}

var errBoom = errors.New("boom")
