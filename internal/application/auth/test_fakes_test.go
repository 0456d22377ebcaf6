package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]domain.User

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	listErr       error
	setRoleErr    error
	updatePwdErr  error
	deleteErr     error

	// record calls
	created    []domain.User
	setRoles   []struct{ id, role string }
	updatedPwd []struct{ id, hash string }
	deletedIDs []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[string]domain.User{},
		byEmail: map[string]domain.User{},
	}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{userID, newHash})
	return nil
}

func (f *fakeUserRepo) SetRole(ctx context.Context, userID string, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setRoleErr != nil {
		return f.setRoleErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Role = role
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.setRoles = append(f.setRoles, struct{ id, role string }{userID, role})
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	delete(f.byID, userID)
	delete(f.byEmail, u.Email)
	f.deletedIDs = append(f.deletedIDs, userID)
	return nil
}

type fakeTokens struct {
	mu sync.Mutex

	byToken map[string]domain.VerificationToken

	insertErr  error
	findErr    error
	consumeErr error

	deleted []string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byToken: map[string]domain.VerificationToken{}}
}

func (f *fakeTokens) Insert(ctx context.Context, t domain.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return f.insertErr
	}
	f.byToken[t.Token] = t
	return nil
}

func (f *fakeTokens) Find(ctx context.Context, token string) (domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return domain.VerificationToken{}, f.findErr
	}
	t, ok := f.byToken[token]
	if !ok {
		return domain.VerificationToken{}, domain.ErrInvalidOrExpiredToken()
	}
	return t, nil
}

func (f *fakeTokens) Consume(ctx context.Context, token string) (domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.consumeErr != nil {
		return domain.VerificationToken{}, f.consumeErr
	}
	t, ok := f.byToken[token]
	if !ok {
		return domain.VerificationToken{}, domain.ErrInvalidOrExpiredToken()
	}
	delete(f.byToken, token)
	f.deleted = append(f.deleted, token)
	return t, nil
}

func (f *fakeTokens) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byToken[token]; !ok {
		return domain.ErrInvalidOrExpiredToken()
	}
	delete(f.byToken, token)
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for k, t := range f.byToken {
		if t.ExpiredAt(now) {
			delete(f.byToken, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) forIdentifier(identifier string) []domain.VerificationToken {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.VerificationToken
	for _, t := range f.byToken {
		if t.Identifier == identifier {
			out = append(out, t)
		}
	}
	return out
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
	rehash    bool
}

func (h *fakeHasher) NeedsRehash(hash string) bool { return h.rehash }

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	signErr error
}

func (s *fakeSigner) SignSession(userID string, role string, ttl time.Duration) (string, domain.Session, error) {
	if s.signErr != nil {
		return "", domain.Session{}, s.signErr
	}
	sess := domain.Session{UserID: userID, Role: role, ExpiresAt: time.Unix(0, 0).Add(ttl)}
	return fmt.Sprintf("sess(%s,%s)", userID, role), sess, nil
}

func (s *fakeSigner) VerifySession(token string) (domain.Session, error) {
	return domain.Session{}, domain.ErrSessionInvalid()
}

type fakeNotifier struct {
	mu  sync.Mutex
	err error

	resets []PasswordResetMessage
}

func (n *fakeNotifier) SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.resets = append(n.resets, msg)
	return nil
}

type fakeMetrics struct {
	mu              sync.Mutex
	signIns         map[string]int
	resetRequests   int
	notifierFailure int
}

func (m *fakeMetrics) SignInAttempt(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signIns == nil {
		m.signIns = map[string]int{}
	}
	m.signIns[result]++
}

func (m *fakeMetrics) PasswordResetRequested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetRequests++
}

func (m *fakeMetrics) NotifierFailure(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifierFailure++
}

/*
Service factory for tests
*/

type testEnv struct {
	svc      *Service
	users    *fakeUserRepo
	tokens   *fakeTokens
	hasher   *fakeHasher
	signer   *fakeSigner
	notifier *fakeNotifier
	metrics  *fakeMetrics
	audits   *[]auditEntry

	now    time.Time
	sleeps []time.Duration
}

func newSvcForTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserRepo(),
		tokens:   newFakeTokens(),
		hasher:   &fakeHasher{},
		signer:   &fakeSigner{},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
		audits:   &[]auditEntry{},
		now:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	cfg := Config{
		SessionTTL:            24 * time.Hour,
		SignInDelay:           2 * time.Second,
		PasswordResetTokenTTL: time.Hour,
		PasswordResetBaseURL:  "https://alumni.test/reset-password?token=",
	}

	var auditMu sync.Mutex
	env.svc = NewService(env.users, env.tokens, env.hasher, env.signer, env.notifier, cfg).
		WithMetrics(env.metrics).
		WithClock(
			func() time.Time { return env.now },
			func(d time.Duration) { env.sleeps = append(env.sleeps, d) },
		).
		WithSyncDelivery().
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			auditMu.Lock()
			*env.audits = append(*env.audits, auditEntry{action: action, fields: cp})
			auditMu.Unlock()
		})

	// sanity check: no nil ports
	if env.svc == nil {
		t.Fatalf("svc is nil")
	}

	return env
}

func (e *testEnv) seedUser(id, email, password, role string) domain.User {
	u := domain.User{
		ID:           id,
		Name:         id,
		Email:        email,
		PasswordHash: "hash:" + password,
		Role:         role,
		CreatedAt:    e.now,
	}
	e.users.put(u)
	return u
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func adminSession(id string) *domain.Session {
	return &domain.Session{UserID: id, Role: string(domain.RoleAdmin)}
}

func userSession(id string) *domain.Session {
	return &domain.Session{UserID: id, Role: string(domain.RoleUser)}
}
