package store

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/patrickmn/go-cache"
)

// DefaultSessionTTL はセッションの既定の有効期限です。
const DefaultSessionTTL = 2 * time.Hour

// SessionStore は、生成工程の間で Session を受け渡すためのストアです。
type SessionStore interface {
	Create(ctx context.Context, s domain.Session) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, bool)
	Update(ctx context.Context, id string, patch domain.SessionPatch) (domain.Session, error)
}

// MemorySessionStore は go-cache を使った有効期限付きの SessionStore です。
// 有効期限は作成時と更新時に延長されます。
type MemorySessionStore struct {
	mu    sync.Mutex
	items *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore は MemorySessionStore を初期化します。ttl が 0 以下の場合は DefaultSessionTTL を使用します。
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &MemorySessionStore{
		items: cache.New(ttl, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create はセッションを保存します。ID が空の場合は新しい ID を採番します。
func (m *MemorySessionStore) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	now := m.now()
	if s.ID == "" {
		s.ID = domain.NewSessionID(now)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s = s.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Set(s.ID, s, m.ttl)
	return s.Clone(), nil
}

// Get はセッションを返します。存在しないか期限切れの場合は false を返します。
func (m *MemorySessionStore) Get(_ context.Context, id string) (domain.Session, bool) {
	v, ok := m.items.Get(id)
	if !ok {
		return domain.Session{}, false
	}
	s, ok := v.(domain.Session)
	if !ok {
		return domain.Session{}, false
	}
	return s.Clone(), true
}

// Update は patch を反映したセッションを保存して返します。存在しない場合は ErrNotFound を返します。
func (m *MemorySessionStore) Update(ctx context.Context, id string, patch domain.SessionPatch) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.Get(ctx, id)
	if !ok {
		return domain.Session{}, ErrNotFound
	}
	updated := current.Apply(patch)
	m.items.Set(id, updated, m.ttl)
	return updated.Clone(), nil
}

// Len は保持しているセッション数を返します。期限切れで未削除のものも含みます。
func (m *MemorySessionStore) Len() int {
	return m.items.ItemCount()
}
