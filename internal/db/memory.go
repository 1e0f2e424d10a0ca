package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/spacesedan/myriadflow/internal/models"
)

// MemoryStore keeps everything in process. It is used for local runs and
// tests; the seeding helpers have no counterpart on the other backends.
type MemoryStore struct {
	mu          sync.RWMutex
	posts       map[string]models.Post
	postKeys    map[string]string
	people      map[string]models.People
	credentials map[string]models.UserCredential
	tags        map[string]models.Tag
	users       map[string]struct{}
	currencies  map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:       make(map[string]models.Post),
		postKeys:    make(map[string]string),
		people:      make(map[string]models.People),
		credentials: make(map[string]models.UserCredential),
		tags:        make(map[string]models.Tag),
		users:       make(map[string]struct{}),
		currencies:  make(map[string]struct{}),
	}
}

func (m *MemoryStore) AddPeople(p models.People) models.People {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.people[p.ID] = p
	return p
}

func (m *MemoryStore) AddCredential(c models.UserCredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.credentials[c.PeopleID] = c
}

func (m *MemoryStore) AddUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = struct{}{}
}

func (m *MemoryStore) AddCurrency(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies[id] = struct{}{}
}

// Posts returns every stored post ordered by creation time.
func (m *MemoryStore) Posts() []models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, clonePost(p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) FindPost(ctx context.Context, platform models.Platform, textID string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.postKeys[models.NaturalKey(platform, textID)]
	if !ok {
		return nil, ErrNotFound
	}
	p := clonePost(m.posts[id])
	return &p, nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePost(p)
	return &p, nil
}

func (m *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := post.NaturalKey()
	if _, ok := m.postKeys[key]; ok {
		return ErrConflict
	}
	post.ID = uuid.NewString()
	m.posts[post.ID] = clonePost(*post)
	m.postKeys[key] = post.ID
	return nil
}

func (m *MemoryStore) UpdatePost(ctx context.Context, id string, patch PostPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	applyPatch(&p, patch)
	m.posts[id] = p
	return nil
}

func (m *MemoryStore) ListUnboundPosts(ctx context.Context, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range m.Posts() {
		if p.WalletAddress != "" {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.People
	for _, p := range m.people {
		if p.Platform == platform {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) FindCredentialByPeople(ctx context.Context, peopleID string) (*models.UserCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[peopleID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) FindTag(ctx context.Context, id string) (*models.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tags[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[tag.ID]; ok {
		return ErrConflict
	}
	m.tags[tag.ID] = *tag
	return nil
}

func (m *MemoryStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return visibleTags(out), nil
}

func (m *MemoryStore) CurrencyExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.currencies[id]
	return ok, nil
}

func (m *MemoryStore) UserExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() {}

func clonePost(p models.Post) models.Post {
	p.Tags = append(make([]string, 0, len(p.Tags)), p.Tags...)
	if p.PlatformUser != nil {
		u := *p.PlatformUser
		p.PlatformUser = &u
	}
	return p
}

var _ Store = (*MemoryStore)(nil)
