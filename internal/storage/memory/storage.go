package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	groups     *model.GroupList
	knownUsers map[string]model.KnownUser
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		knownUsers: make(map[string]model.KnownUser),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Group registry operations

func (s *Storage) SaveGroups(ctx context.Context, groups *model.GroupList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups.Clone()
	return nil
}

func (s *Storage) GetGroups(ctx context.Context) (*model.GroupList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.groups == nil {
		return nil, model.ErrGroupsNotFound
	}
	return s.groups.Clone(), nil
}

// Known user operations

func (s *Storage) SaveKnownUser(ctx context.Context, user *model.KnownUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownUsers[user.Hash] = copyUser(user)
	return nil
}

func (s *Storage) GetKnownUser(ctx context.Context, hash string) (*model.KnownUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.knownUsers[hash]
	if !ok {
		return nil, model.ErrKnownUserNotFound
	}
	out := copyUser(&user)
	return &out, nil
}

func (s *Storage) ListKnownUsers(ctx context.Context) ([]*model.KnownUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.KnownUser, 0, len(s.knownUsers))
	for _, u := range s.knownUsers {
		c := copyUser(&u)
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Hash < users[j].Hash })
	return users, nil
}

func (s *Storage) DeleteKnownUser(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.knownUsers, hash)
	return nil
}

func copyUser(u *model.KnownUser) model.KnownUser {
	out := *u
	if u.GroupID != nil {
		g := *u.GroupID
		out.GroupID = &g
	}
	return out
}
