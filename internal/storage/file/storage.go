// Package file persists the server registries as JSON files in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/storage"
)

const (
	groupsFile = "groups.json"
	usersFile  = "users.json"
)

// Storage keeps the group registry and known users under a directory
type Storage struct {
	mu  sync.Mutex
	dir string
}

// New creates a file storage rooted at dir, creating it if needed
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Dir returns the registry directory
func (s *Storage) Dir() string {
	return s.dir
}

// Group registry operations

func (s *Storage) SaveGroups(ctx context.Context, groups *model.GroupList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(groupsFile, groups)
}

func (s *Storage) GetGroups(ctx context.Context) (*model.GroupList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var groups model.GroupList
	if err := s.read(groupsFile, &groups); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.ErrGroupsNotFound
		}
		return nil, err
	}
	return &groups, nil
}

// Known user operations

func (s *Storage) SaveKnownUser(ctx context.Context, user *model.KnownUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	replaced := false
	for i := range users {
		if users[i].Hash == user.Hash {
			users[i] = *user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Hash < users[j].Hash })
	return s.write(usersFile, users)
}

func (s *Storage) GetKnownUser(ctx context.Context, hash string) (*model.KnownUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Hash == hash {
			return &users[i], nil
		}
	}
	return nil, model.ErrKnownUserNotFound
}

func (s *Storage) ListKnownUsers(ctx context.Context) ([]*model.KnownUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	out := make([]*model.KnownUser, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out, nil
}

func (s *Storage) DeleteKnownUser(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u.Hash != hash {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return nil
	}
	return s.write(usersFile, kept)
}

func (s *Storage) loadUsers() ([]model.KnownUser, error) {
	var users []model.KnownUser
	if err := s.read(usersFile, &users); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return users, nil
}

func (s *Storage) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// write replaces name atomically
func (s *Storage) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
