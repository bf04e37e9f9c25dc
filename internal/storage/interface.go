package storage

import (
	"context"

	"github.com/mcoot/parksync/internal/model"
)

// Storage defines the interface for persisting the server's registries
type Storage interface {
	// Group registry operations
	SaveGroups(ctx context.Context, groups *model.GroupList) error
	GetGroups(ctx context.Context) (*model.GroupList, error)

	// Known user operations
	SaveKnownUser(ctx context.Context, user *model.KnownUser) error
	GetKnownUser(ctx context.Context, hash string) (*model.KnownUser, error)
	ListKnownUsers(ctx context.Context) ([]*model.KnownUser, error)
	DeleteKnownUser(ctx context.Context, hash string) error
}
