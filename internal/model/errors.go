package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrServerFull     = errors.New("no free player id")
	ErrInvalidName    = errors.New("invalid player name")
	ErrCannotKickHost = errors.New("cannot kick the host")
	ErrRateLimited    = errors.New("action is on cooldown")

	// Group errors
	ErrGroupNotFound         = errors.New("group not found")
	ErrGroupsNotFound        = errors.New("no group registry stored")
	ErrTooManyGroups         = errors.New("no free group id")
	ErrCannotModifyAdmin     = errors.New("cannot modify the admin group")
	ErrCannotRemoveDefault   = errors.New("cannot remove the default group")
	ErrGroupInUse            = errors.New("group still has players")
	ErrCannotChangeHostGroup = errors.New("cannot change the host's group")
	ErrPermissionDenied      = errors.New("permission denied")

	// Known user errors
	ErrKnownUserNotFound = errors.New("known user not found")
)
