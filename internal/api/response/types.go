package response

import (
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
)

// Info describes the running server
type Info struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Version          string `json:"version"`
	Status           string `json:"status"`
	Players          int    `json:"players"`
	MaxPlayers       int    `json:"max_players"`
	RequiresPassword bool   `json:"requires_password"`
}

// InfoFromGameInfo converts the GAMEINFO view of a session
func InfoFromGameInfo(info protocol.GameInfo, status string) Info {
	return Info{
		Name:             info.Name,
		Description:      info.Description,
		Version:          info.Version,
		Status:           status,
		Players:          info.Players,
		MaxPlayers:       info.MaxPlayers,
		RequiresPassword: info.Password,
	}
}

// Player represents a connected player
type Player struct {
	ID          uint8  `json:"id"`
	Name        string `json:"name"`
	Group       uint8  `json:"group"`
	IsHost      bool   `json:"is_host"`
	Ping        uint16 `json:"ping_ms"`
	MoneySpent  int64  `json:"money_spent"`
	CommandsRan uint32 `json:"commands_ran"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:          uint8(p.ID),
		Name:        p.Name,
		Group:       uint8(p.Group),
		IsHost:      p.IsServer(),
		Ping:        p.Ping,
		MoneySpent:  p.MoneySpent,
		CommandsRan: p.CommandsRan,
	}
}

// PlayersResponse lists players ordered by id
type PlayersResponse struct {
	Players []Player `json:"players"`
}

// Group represents a permission group
type Group struct {
	ID          uint8    `json:"id"`
	Name        string   `json:"name"`
	Default     bool     `json:"default"`
	Permissions []string `json:"permissions"`
}

// GroupFromModel converts a model.Group
func GroupFromModel(g model.Group, defaultID model.GroupID) Group {
	out := Group{
		ID:          uint8(g.ID),
		Name:        g.Name,
		Default:     g.ID == defaultID,
		Permissions: []string{},
	}
	for _, p := range model.Permissions() {
		if g.Can(p) {
			out.Permissions = append(out.Permissions, p.String())
		}
	}
	return out
}

// GroupsResponse lists the group registry
type GroupsResponse struct {
	Default uint8   `json:"default_group"`
	Groups  []Group `json:"groups"`
}

// GroupsFromModel converts a model.GroupList
func GroupsFromModel(l *model.GroupList) GroupsResponse {
	out := GroupsResponse{Default: uint8(l.Default), Groups: make([]Group, 0, len(l.Groups))}
	for _, g := range l.Groups {
		out.Groups = append(out.Groups, GroupFromModel(g, l.Default))
	}
	return out
}
