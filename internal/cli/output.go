package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case protocol.GameInfo:
		o.printInfo(response.InfoFromGameInfo(v, ""))
	case response.Info:
		o.printInfo(v)
	case response.PlayersResponse:
		o.printPlayers(v)
	case response.GroupsResponse:
		o.printGroups(v)
	case KeyInfo:
		o.printKey(v)
	case []*model.KnownUser:
		o.printUsers(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// KeyInfo describes a stored player key
type KeyInfo struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	PublicKey   string `json:"public_key"`
}

func (o *Output) printInfo(i response.Info) {
	fmt.Fprintf(o.w, "Server: %s\n", i.Name)
	if i.Description != "" {
		fmt.Fprintf(o.w, "Description: %s\n", i.Description)
	}
	fmt.Fprintf(o.w, "Version: %s\n", i.Version)
	if i.Status != "" {
		fmt.Fprintf(o.w, "Status: %s\n", i.Status)
	}
	fmt.Fprintf(o.w, "Players: %d/%d\n", i.Players, i.MaxPlayers)
	password := "no"
	if i.RequiresPassword {
		password = "yes"
	}
	fmt.Fprintf(o.w, "Password: %s\n", password)
}

func (o *Output) printPlayers(r response.PlayersResponse) {
	fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		hostStr := ""
		if p.IsHost {
			hostStr = " [host]"
		}
		fmt.Fprintf(o.w, "  %3d  %-31s group %d  %4dms  %d commands%s\n",
			p.ID, p.Name, p.Group, p.Ping, p.CommandsRan, hostStr)
	}
}

func (o *Output) printGroups(r response.GroupsResponse) {
	for _, g := range r.Groups {
		defaultStr := ""
		if g.Default {
			defaultStr = " [default]"
		}
		fmt.Fprintf(o.w, "%d: %s%s\n", g.ID, g.Name, defaultStr)
		fmt.Fprintf(o.w, "    %s\n", strings.Join(g.Permissions, ", "))
	}
}

func (o *Output) printKey(k KeyInfo) {
	fmt.Fprintf(o.w, "Name: %s\n", k.Name)
	fmt.Fprintf(o.w, "Fingerprint: %s\n", k.Fingerprint)
	fmt.Fprint(o.w, k.PublicKey)
}

func (o *Output) printUsers(users []*model.KnownUser) {
	if len(users) == 0 {
		fmt.Fprintln(o.w, "No known users")
		return
	}
	for _, u := range users {
		group := "default"
		if u.GroupID != nil {
			group = fmt.Sprintf("%d", *u.GroupID)
		}
		fmt.Fprintf(o.w, "%s  %-31s group %s\n", u.Hash, u.Name, group)
	}
}
