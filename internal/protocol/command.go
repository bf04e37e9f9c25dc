package protocol

import "fmt"

// Command identifies the type of a framed message
type Command uint32

const (
	CommandAuth             Command = 0
	CommandMap              Command = 1
	CommandChat             Command = 2
	CommandGameCmd          Command = 3
	CommandTick             Command = 4
	CommandPlayerList       Command = 5
	CommandPing             Command = 6
	CommandPingList         Command = 7
	CommandSetDisconnectMsg Command = 8
	CommandGameInfo         Command = 9
	CommandShowError        Command = 10
	CommandGroupList        Command = 11
	CommandEvent            Command = 12
	CommandToken            Command = 13
	CommandObjects          Command = 14
	CommandMapRequest       Command = 15
	CommandGameAction       Command = 16
	CommandPlayerInfo       Command = 17
	CommandHeartbeat        Command = 18

	commandMax
)

var commandNames = [...]string{
	CommandAuth:             "AUTH",
	CommandMap:              "MAP",
	CommandChat:             "CHAT",
	CommandGameCmd:          "GAMECMD",
	CommandTick:             "TICK",
	CommandPlayerList:       "PLAYERLIST",
	CommandPing:             "PING",
	CommandPingList:         "PINGLIST",
	CommandSetDisconnectMsg: "SETDISCONNECTMSG",
	CommandGameInfo:         "GAMEINFO",
	CommandShowError:        "SHOWERROR",
	CommandGroupList:        "GROUPLIST",
	CommandEvent:            "EVENT",
	CommandToken:            "TOKEN",
	CommandObjects:          "OBJECTS",
	CommandMapRequest:       "MAPREQUEST",
	CommandGameAction:       "GAME_ACTION",
	CommandPlayerInfo:       "PLAYERINFO",
	CommandHeartbeat:        "HEARTBEAT",
}

// Valid reports whether c is a known command
func (c Command) Valid() bool {
	return c < commandMax
}

// String returns the wire name of the command
func (c Command) String() string {
	if !c.Valid() {
		return fmt.Sprintf("COMMAND(%d)", uint32(c))
	}
	return commandNames[c]
}

// RequiresAuth reports whether the server may only handle c on a connection
// that has completed authentication.
func (c Command) RequiresAuth() bool {
	switch c {
	case CommandAuth, CommandToken, CommandGameInfo, CommandPing, CommandHeartbeat:
		return false
	}
	return true
}
