package tui

import "strings"

// Command is a parsed ':' command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":  "quit",
	"h":  "help",
	"a":  "attach",
	"o":  "open",
	"r":  "refresh",
	"rm": "detach",
}

// ParseCommand parses a command line without its leading ':'.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
