package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// handleCommand answers a slash command. Replies go to the origin only.
func (c *Client) handleCommand(cmdLine, username string) {
	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "/help":
		c.handleHelp()
	case "/who":
		c.handleWho()
	case "/facts":
		c.handleFacts(username)
	case "/personas":
		c.handlePersonas()
	default:
		c.sendSystemMessage("Unknown command: " + parts[0])
	}
}

func (c *Client) handleHelp() {
	help := `Available commands:
/help - Show this help
/who - List connected users
/facts - Show what has been saved about you
/personas - List the AI personas
@<persona> <message> - Ask a persona
Say "remember that ..." to have a fact saved.`
	c.sendSystemMessage(help)
}

func (c *Client) handleWho() {
	names := c.hub.Who()
	if len(names) == 0 {
		c.sendSystemMessage("No users online.")
		return
	}
	c.sendSystemMessage(fmt.Sprintf("Online (%d): %s", len(names), strings.Join(names, ", ")))
}

func (c *Client) handleFacts(username string) {
	facts, err := c.hub.store.ListFacts(c.hub.ctx, username)
	if err != nil {
		c.hub.log.Warn("list facts", zap.String("username", username), zap.Error(err))
		c.sendSystemMessage("Could not load facts.")
		return
	}
	if len(facts) == 0 {
		c.sendSystemMessage("No facts saved for " + username + ".")
		return
	}
	var sb strings.Builder
	sb.WriteString("Saved facts:")
	for _, f := range facts {
		fmt.Fprintf(&sb, "\n- %s = %s", f.FactType, f.Value)
	}
	c.sendSystemMessage(sb.String())
}

func (c *Client) handlePersonas() {
	var sb strings.Builder
	sb.WriteString("Personas:")
	for _, p := range c.hub.personas.List() {
		fmt.Fprintf(&sb, "\n- @%s: %s", p.ID, p.Description)
	}
	c.sendSystemMessage(sb.String())
}

// Console is the operator prompt read from stdin.
type Console struct {
	hub    *Hub
	config *Config
	out    io.Writer
}

func NewConsole(hub *Hub, config *Config, out io.Writer) *Console {
	return &Console{hub: hub, config: config, out: out}
}

// Run reads commands until in is exhausted, "stop" is entered or ctx is
// done. It returns errStop for "stop".
func (con *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(con.out, "Server console ready. Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if con.Exec(line) {
				return errStop
			}
		}
	}
}

// Exec runs one console line and reports whether the server should stop.
func (con *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(con.out, "Available commands: who, kick <username>, ban <username>, unban <username>, broadcast <msg>, stop")
	case "stop":
		fmt.Fprintln(con.out, "Stopping server...")
		return true
	case "who":
		names := con.hub.Who()
		if len(names) == 0 {
			fmt.Fprintln(con.out, "No users online.")
		} else {
			fmt.Fprintln(con.out, strings.Join(names, ", "))
		}
	case "kick":
		if len(args) != 1 {
			fmt.Fprintln(con.out, "Usage: kick <username>")
			return false
		}
		if con.hub.KickUser(args[0]) {
			fmt.Fprintln(con.out, "User kicked.")
		} else {
			fmt.Fprintln(con.out, "User not found.")
		}
	case "ban":
		if len(args) != 1 {
			fmt.Fprintln(con.out, "Usage: ban <username>")
			return false
		}
		if err := con.config.Ban(args[0]); err != nil {
			fmt.Fprintln(con.out, "Error banning:", err)
		} else {
			fmt.Fprintln(con.out, "User banned.")
			con.hub.KickUser(args[0])
		}
	case "unban":
		if len(args) != 1 {
			fmt.Fprintln(con.out, "Usage: unban <username>")
			return false
		}
		if err := con.config.Unban(args[0]); err != nil {
			fmt.Fprintln(con.out, "Error unbanning:", err)
		} else {
			fmt.Fprintln(con.out, "User unbanned.")
		}
	case "broadcast":
		if len(args) < 1 {
			fmt.Fprintln(con.out, "Usage: broadcast <message>")
			return false
		}
		con.hub.BroadcastSystemMessage("[Admin] " + strings.Join(args, " "))
		fmt.Fprintln(con.out, "Broadcast sent.")
	default:
		fmt.Fprintln(con.out, "Unknown command.")
	}
	return false
}
