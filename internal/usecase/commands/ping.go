package commands

import (
	"context"
	"fmt"
	"time"
)

type PingCommand struct {
	started time.Time
	now     func() time.Time
}

func NewPingCommand(started time.Time) *PingCommand {
	if started.IsZero() {
		started = time.Now()
	}
	return &PingCommand{started: started, now: time.Now}
}

func (c *PingCommand) Name() string {
	return "ping"
}

func (c *PingCommand) Aliases() []string {
	return []string{"speed"}
}

func (c *PingCommand) Describe() Descriptor {
	return Descriptor{
		Name:        c.Name(),
		Aliases:     c.Aliases(),
		Category:    "General",
		Description: "Check that the bot is alive.",
		Usage:       "ping",
		Access:      AccessEveryone,
		Reaction:    "🏓",
	}
}

func (c *PingCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	now := c.now()
	response := "*Pong!*"
	if ts := cmdCtx.Event.Timestamp; !ts.IsZero() && now.After(ts) {
		response += fmt.Sprintf(" %dms", now.Sub(ts).Milliseconds())
	}
	response += "\nUptime: " + now.Sub(c.started).Truncate(time.Second).String()
	return cmdCtx.Reply(ctx, response)
}
