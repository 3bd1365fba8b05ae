package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"guardBot/internal/domain"
	"guardBot/internal/interface/outs"
)

const NoticeCommandError = "😡 Command error, please try again later."

// Outcome describes what happened to one event.
type Outcome struct {
	Matched  bool
	Command  string
	Rejected *Rejection
	Err      error
}

// Router parses, guards and runs commands. The table is swapped atomically,
// so Load may run while events are being dispatched.
type Router struct {
	logger *slog.Logger
	parser *Parser
	guards []Guard
	out    *outs.Outbox

	table  atomic.Pointer[Table]
	source func(ctx context.Context) []Command
}

func NewRouter(parser *Parser, guards []Guard, out *outs.Outbox, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		logger: logger.With("component", "commands"),
		parser: parser,
		guards: guards,
		out:    out,
	}
	r.table.Store(NewTable())
	return r
}

// SetSource installs the function Reload builds the table from.
func (r *Router) SetSource(source func(ctx context.Context) []Command) {
	r.source = source
}

// Load replaces the table with cmds.
func (r *Router) Load(cmds ...Command) *Table {
	t := NewTable(cmds...)
	r.table.Store(t)
	r.logger.Info("command table loaded", "commands", t.Len())
	return t
}

// Reload rebuilds the table from the installed source. Calling it again,
// e.g. on every reconnect, just replaces the entries.
func (r *Router) Reload(ctx context.Context) *Table {
	if r.source == nil {
		return r.Table()
	}
	return r.Load(r.source(ctx)...)
}

func (r *Router) Table() *Table {
	return r.table.Load()
}

func (r *Router) Parser() *Parser {
	return r.parser
}

// Handle dispatches a text event. Unknown commands are a no-op. Handler
// failures and panics are reported to the conversation with a generic
// notice and never propagate.
func (r *Router) Handle(ctx context.Context, evt domain.ConversationEvent, ident domain.Identity) Outcome {
	inv, ok := r.parser.Parse(evt.Content())
	if !ok {
		return Outcome{}
	}
	cmd, ok := r.Table().Lookup(inv.Name)
	if !ok {
		return Outcome{}
	}

	name := cmd.Name()
	outcome := Outcome{Matched: true, Command: name}
	logger := r.logger.With("command", name, "conversation", evt.ConversationID, "author", ident.AuthorID)

	req := Request{Event: evt, Identity: ident, Command: cmd}
	for _, g := range r.guards {
		rej := g.Check(ctx, req)
		if rej == nil {
			continue
		}
		rejectionCount.WithLabelValues(rej.Guard).Inc()
		logger.Debug("command rejected", "guard", rej.Guard)
		if rej.Notice != "" {
			r.out.Reply(ctx, evt, rej.Notice).Log(logger)
		}
		outcome.Rejected = rej
		return outcome
	}

	if d, ok := cmd.(Described); ok {
		if emoji := d.Describe().Reaction; emoji != "" {
			r.out.Send(ctx, evt.ConversationID, domain.OutboundPayload{
				React: &domain.Reaction{Key: evt.Key, Emoji: emoji},
			}, domain.SendOptions{}).Log(logger)
		}
	}

	cmdCtx := &Context{
		ConversationID: evt.ConversationID,
		Event:          evt,
		Identity:       ident,
		Out:            r.out,
		Logger:         logger,
		Prefix:         inv.Prefix,
		Name:           inv.Name,
		Raw:            inv.Raw,
		Args:           inv.Args,
	}

	dispatchCount.WithLabelValues(name).Inc()
	if err := r.run(ctx, cmd, cmdCtx); err != nil {
		errorCount.WithLabelValues(name).Inc()
		logger.Error("command failed", "err", err)
		r.out.Reply(ctx, evt, NoticeCommandError).Log(logger)
		outcome.Err = err
	}
	return outcome
}

func (r *Router) run(ctx context.Context, cmd Command, c *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.Name(), rec)
		}
	}()
	return cmd.Handle(ctx, c)
}
