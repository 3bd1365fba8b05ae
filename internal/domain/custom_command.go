package domain

import (
	"context"
	"time"
)

// CustomCommand is a text reply command created from chat by a superuser.
type CustomCommand struct {
	Name          string
	Response      string
	Aliases       []string
	SuperUserOnly bool
	UpdatedAt     time.Time
}

type CustomCommandRepository interface {
	UpsertCustomCommand(ctx context.Context, cmd *CustomCommand) error
	GetCustomCommand(ctx context.Context, name string) (*CustomCommand, error)
	ListCustomCommands(ctx context.Context) ([]*CustomCommand, error)
	DeleteCustomCommand(ctx context.Context, name string) error
}
