package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"guardBot/internal/domain"
)

const (
	CommandSourceBuiltin = "builtin"
	CommandSourceCustom  = "custom"
)

var ErrServiceUnavailable = errors.New("commands service unavailable")

type CommandDTO struct {
	Name        string   `json:"name"`
	Response    string   `json:"response,omitempty"`
	Aliases     []string `json:"aliases"`
	Category    string   `json:"category,omitempty"`
	Access      Access   `json:"access"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	Source      string   `json:"source"`
	Editable    bool     `json:"editable"`
	Description string   `json:"description,omitempty"`
	Usage       string   `json:"usage,omitempty"`
}

type CommandMutationDTO struct {
	Name          string    `json:"name"`
	Response      *string   `json:"response,omitempty"`
	Aliases       *[]string `json:"aliases,omitempty"`
	SuperUserOnly *bool     `json:"superuser_only,omitempty"`
}

// Service backs the admin API.
type Service struct {
	builtins *Builtins
	manager  *CustomCommandManager
}

func NewService(builtins *Builtins, manager *CustomCommandManager) *Service {
	return &Service{builtins: builtins, manager: manager}
}

func (s *Service) List(ctx context.Context) ([]CommandDTO, error) {
	_ = ctx
	var out []CommandDTO
	if s == nil {
		return out, nil
	}
	if s.builtins != nil {
		out = builtinCommandDTOs(s.builtins.Catalog())
	}
	for _, cmd := range s.manager.List() {
		out = append(out, commandDTOFromDomain(cmd))
	}
	return out, nil
}

func (s *Service) Upsert(ctx context.Context, input CommandMutationDTO) (CommandDTO, error) {
	if s == nil || s.manager == nil {
		return CommandDTO{}, ErrServiceUnavailable
	}
	result, _, err := s.manager.Upsert(ctx, convertMutationToInput(input))
	if err != nil {
		return CommandDTO{}, err
	}
	return commandDTOFromDomain(result), nil
}

func (s *Service) Delete(ctx context.Context, name string) (bool, error) {
	if s == nil || s.manager == nil {
		return false, ErrServiceUnavailable
	}
	return s.manager.Delete(ctx, name)
}

func commandDTOFromDomain(cmd *domain.CustomCommand) CommandDTO {
	if cmd == nil {
		return CommandDTO{}
	}
	updated := ""
	if !cmd.UpdatedAt.IsZero() {
		updated = cmd.UpdatedAt.UTC().Format(time.RFC3339)
	}
	access := AccessEveryone
	if cmd.SuperUserOnly {
		access = AccessSuperUser
	}
	return CommandDTO{
		Name:      cmd.Name,
		Response:  cmd.Response,
		Aliases:   append([]string{}, cmd.Aliases...),
		Category:  "Custom",
		Access:    access,
		UpdatedAt: updated,
		Source:    CommandSourceCustom,
		Editable:  true,
	}
}

func builtinCommandDTOs(catalog []Descriptor) []CommandDTO {
	out := make([]CommandDTO, 0, len(catalog))
	for _, item := range catalog {
		out = append(out, CommandDTO{
			Name:        item.Name,
			Aliases:     append([]string{}, item.Aliases...),
			Category:    item.Category,
			Access:      item.Access,
			Source:      CommandSourceBuiltin,
			Editable:    false,
			Description: item.Description,
			Usage:       item.Usage,
		})
	}
	return out
}

func convertMutationToInput(payload CommandMutationDTO) UpdateCustomCommandInput {
	input := UpdateCustomCommandInput{
		Name:          payload.Name,
		SuperUserOnly: payload.SuperUserOnly,
	}
	if payload.Response != nil {
		trimmed := strings.TrimSpace(*payload.Response)
		input.Response = &trimmed
	}
	if payload.Aliases != nil {
		input.HasAliases = true
		input.Aliases = append([]string(nil), *payload.Aliases...)
	}
	return input
}
