package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"guardBot/internal/usecase/commands"
)

type CommandService interface {
	List(ctx context.Context) ([]commands.CommandDTO, error)
	Upsert(ctx context.Context, input commands.CommandMutationDTO) (commands.CommandDTO, error)
	Delete(ctx context.Context, name string) (bool, error)
}

type apiHandlers struct {
	commands CommandService
	logger   *slog.Logger
}

func (a *apiHandlers) register(mux *http.ServeMux) {
	if a == nil || a.commands == nil {
		return
	}
	mux.HandleFunc("GET /api/commands", a.handleList)
	mux.HandleFunc("POST /api/commands", a.handleUpsert)
	mux.HandleFunc("DELETE /api/commands/{name}", a.handleDelete)
}

type commandListResponse struct {
	Commands []commands.CommandDTO `json:"commands"`
}

func (a *apiHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := a.commands.List(r.Context())
	if err != nil {
		a.logger.Error("list commands", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load commands")
		return
	}
	if list == nil {
		list = []commands.CommandDTO{}
	}
	writeJSON(w, http.StatusOK, commandListResponse{Commands: list})
}

func (a *apiHandlers) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req commands.CommandMutationDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	cmd, err := a.commands.Upsert(r.Context(), req)
	if err != nil {
		if errors.Is(err, commands.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (a *apiHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	deleted, err := a.commands.Delete(r.Context(), name)
	if err != nil {
		if errors.Is(err, commands.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		a.logger.Error("delete command", "name", name, "err", err)
		writeError(w, http.StatusInternalServerError, "could not delete command")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "command not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setCORSHeaders echoes an already vetted origin. Same-origin and
// non-browser requests carry none and get no CORS headers.
func setCORSHeaders(w http.ResponseWriter, origin string) {
	w.Header().Add("Vary", "Origin")
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
