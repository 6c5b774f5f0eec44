// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"workflow-submit/internal/orchestrator"
	"workflow-submit/internal/parameter"

	"github.com/go-chi/chi/v5"
)

type openRequest struct {
	Name string `json:"name"`
}

type templateRequest struct {
	UID string `json:"uid"`
}

type parameterRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) openDialog(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	taskID := chi.URLParam(r, "taskID")
	d, _ := s.dialogFor(taskID, true)
	d.markOpen()
	if err := d.orch.Open(r.Context(), orchestrator.Task{ID: taskID, Name: req.Name}); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.response())
}

func (s *Server) getDialog(w http.ResponseWriter, r *http.Request) {
	d, ok := s.existing(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.response())
}

func (s *Server) cancelDialog(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(d *dialog) error {
		return d.orch.Cancel()
	})
}

func (s *Server) selectTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	s.act(w, r, func(d *dialog) error {
		return d.orch.SelectTemplate(r.Context(), req.UID)
	})
}

func (s *Server) setParameter(w http.ResponseWriter, r *http.Request) {
	var req parameterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	s.act(w, r, func(d *dialog) error {
		return d.orch.SetParameter(req.Name, req.Value, "http")
	})
}

// Submissions outlive the request so a dropped connection does not abort a
// dispatch that may already have been accepted.
func (s *Server) requestSubmit(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(d *dialog) error {
		return d.orch.RequestSubmit(context.WithoutCancel(r.Context()))
	})
}

func (s *Server) confirmPrompt(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(d *dialog) error {
		return d.orch.ConfirmPrompt(context.WithoutCancel(r.Context()))
	})
}

func (s *Server) cancelPrompt(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(d *dialog) error {
		return d.orch.CancelPrompt()
	})
}

func (s *Server) existing(w http.ResponseWriter, r *http.Request) (*dialog, bool) {
	taskID := chi.URLParam(r, "taskID")
	d, ok := s.dialogFor(taskID, false)
	if !ok {
		writeError(w, http.StatusNotFound, "DIALOG_NOT_FOUND", "no dialog open for task "+taskID)
	}
	return d, ok
}

// act runs fn against an existing dialog and answers with its snapshot.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(d *dialog) error) {
	d, ok := s.existing(w, r)
	if !ok {
		return
	}
	if err := fn(d); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.response())
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrTransitionRejected):
		writeError(w, http.StatusConflict, "TRANSITION_REJECTED", err.Error())
	case errors.Is(err, orchestrator.ErrNoPrompt):
		writeError(w, http.StatusConflict, "NO_PROMPT", err.Error())
	case errors.Is(err, orchestrator.ErrUnknownTemplate):
		writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_TEMPLATE", err.Error())
	case errors.Is(err, orchestrator.ErrUnknownParameter):
		writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_PARAMETER", err.Error())
	case errors.Is(err, parameter.ErrNotAnOption):
		writeError(w, http.StatusUnprocessableEntity, "NOT_AN_OPTION", err.Error())
	case errors.Is(err, orchestrator.ErrMissingTask):
		writeError(w, http.StatusBadRequest, "MISSING_TASK", err.Error())
	default:
		s.logger.Error("dialog call failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
