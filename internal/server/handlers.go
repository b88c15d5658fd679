package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/resume"
)

const (
	maxJSONBody = 32 << 20

	reportFailedMessage = "Failed to generate report. Please try again."
	resumeWarning       = "could not read the resume, continuing without it"
)

type createSessionRequest struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	Role   string `json:"role"`
	Level  string `json:"level"`
}

type answerRequest struct {
	Text     string `json:"text"`
	Audio    []byte `json:"audio"`
	MIMEType string `json:"mime_type"`
}

type sessionView struct {
	ID           string            `json:"id"`
	Phase        interview.Phase   `json:"phase"`
	Model        string            `json:"model"`
	Models       []string          `json:"models,omitempty"`
	Profile      interview.Profile `json:"profile"`
	ResumeLoaded bool              `json:"resume_loaded"`
	Messages     []interview.Turn  `json:"messages"`
	CanEnd       bool              `json:"can_end"`
}

type answerView struct {
	sessionView
	Skipped string `json:"skipped,omitempty"`
}

type resumeView struct {
	ResumeLoaded bool   `json:"resume_loaded"`
	Characters   int    `json:"characters"`
	Warning      string `json:"warning,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.APIKey == "" {
		Error(w, http.StatusBadRequest, "api key is required")
		return
	}

	level, err := interview.ParseLevel(req.Level)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	backend, err := s.connector.Connect(r.Context(), ConnectRequest{APIKey: req.APIKey, Model: req.Model})
	if err != nil {
		s.logger.Warn("session rejected", zap.Error(err), zap.String("kind", ai.KindOf(err).String()))
		Error(w, connectStatus(err), fmt.Sprintf("could not connect to the model provider: %v", err))
		return
	}

	controller, err := interview.NewController(interview.Deps{
		Chat:        backend.Chat,
		Transcriber: backend.Transcriber,
		Evaluator:   backend.Evaluator,
		Logger:      s.logger.With(zap.String(logger.FieldModel, backend.Model)),
	})
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	e := &entry{
		controller: controller,
		profile:    interview.Profile{Role: strings.TrimSpace(req.Role), Level: level},
		model:      backend.Model,
		models:     backend.Models,
	}
	id := s.registry.add(e)

	logger.WithSession(s.logger, id).Info("session created",
		zap.String(logger.FieldModel, backend.Model),
		zap.Int("sessions", s.registry.Len()),
	)

	JSON(w, http.StatusCreated, view(e))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		JSON(w, http.StatusOK, view(e))
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.remove(id) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	logger.WithSession(s.logger, id).Info("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadResume(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		if e.session.Phase() != interview.PhaseStart {
			Error(w, http.StatusConflict, "resume can only be changed before the interview starts")
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, resume.MaxSize+1))
		if err != nil {
			Error(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		text, err := resume.ExtractBytes(data)
		if err != nil {
			// The interview proceeds without resume context.
			logger.WithSession(s.logger, e.session.ID()).Warn("resume extraction failed", zap.Error(err))
			e.profile.Resume = ""
			JSON(w, http.StatusOK, resumeView{Warning: resumeWarning})
			return
		}

		e.profile.Resume = text
		JSON(w, http.StatusOK, resumeView{ResumeLoaded: true, Characters: len([]rune(text))})
	})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		if err := e.controller.Start(r.Context(), e.session, e.profile); err != nil {
			Error(w, actionStatus(err), err.Error())
			return
		}
		JSON(w, http.StatusOK, view(e))
	})
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.withEntry(w, r, func(e *entry) {
		result, err := e.controller.Submit(r.Context(), e.session, interview.Input{
			Text:      req.Text,
			Audio:     req.Audio,
			AudioMIME: req.MIMEType,
		})
		if err != nil {
			Error(w, actionStatus(err), err.Error())
			return
		}

		out := answerView{sessionView: view(e)}
		if result.Skipped != interview.SkipNone {
			out.Skipped = result.Skipped.String()
		}
		JSON(w, http.StatusOK, out)
	})
}

func (s *Server) endInterview(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		if err := e.controller.End(e.session); err != nil {
			Error(w, actionStatus(err), err.Error())
			return
		}
		JSON(w, http.StatusOK, view(e))
	})
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		evaluation, err := e.controller.Report(r.Context(), e.session)
		if err != nil {
			if status := actionStatus(err); status != http.StatusBadGateway {
				Error(w, status, err.Error())
				return
			}
			Error(w, http.StatusBadGateway, reportFailedMessage)
			return
		}
		JSON(w, http.StatusOK, evaluation)
	})
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	s.withEntry(w, r, func(e *entry) {
		e.controller.Reset(e.session)
		JSON(w, http.StatusOK, view(e))
	})
}

// withEntry runs fn with the session locked. Requests for one session are
// handled one at a time.
func (s *Server) withEntry(w http.ResponseWriter, r *http.Request, fn func(e *entry)) {
	e, ok := s.registry.get(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e)
}

func view(e *entry) sessionView {
	return sessionView{
		ID:           e.session.ID(),
		Phase:        e.session.Phase(),
		Model:        e.model,
		Models:       e.models,
		Profile:      e.profile,
		ResumeLoaded: e.profile.Resume != "",
		Messages:     e.session.Messages(),
		CanEnd:       e.session.CanEnd(),
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func connectStatus(err error) int {
	switch {
	case errors.Is(err, ai.ErrModelUnavailable):
		return http.StatusBadRequest
	case ai.IsFatal(err):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, interview.ErrIllegalTransition), errors.Is(err, interview.ErrNotEnoughTurns):
		return http.StatusConflict
	case errors.Is(err, interview.ErrUnknownLevel):
		return http.StatusBadRequest
	case ai.IsFatal(err):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
