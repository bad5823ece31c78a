package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// UserUsecase is the account flow the handlers depend on.
type UserUsecase interface {
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
}

// InterviewUsecase is the interview flow the handlers depend on.
type InterviewUsecase interface {
	GenerateQuestions(ctx context.Context, resumeText, userEmail string) (string, []string, error)
	SubmitAnswers(ctx context.Context, interviewID string, answers []domain.AnswerPair) (domain.FeedbackReport, error)
	Get(ctx context.Context, interviewID string) (domain.Interview, error)
	ListByUser(ctx context.Context, userEmail string) ([]domain.Interview, error)
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Users      UserUsecase
	Interviews InterviewUsecase
	Extractor  domain.TextExtractor
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, users UserUsecase, interviews InterviewUsecase, extractor domain.TextExtractor, dbCheck, redisCheck, tikaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Users: users, Interviews: interviews, Extractor: extractor, DBCheck: dbCheck, RedisCheck: redisCheck, TikaCheck: tikaCheck}
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

type questionResponse struct {
	InterviewID string   `json:"interviewId"`
	Questions   []string `json:"questions"`
}

type interviewResponse struct {
	ID                string                 `json:"id"`
	UserID            int64                  `json:"userId"`
	ResumeText        string                 `json:"resumeText"`
	Questions         []string               `json:"questions"`
	Answers           []domain.AnswerPair    `json:"answers"`
	OverallScore      *int                   `json:"overallScore"`
	TechnicalAccuracy string                 `json:"technicalAccuracy,omitempty"`
	Feedback          *domain.FeedbackReport `json:"feedback,omitempty"`
	Status            string                 `json:"status"`
	CreatedAt         time.Time              `json:"createdAt"`
	CompletedAt       *time.Time             `json:"completedAt,omitempty"`
}

func toInterviewResponse(iv domain.Interview) interviewResponse {
	status := "pending"
	if iv.Completed() {
		status = "completed"
	}
	questions := iv.Questions
	if questions == nil {
		questions = []string{}
	}
	answers := iv.Answers
	if answers == nil {
		answers = []domain.AnswerPair{}
	}
	return interviewResponse{
		ID:                iv.ID,
		UserID:            iv.UserID,
		ResumeText:        iv.ResumeText,
		Questions:         questions,
		Answers:           answers,
		OverallScore:      iv.OverallScore,
		TechnicalAccuracy: iv.TechnicalAccuracy,
		Feedback:          iv.Report,
		Status:            status,
		CreatedAt:         iv.CreatedAt,
		CompletedAt:       iv.CompletedAt,
	}
}

// RegisterHandler creates a user account.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		LoggerFrom(r).Info("registering user", "email", req.Email)
		u, err := s.Users.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

// LoginHandler checks credentials and returns the user.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		LoggerFrom(r).Info("user login attempt", "email", req.Email)
		u, err := s.Users.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// GenerateQuestionsHandler creates an interview from resume text.
func (s *Server) GenerateQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateQuestionsRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		LoggerFrom(r).Info("generating questions", "user", req.UserID)
		resume := textx.NormalizeResume(req.ResumeText)
		id, questions, err := s.Interviews.GenerateQuestions(r.Context(), resume, req.UserID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, questionResponse{InterviewID: id, Questions: questions})
	}
}

// SubmitAnswersHandler scores the answers of an interview.
func (s *Server) SubmitAnswersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitAnswersRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		LoggerFrom(r).Info("submitting answers", "interview_id", req.InterviewID, "answers", len(req.Answers))
		answers := make([]domain.AnswerPair, 0, len(req.Answers))
		for _, a := range req.Answers {
			answers = append(answers, domain.AnswerPair{Question: a.Question, Answer: a.Answer})
		}
		report, err := s.Interviews.SubmitAnswers(r.Context(), req.InterviewID, answers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// InterviewHandler returns one interview.
func (s *Server) InterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, err := s.Interviews.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toInterviewResponse(iv))
	}
}

// UserInterviewsHandler lists a user's interviews, newest first.
func (s *Server) UserInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Interviews.ListByUser(r.Context(), chi.URLParam(r, "email"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]interviewResponse, 0, len(list))
		for _, iv := range list {
			out = append(out, toInterviewResponse(iv))
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": out})
	}
}

// allowedExt enforces an allowlist for uploads: .txt, .pdf, .docx
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

func allowedMIMEFor(m string, filename string) bool {
	m = strings.ToLower(m)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		// some detectors misclassify rich text, so accept any text/*
		return strings.HasPrefix(m, "text/")
	case ".pdf":
		return m == "application/pdf"
	case ".docx":
		// docx is a zip container; older detectors stop at application/zip
		return m == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" || m == "application/zip"
	}
	return false
}

// extractUploadedText returns plain text for an uploaded resume. Text files
// are normalised locally; pdf and docx go through the extractor.
func extractUploadedText(ctx context.Context, extractor domain.TextExtractor, filename string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		return textx.NormalizeResume(string(data)), nil
	}
	if extractor == nil {
		return "", domain.NewPublicError(domain.ErrInvalidArgument, "Only .txt resumes are supported on this server")
	}
	text, err := extractor.ExtractBytes(ctx, filename, data)
	if err != nil {
		return "", err
	}
	return textx.NormalizeResume(text), nil
}

// ResumeHandler extracts text from an uploaded resume file.
func (s *Server) ResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "Content-Type must be multipart/form-data"), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		if maxBytes <= 0 {
			maxBytes = 5 * 1024 * 1024
		}
		// leave room for multipart framing around the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64*1024)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "INVALID_ARGUMENT",
					Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "Invalid multipart form"), nil)
			return
		}
		f, hdr, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "resume file required"), map[string]string{"field": "resume"})
			return
		}
		defer func() { _ = f.Close() }()

		if !allowedExt(hdr.Filename) {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "Unsupported file type; use .txt, .pdf or .docx"), map[string]string{"field": "resume"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		if err != nil {
			writeError(w, r, fmt.Errorf("op=resume.read: %w", err), nil)
			return
		}
		if int64(len(data)) > maxBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code:    "INVALID_ARGUMENT",
				Message: "payload too large",
				Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
			}})
			return
		}
		if len(data) == 0 {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "resume file is empty"), map[string]string{"field": "resume"})
			return
		}
		mt := mimetype.Detect(data)
		if !allowedMIMEFor(mt.String(), hdr.Filename) {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "File content does not match its extension"), map[string]string{"detected": mt.String()})
			return
		}

		text, err := extractUploadedText(r.Context(), s.Extractor, hdr.Filename, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if text == "" {
			writeError(w, r, domain.NewPublicError(domain.ErrInvalidArgument, "No text could be extracted from the resume"), nil)
			return
		}
		LoggerFrom(r).Info("resume extracted", "file", filepath.Base(hdr.Filename), "bytes", len(data), "mime", mt.String())
		writeJSON(w, http.StatusOK, map[string]string{"resumeText": text})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler returns a readiness handler that probes DB, Redis and Tika.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	probes := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"db", s.DBCheck},
		{"redis", s.RedisCheck},
		{"tika", s.TikaCheck},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
