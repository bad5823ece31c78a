package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// maxJSONBody caps JSON request bodies; resumes are the largest payload.
const maxJSONBody = 1 << 20

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type generateQuestionsRequest struct {
	ResumeText string `json:"resumeText" validate:"notblank,max=100000"`
	UserID     string `json:"userId" validate:"notblank,email"`
}

type answerRequest struct {
	Question string `json:"question" validate:"notblank"`
	Answer   string `json:"answer" validate:"max=20000"`
}

type submitAnswersRequest struct {
	InterviewID string          `json:"interviewId" validate:"notblank,uuid"`
	Answers     []answerRequest `json:"answers" validate:"max=50,dive"`
}

// fieldMessages overrides the generic message for specific field/tag pairs.
var fieldMessages = map[string]string{
	"resumeText.notblank":  "Resume text is required",
	"userId.notblank":      "User ID is required",
	"interviewId.notblank": "Interview ID is required",
	"question.notblank":    "Question is required",
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = vld.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return vld
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// Validation failures are returned as ErrInvalidArgument with per-field details.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return nil, domain.NewPublicError(domain.ErrInvalidArgument, "Request body too large")
		case errors.Is(err, io.EOF):
			return nil, domain.NewPublicError(domain.ErrInvalidArgument, "Request body is required")
		default:
			return nil, domain.NewPublicError(domain.ErrInvalidArgument, "Invalid JSON body")
		}
	}
	if err := getValidator().Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		details := make(map[string]string, len(ve))
		msg := ""
		for _, fe := range ve {
			key := strings.TrimPrefix(fe.Namespace(), typeNamespace(fe))
			details[key] = fe.Tag()
			if msg == "" {
				msg = fieldMessage(fe)
			}
		}
		return details, domain.NewPublicError(domain.ErrInvalidArgument, msg)
	}
	return nil, nil
}

func fieldMessage(fe validator.FieldError) string {
	if m, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "uuid":
		return fe.Field() + " must be a valid id"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// typeNamespace returns the leading "structName." of a field namespace.
func typeNamespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[:i+1]
	}
	return ""
}
