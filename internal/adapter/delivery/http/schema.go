package http

import (
	"strconv"
	"time"

	"github.com/Vishnukv66991/pyshort/internal/entity"
	"github.com/Vishnukv66991/pyshort/internal/usecase"
	"github.com/go-playground/validator/v10"
)

const kindInvalidRequest = "invalid_request"

// shortenRequest is the JSON body of POST /api/shorten.
type shortenRequest struct {
	LongURL    string `json:"long_url" validate:"required,max=8192"`
	CustomCode string `json:"custom_code" validate:"max=32"`
	ExpiresIn  *int   `json:"expires_in"`
}

func (req shortenRequest) toInput() usecase.ShortenInput {
	in := usecase.ShortenInput{
		LongURL:    req.LongURL,
		CustomCode: req.CustomCode,
	}
	if req.ExpiresIn != nil {
		in.ExpiresIn = strconv.Itoa(*req.ExpiresIn)
	}
	return in
}

type shortenResponse struct {
	Code      string  `json:"code"`
	ShortURL  string  `json:"short_url"`
	LongURL   string  `json:"long_url"`
	ExpiresAt *string `json:"expires_at"`
}

func toShortenResponse(link *entity.Link, baseURL string) shortenResponse {
	return shortenResponse{
		Code:      link.ShortCode,
		ShortURL:  baseURL + link.ShortCode,
		LongURL:   link.LongURL,
		ExpiresAt: isoformatPtr(link.ExpiresAt),
	}
}

// expandResponse is the body of GET /api/expand/{code}. Unset timestamps are null.
type expandResponse struct {
	Code         string  `json:"code"`
	LongURL      string  `json:"long_url"`
	Hits         int64   `json:"hits"`
	CreatedAt    *string `json:"created_at"`
	LastAccessed *string `json:"last_accessed"`
	ExpiresAt    *string `json:"expires_at"`
	Expired      bool    `json:"expired"`
}

func toExpandResponse(view *entity.LinkView) expandResponse {
	return expandResponse{
		Code:         view.ShortCode,
		LongURL:      view.LongURL,
		Hits:         view.Hits,
		CreatedAt:    isoformatPtr(&view.CreatedAt),
		LastAccessed: isoformatPtr(view.LastAccessed),
		ExpiresAt:    isoformatPtr(view.ExpiresAt),
		Expired:      view.Expired,
	}
}

// isoformat renders t in UTC as 2006-01-02T15:04:05[.ffffff]+00:00,
// with the fraction only when there are microseconds.
func isoformat(t time.Time) string {
	t = t.UTC().Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

func isoformatPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := isoformat(*t)
	return &s
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Error:   kindInvalidRequest,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Error:   kindInvalidRequest,
		Message: "invalid request body",
	}

	notFoundResponse = errorResponse{
		Error: entity.KindNotFound,
	}

	serverErrorResponse = errorResponse{
		Error:   "server_error",
		Message: "server error occurred",
	}
)

// Messages shown to users for each error kind.
var kindMessages = map[string]string{
	entity.KindInvalidURL:        "Please enter a valid URL (must start with http:// or https://).",
	entity.KindInvalidExpiry:     "Expiry must be a positive integer number of days.",
	entity.KindInvalidCustomCode: "Custom code must be 3-32 chars: letters, numbers, _ or - only, and not a reserved word.",
	entity.KindCodeTaken:         "That short code is already taken. Please choose another.",
}

func kindErrorResponse(kind string) errorResponse {
	return errorResponse{
		Error:   kind,
		Message: kindMessages[kind],
	}
}

// fieldKinds maps request fields to the error kind reported when they fail validation.
var fieldKinds = map[string]string{
	"long_url":    entity.KindInvalidURL,
	"custom_code": entity.KindInvalidCustomCode,
}

// validationErrorResponse reports the first failing field as its error kind.
func validationErrorResponse(err error) errorResponse {
	errs, ok := err.(validator.ValidationErrors)
	if ok && len(errs) > 0 {
		if kind, ok := fieldKinds[errs[0].Field()]; ok {
			return kindErrorResponse(kind)
		}
	}

	return errorResponse{
		Error:   kindInvalidRequest,
		Message: "validation error",
	}
}
