package dto

import (
	"github.com/gofiber/fiber/v2/utils"

	"best-stories-service/internal/app/service"
	"best-stories-service/internal/validator"
)

// ProblemContentType is the media type of ProblemResponse bodies.
const ProblemContentType = "application/problem+json"

// Problem types, one per status the API emits.
const (
	ProblemTypeBadRequest = "https://tools.ietf.org/html/rfc9110#section-15.5.1"
	ProblemTypeNotFound   = "https://tools.ietf.org/html/rfc9110#section-15.5.5"
	ProblemTypeInternal   = "https://tools.ietf.org/html/rfc9110#section-15.6.1"
)

// ProblemResponse is an RFC 9457 problem details body.
type ProblemResponse struct {
	Type   string                     `json:"type"`
	Title  string                     `json:"title"`
	Status int                        `json:"status"`
	Detail string                     `json:"detail,omitempty"`
	Errors validator.ValidationErrors `json:"errors,omitempty"`
}

// BadRequest builds a 400 problem.
func BadRequest(detail string, errs validator.ValidationErrors) ProblemResponse {
	return ProblemResponse{
		Type:   ProblemTypeBadRequest,
		Title:  "Bad Request",
		Status: 400,
		Detail: detail,
		Errors: errs,
	}
}

// NotFound builds a 404 problem.
func NotFound(detail string) ProblemResponse {
	return ProblemResponse{
		Type:   ProblemTypeNotFound,
		Title:  "Not Found",
		Status: 404,
		Detail: detail,
	}
}

// InternalError builds a problem for an unexpected fault.
func InternalError(status int, detail string) ProblemResponse {
	return ProblemResponse{
		Type:   ProblemTypeInternal,
		Title:  "An error occurred",
		Status: status,
		Detail: detail,
	}
}

// RefreshResultResponse represents the outcome of refreshing one count.
type RefreshResultResponse struct {
	Count    int    `json:"count"`
	Stories  int    `json:"stories"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// RefreshResponse represents the response of a manual refresh.
type RefreshResponse struct {
	Results []RefreshResultResponse `json:"results"`
	Summary RefreshSummary          `json:"summary"`
}

// RefreshSummary holds the totals of a refresh.
type RefreshSummary struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// FromRefreshResults converts service.RefreshResult slice to RefreshResponse.
func FromRefreshResults(results []service.RefreshResult) RefreshResponse {
	resp := RefreshResponse{
		Results: make([]RefreshResultResponse, len(results)),
	}

	for i, r := range results {
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
			resp.Summary.Failed++
		} else {
			resp.Summary.Refreshed++
		}

		resp.Results[i] = RefreshResultResponse{
			Count:    r.Count,
			Stories:  r.Stories,
			Duration: r.Duration.String(),
			Error:    errMsg,
		}
	}

	return resp
}

// StatusProblem builds a problem for an arbitrary status, used for errors
// raised by the framework itself (unknown route, wrong method, body too large).
func StatusProblem(status int, detail string) ProblemResponse {
	switch {
	case status == 400:
		return BadRequest(detail, nil)
	case status == 404:
		return NotFound(detail)
	case status >= 500:
		return InternalError(status, detail)
	}

	return ProblemResponse{
		Type:   "about:blank",
		Title:  utils.StatusMessage(status),
		Status: status,
		Detail: detail,
	}
}
