package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is raised when the acting user is not the approver
	// resolved for the action being decided.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("record not found")

	// ErrInvalidState covers deciding an already decided action, operating on
	// a terminal instance, and starting a workflow from a template with no steps.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned to the loser of two concurrent mutations on the
	// same approval instance.
	ErrConflict = errors.New("concurrent modification conflict")

	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrTemplateIsReferenced = errors.New("workflow template is referenced")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}
