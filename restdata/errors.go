// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/diffeo/go-reviewapi/reviews"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrorCode is the numeric code of an API error.
type ErrorCode int

// The API error codes.
const (
	NoError             ErrorCode = 0
	ServerError         ErrorCode = 2
	DoesNotExist        ErrorCode = 100
	PermissionDenied    ErrorCode = 101
	InvalidAttribute    ErrorCode = 102
	NotLoggedIn         ErrorCode = 103
	LoginFailed         ErrorCode = 104
	InvalidFormData     ErrorCode = 105
	MissingAttribute    ErrorCode = 106
	InvalidChangeNumber ErrorCode = 203
	ChangeNumberInUse   ErrorCode = 204
	InvalidRepository   ErrorCode = 206
	RepoFileNotFound    ErrorCode = 207
	InvalidUser         ErrorCode = 208
	RepoNotImplemented  ErrorCode = 209
	RepoInfoError       ErrorCode = 210
	EmptyChangeset      ErrorCode = 212
)

type errorCodeInfo struct {
	name    string
	status  int
	message string
}

var errorCodes = map[ErrorCode]errorCodeInfo{
	NoError:             {"NO_ERROR", http.StatusOK, "If you see this, yell at the developers"},
	ServerError:         {"SERVER_ERROR", http.StatusInternalServerError, "An unexpected error occurred"},
	DoesNotExist:        {"DOES_NOT_EXIST", http.StatusNotFound, "Object does not exist"},
	PermissionDenied:    {"PERMISSION_DENIED", http.StatusForbidden, "You don't have permission for this"},
	InvalidAttribute:    {"INVALID_ATTRIBUTE", http.StatusBadRequest, "Invalid attribute"},
	NotLoggedIn:         {"NOT_LOGGED_IN", http.StatusUnauthorized, "You are not logged in"},
	LoginFailed:         {"LOGIN_FAILED", http.StatusUnauthorized, "The username or password was not correct"},
	InvalidFormData:     {"INVALID_FORM_DATA", http.StatusBadRequest, "One or more fields had errors"},
	MissingAttribute:    {"MISSING_ATTRIBUTE", http.StatusBadRequest, "Missing value for the attribute"},
	InvalidChangeNumber: {"INVALID_CHANGE_NUMBER", http.StatusNotFound, "The change number specified could not be found"},
	ChangeNumberInUse:   {"CHANGE_NUMBER_IN_USE", http.StatusConflict, "The change number specified has already been used"},
	InvalidRepository:   {"INVALID_REPOSITORY", http.StatusBadRequest, "The repository path specified is not in the list of known repositories"},
	RepoFileNotFound:    {"REPO_FILE_NOT_FOUND", http.StatusBadRequest, "The file was not found in the repository"},
	InvalidUser:         {"INVALID_USER", http.StatusBadRequest, "User does not exist"},
	RepoNotImplemented:  {"REPO_NOT_IMPLEMENTED", http.StatusNotImplemented, "The repository for this review request does not support this operation"},
	RepoInfoError:       {"REPO_INFO_ERROR", http.StatusInternalServerError, "There was an error fetching extended information for this repository"},
	EmptyChangeset:      {"EMPTY_CHANGESET", http.StatusBadRequest, "The change number specified represents an empty changeset"},
}

// HTTPStatus returns the HTTP status code normally sent with c.
// Unknown codes are server errors.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := errorCodes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message returns the default message for c.
func (c ErrorCode) Message() string {
	return errorCodes[c].message
}

func (c ErrorCode) String() string {
	if info, ok := errorCodes[c]; ok {
		return info.name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrMissingAttribute is returned when a request lacks a required
// parameter.
type ErrMissingAttribute struct {
	Name string
}

func (e ErrMissingAttribute) Error() string {
	return fmt.Sprintf("Missing value for the attribute %q", e.Name)
}

// ErrInvalidAttribute is returned when a parameter outside a form,
// such as a query parameter, has an unusable value.
type ErrInvalidAttribute struct {
	Name string
	Err  error
}

func (e ErrInvalidAttribute) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Invalid attribute %q", e.Name)
	}
	return fmt.Sprintf("Invalid attribute %q: %v", e.Name, e.Err)
}

// ErrRepoInfo wraps a repository tool's failure to describe a
// repository.
type ErrRepoInfo struct {
	Err error
}

func (e ErrRepoInfo) Error() string {
	return "Could not fetch repository information: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e ErrRepoInfo) Unwrap() error {
	return e.Err
}

// ErrorInfo is the "err" object of an error response.
type ErrorInfo struct {
	Code ErrorCode `codec:"code" mapstructure:"code"`
	Msg  string    `codec:"msg" mapstructure:"msg"`
}

// ErrorResponse is the body of every failed request.  Besides the
// code and message, some errors carry extra attributes naming the
// object at fault.
type ErrorResponse struct {
	Stat   string              `codec:"stat" mapstructure:"stat"`
	Err    ErrorInfo           `codec:"err" mapstructure:"err"`
	Fields map[string][]string `codec:"fields,omitempty" mapstructure:"fields"`

	ReviewRequestID int    `codec:"review_request_id,omitempty" mapstructure:"review_request_id"`
	Repository      string `codec:"repository,omitempty" mapstructure:"repository"`
	Username        string `codec:"username,omitempty" mapstructure:"username"`
	File            string `codec:"file,omitempty" mapstructure:"file"`
	Revision        string `codec:"revision,omitempty" mapstructure:"revision"`
	Attribute       string `codec:"attribute,omitempty" mapstructure:"attribute"`
	Stack           string `codec:"stack,omitempty" mapstructure:"stack"`

	// Status is the HTTP status to send.
	Status int `codec:"-" mapstructure:"-"`
}

func (e *ErrorResponse) setCode(code ErrorCode, msg string) {
	e.Stat = StatFail
	e.Err.Code = code
	e.Err.Msg = msg
	e.Status = code.HTTPStatus()
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known review errors to
// specific API error codes; anything else is a SERVER_ERROR.
func (e *ErrorResponse) FromError(err error) {
	var (
		notFound    reviews.ErrNotFound
		invalid     reviews.ErrInvalidInput
		inUse       reviews.ErrChangeNumberInUse
		badRepo     reviews.ErrInvalidRepository
		badUser     reviews.ErrInvalidUser
		noFile      reviews.ErrRepoFileNotFound
		missing     ErrMissingAttribute
		badAttr     ErrInvalidAttribute
		repoInfo    ErrRepoInfo
		badRequest  ErrBadRequest
		unsupported ErrUnsupportedMediaType
	)
	switch {
	case errors.Is(err, reviews.ErrPermissionDenied):
		e.setCode(PermissionDenied, err.Error())
	case errors.Is(err, reviews.ErrNotLoggedIn):
		e.setCode(NotLoggedIn, err.Error())
	case errors.Is(err, reviews.ErrLoginFailed):
		e.setCode(LoginFailed, err.Error())
	case errors.Is(err, reviews.ErrInvalidChangeNumber):
		e.setCode(InvalidChangeNumber, err.Error())
	case errors.Is(err, reviews.ErrEmptyChangeset):
		e.setCode(EmptyChangeset, err.Error())
	case errors.As(err, &repoInfo):
		e.setCode(RepoInfoError, err.Error())
	case errors.Is(err, reviews.ErrNotImplemented):
		e.setCode(RepoNotImplemented, err.Error())
	case errors.As(err, &notFound):
		e.setCode(DoesNotExist, err.Error())
	case errors.As(err, &invalid):
		e.setCode(InvalidFormData, err.Error())
		e.Fields = invalid.Fields
	case errors.As(err, &inUse):
		e.setCode(ChangeNumberInUse, err.Error())
		e.ReviewRequestID = inUse.ReviewRequestID
	case errors.As(err, &badRepo):
		e.setCode(InvalidRepository, err.Error())
		e.Repository = badRepo.Repository
	case errors.As(err, &badUser):
		e.setCode(InvalidUser, err.Error())
		e.Username = badUser.Username
	case errors.As(err, &noFile):
		e.setCode(RepoFileNotFound, err.Error())
		e.File = noFile.Path
		e.Revision = noFile.Revision
	case errors.As(err, &missing):
		e.setCode(MissingAttribute, err.Error())
		e.Attribute = missing.Name
	case errors.As(err, &badAttr):
		e.setCode(InvalidAttribute, err.Error())
		e.Attribute = badAttr.Name
	case errors.As(err, &badRequest), errors.As(err, &unsupported):
		e.setCode(InvalidFormData, err.Error())
	default:
		e.setCode(ServerError, err.Error())
	}
	if status, ok := err.(ErrorStatus); ok {
		e.Status = status.HTTPStatus()
	}
}

// ToError converts e back to a review error, if that is possible.
// If not, returns a plain error with the message text.
func (e *ErrorResponse) ToError() error {
	switch e.Err.Code {
	case PermissionDenied:
		return reviews.ErrPermissionDenied
	case NotLoggedIn:
		return reviews.ErrNotLoggedIn
	case LoginFailed:
		return reviews.ErrLoginFailed
	case InvalidChangeNumber:
		return reviews.ErrInvalidChangeNumber
	case EmptyChangeset:
		return reviews.ErrEmptyChangeset
	case RepoNotImplemented:
		return reviews.ErrNotImplemented
	case RepoInfoError:
		return ErrRepoInfo{Err: errors.New(e.Err.Msg)}
	case DoesNotExist:
		return reviews.ErrNotFound{}
	case InvalidFormData:
		if len(e.Fields) > 0 {
			return reviews.ErrInvalidInput{Fields: e.Fields}
		}
	case ChangeNumberInUse:
		return reviews.ErrChangeNumberInUse{ReviewRequestID: e.ReviewRequestID}
	case InvalidRepository:
		return reviews.ErrInvalidRepository{Repository: e.Repository}
	case InvalidUser:
		return reviews.ErrInvalidUser{Username: e.Username}
	case RepoFileNotFound:
		return reviews.ErrRepoFileNotFound{Path: e.File, Revision: e.Revision}
	case MissingAttribute:
		return ErrMissingAttribute{Name: e.Attribute}
	case InvalidAttribute:
		return ErrInvalidAttribute{Name: e.Attribute, Err: errors.New(e.Err.Msg)}
	}
	return errors.New(e.Err.Msg)
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//	defer func() {
//	    if obj := recover(); obj != nil {
//	        resp := restdata.ErrorResponse{}
//	        resp.FromPanic(obj)
//	        // write resp out as makes sense
//	    }
//	}()
func (e *ErrorResponse) FromPanic(obj interface{}) {
	if recoveredError, isError := obj.(error); isError {
		e.setCode(ServerError, recoveredError.Error())
	} else {
		e.setCode(ServerError, fmt.Sprintf("%+v", obj))
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}
