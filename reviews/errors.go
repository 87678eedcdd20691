// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package reviews

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrPermissionDenied is returned when the acting user may not read,
// modify, or delete an object.  Any mutation of a public review or
// its comments produces this error.
var ErrPermissionDenied = errors.New("You don't have permission for this")

// ErrNotLoggedIn is returned when an anonymous user attempts an
// operation that requires a login.
var ErrNotLoggedIn = errors.New("You are not logged in")

// ErrLoginFailed is returned when supplied credentials do not match
// any account.
var ErrLoginFailed = errors.New("The username or password was not correct")

// ErrInvalidChangeNumber is returned when a change number does not
// exist in its repository.
var ErrInvalidChangeNumber = errors.New("The change number specified could not be found")

// ErrEmptyChangeset is returned when a change number names a change
// with no files in it.
var ErrEmptyChangeset = errors.New("The change number specified represents an empty changeset")

// ErrNotImplemented is returned by a repository tool that does not
// support an operation.
var ErrNotImplemented = errors.New("The repository type does not support this operation")

// ErrDuplicate is returned by a Store when an insert would violate a
// uniqueness rule.  The workflow layer never surfaces it directly.
var ErrDuplicate = errors.New("Object already exists")

// ErrNotFound is returned when an object, or one of the objects on
// the path to it, does not exist.
type ErrNotFound struct {
	Kind Kind
	Key  interface{}
}

func (err ErrNotFound) Error() string {
	if err.Key == nil {
		return "Object does not exist"
	}
	return fmt.Sprintf("No such %v %v", err.Kind, err.Key)
}

// ErrInvalidInput is returned when one or more fields of a request
// failed validation.  Fields maps each failing field to its problems.
type ErrInvalidInput struct {
	Fields map[string][]string
}

// InvalidField builds an ErrInvalidInput with a single message.
func InvalidField(field, message string) ErrInvalidInput {
	return ErrInvalidInput{Fields: map[string][]string{field: {message}}}
}

func (err ErrInvalidInput) Error() string {
	names := make([]string, 0, len(err.Fields))
	for name := range err.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "One or more fields had errors: " + strings.Join(names, ", ")
}

// Add records a problem with a field.
func (err *ErrInvalidInput) Add(field, message string) {
	if err.Fields == nil {
		err.Fields = make(map[string][]string)
	}
	err.Fields[field] = append(err.Fields[field], message)
}

// Empty returns true if no field has recorded a problem.
func (err ErrInvalidInput) Empty() bool {
	return len(err.Fields) == 0
}

// ErrChangeNumberInUse is returned when creating a review request for
// a change number that another review request already uses.
type ErrChangeNumberInUse struct {
	ReviewRequestID int
}

func (err ErrChangeNumberInUse) Error() string {
	return fmt.Sprintf("The change number specified has already been used (review request %v)", err.ReviewRequestID)
}

// ErrInvalidRepository is returned when a repository named by id or
// path does not exist.
type ErrInvalidRepository struct {
	Repository string
}

func (err ErrInvalidRepository) Error() string {
	return fmt.Sprintf("The repository path specified is not in the list of known repositories: %v", err.Repository)
}

// ErrInvalidUser is returned when a named user does not exist and
// cannot be created.
type ErrInvalidUser struct {
	Username string
}

func (err ErrInvalidUser) Error() string {
	return fmt.Sprintf("The user %v does not exist", err.Username)
}

// ErrRepoFileNotFound is returned when a diff refers to a file that
// does not exist in the repository.
type ErrRepoFileNotFound struct {
	Path     string
	Revision string
}

func (err ErrRepoFileNotFound) Error() string {
	return fmt.Sprintf("The file %v (revision %v) was not found in the repository", err.Path, err.Revision)
}

// ErrUpstream wraps an unexpected failure from an outside service,
// such as a repository host.
type ErrUpstream struct {
	Err error
}

func (err ErrUpstream) Error() string {
	return "Upstream failure: " + err.Err.Error()
}

// Unwrap returns the underlying error.
func (err ErrUpstream) Unwrap() error {
	return err.Err
}

// IsNotFound returns true if err is, or wraps, an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
