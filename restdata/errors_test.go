// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/stretchr/testify/assert"
)

func TestErrorRoundTrip(t *testing.T) {
	tests := []struct {
		err    error
		code   ErrorCode
		status int
	}{
		{reviews.ErrPermissionDenied, PermissionDenied, http.StatusForbidden},
		{reviews.ErrNotLoggedIn, NotLoggedIn, http.StatusUnauthorized},
		{reviews.ErrLoginFailed, LoginFailed, http.StatusUnauthorized},
		{reviews.ErrInvalidChangeNumber, InvalidChangeNumber, http.StatusNotFound},
		{reviews.ErrEmptyChangeset, EmptyChangeset, http.StatusBadRequest},
		{reviews.ErrNotImplemented, RepoNotImplemented, http.StatusNotImplemented},
		{reviews.ErrInvalidInput{Fields: map[string][]string{"summary": {"required"}}}, InvalidFormData, http.StatusBadRequest},
		{reviews.ErrChangeNumberInUse{ReviewRequestID: 12}, ChangeNumberInUse, http.StatusConflict},
		{reviews.ErrInvalidRepository{Repository: "git://x"}, InvalidRepository, http.StatusBadRequest},
		{reviews.ErrInvalidUser{Username: "zed"}, InvalidUser, http.StatusBadRequest},
		{reviews.ErrRepoFileNotFound{Path: "a.c", Revision: "abc"}, RepoFileNotFound, http.StatusBadRequest},
		{ErrMissingAttribute{Name: "path"}, MissingAttribute, http.StatusBadRequest},
	}
	for _, test := range tests {
		var resp ErrorResponse
		resp.FromError(test.err)
		assert.Equal(t, StatFail, resp.Stat)
		assert.Equal(t, test.code, resp.Err.Code, "%v", test.err)
		assert.Equal(t, test.status, resp.Status, "%v", test.err)
		assert.Equal(t, test.err, resp.ToError())
	}
}

func TestErrorWrapped(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(fmt.Errorf("loading review: %w", reviews.ErrNotFound{Kind: reviews.KindReview, Key: 3}))
	assert.Equal(t, DoesNotExist, resp.Err.Code)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.True(t, reviews.IsNotFound(resp.ToError()))
}

func TestErrorRepoInfo(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(ErrRepoInfo{Err: reviews.ErrUpstream{Err: errors.New("timeout")}})
	assert.Equal(t, RepoInfoError, resp.Err.Code)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestErrorKeepsStatus(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(ErrUnsupportedMediaType{Type: "image/png"})
	assert.Equal(t, InvalidFormData, resp.Err.Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Status)
}

func TestErrorUnknown(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(errors.New("disk on fire"))
	assert.Equal(t, ServerError, resp.Err.Code)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.EqualError(t, resp.ToError(), "disk on fire")
}

func TestErrorFromPanic(t *testing.T) {
	var resp ErrorResponse
	resp.FromPanic("oops")
	assert.Equal(t, ServerError, resp.Err.Code)
	assert.Equal(t, "oops", resp.Err.Msg)
	assert.NotEmpty(t, resp.Stack)
}

func TestErrorCodeNames(t *testing.T) {
	assert.Equal(t, "DOES_NOT_EXIST", DoesNotExist.String())
	assert.Equal(t, "ErrorCode(999)", ErrorCode(999).String())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode(999).HTTPStatus())
}
