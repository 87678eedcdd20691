// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package auth identifies the user behind an HTTP request.
//
// Middleware checks HTTP Basic credentials against bcrypt password
// hashes in a reviews.Store and records the outcome in the request
// context, where handlers retrieve it with Principal.  A request
// without credentials is anonymous; a request with wrong credentials
// is not rejected here, but Principal reports reviews.ErrLoginFailed
// so the web layer can answer in its own error format.
package auth

import (
	"context"
	"net/http"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword produces a bcrypt hash suitable for
// reviews.User.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns true if password matches the user's hash.
func CheckPassword(user *reviews.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

type principalKey struct{}

type principal struct {
	user *reviews.User
	err  error
}

// WithPrincipal returns a context carrying an authenticated user.
func WithPrincipal(ctx context.Context, user *reviews.User) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{user: user})
}

// Principal returns the user a request was authenticated as, or nil
// for an anonymous request.  It returns reviews.ErrLoginFailed if the
// request carried credentials that did not check out.
func Principal(ctx context.Context) (*reviews.User, error) {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.user, p.err
}

// Basic is negroni middleware performing HTTP Basic authentication.
type Basic struct {
	Store reviews.Store
	// Logger receives failed login attempts; nil uses the
	// standard logrus logger.
	Logger logrus.FieldLogger
}

// NewBasic creates Basic authentication middleware over a store.
func NewBasic(store reviews.Store) *Basic {
	return &Basic{Store: store, Logger: logrus.StandardLogger()}
}

func (b *Basic) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	username, password, ok := r.BasicAuth()
	if !ok {
		next(w, r)
		return
	}
	p := principal{}
	user, err := b.Store.User(username)
	switch {
	case err == nil && CheckPassword(user, password):
		p.user = user
	case err != nil && !reviews.IsNotFound(err):
		p.err = err
	default:
		p.err = reviews.ErrLoginFailed
		if b.Logger != nil {
			b.Logger.WithFields(logrus.Fields{
				"username": username,
				"remote":   r.RemoteAddr,
			}).Info("login failed")
		}
	}
	next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
}
