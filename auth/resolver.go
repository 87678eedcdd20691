// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package auth

import (
	"github.com/diffeo/go-reviewapi/reviews"
)

// StoreResolver resolves usernames against a store.  With AutoCreate
// set, an unknown username gets a new account with no password, the
// way an external directory would provision it on first use.
type StoreResolver struct {
	Store      reviews.Store
	AutoCreate bool
}

// ResolveOrCreateUser implements reviews.UserResolver.
func (r StoreResolver) ResolveOrCreateUser(username string) (*reviews.User, error) {
	user, err := r.Store.User(username)
	if err == nil {
		return user, nil
	}
	if !reviews.IsNotFound(err) {
		return nil, err
	}
	if !r.AutoCreate || username == "" {
		return nil, nil
	}
	user = &reviews.User{Username: username}
	err = r.Store.CreateUser(user)
	if err == reviews.ErrDuplicate {
		return r.Store.User(username)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
