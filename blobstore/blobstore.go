// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package blobstore keeps uploaded files in a blob bucket.  Any
// go-cloud bucket works; OpenDir provides one backed by a local
// directory.
package blobstore

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
)

// Store is a reviews.FileStorage over a blob bucket.
type Store struct {
	Bucket *blob.Bucket
}

// New wraps an existing bucket.
func New(bucket *blob.Bucket) *Store {
	return &Store{Bucket: bucket}
}

// OpenDir creates a store that keeps files in a local directory,
// creating the directory if needed.
func OpenDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	bucket, err := fileblob.NewBucket(dir)
	if err != nil {
		return nil, err
	}
	return New(bucket), nil
}

// blobKey maps a slash-separated key onto the characters every
// bucket accepts.  Each path segment is base64url encoded, so the
// directory structure survives.
func blobKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = base64.RawURLEncoding.EncodeToString([]byte(part))
	}
	return strings.Join(parts, "/")
}

// Save copies r into the bucket under key, replacing any existing
// file.
func (s *Store) Save(ctx context.Context, key string, r io.Reader) error {
	w, err := s.Bucket.NewWriter(ctx, blobKey(key), nil)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Open returns a reader over the file under key.  A missing file is
// an ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.Bucket.NewReader(ctx, blobKey(key))
	if blob.IsNotExist(err) {
		return nil, reviews.ErrNotFound{Kind: reviews.KindScreenshot, Key: key}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes the file under key.  Deleting a missing file is not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.Bucket.Delete(ctx, blobKey(key))
	if blob.IsNotExist(err) {
		return nil
	}
	return err
}
