// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/diffeo/go-reviewapi/reviews"
)

// Watches lists a user's watch entries of one kind in object ID
// order.
func (s *Store) Watches(username string, kind reviews.WatchKind) ([]reviews.WatchEntry, error) {
	var result []reviews.WatchEntry
	query := "SELECT id, username, kind, object_id FROM watch " +
		"WHERE username=$1 AND kind=$2 ORDER BY object_id"
	err := s.queryAndScan(query, queryParams{username, string(kind)}, func(rows *sql.Rows) error {
		var e reviews.WatchEntry
		var k string
		err := rows.Scan(&e.ID, &e.Username, &k, &e.ObjectID)
		if err == nil {
			e.Kind = reviews.WatchKind(k)
			result = append(result, e)
		}
		return err
	})
	return result, err
}

// AddWatch stores a watch entry.
func (s *Store) AddWatch(e reviews.WatchEntry) error {
	_, err := s.execInTx("INSERT INTO watch(id, username, kind, object_id) "+
		"VALUES($1, $2, $3, $4) ON CONFLICT DO NOTHING",
		queryParams{e.ID, e.Username, string(e.Kind), e.ObjectID})
	return err
}

// RemoveWatch deletes a watch entry if it exists.
func (s *Store) RemoveWatch(username string, kind reviews.WatchKind, objectID int) error {
	_, err := s.execInTx("DELETE FROM watch WHERE username=$1 AND kind=$2 AND object_id=$3",
		queryParams{username, string(kind), objectID})
	return err
}
