// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/diffeo/go-reviewapi/reviews"
)

const (
	diffSetColumns    = "id, review_request_id, name, revision, timestamp, repository_id, base_dir"
	fileDiffColumns   = "id, diffset_id, source_file, dest_file, source_revision, dest_detail, is_binary, diff"
	screenshotColumns = "id, review_request_id, caption, draft_caption, path, active"
)

func scanDiffSet(row scanner) (*reviews.DiffSet, error) {
	var ds reviews.DiffSet
	err := row.Scan(&ds.ID, &ds.ReviewRequestID, &ds.Name, &ds.Revision,
		&ds.Timestamp, &ds.RepositoryID, &ds.BaseDir)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func scanFileDiff(row scanner) (*reviews.FileDiff, error) {
	var fd reviews.FileDiff
	err := row.Scan(&fd.ID, &fd.DiffSetID, &fd.SourceFile, &fd.DestFile,
		&fd.SourceRevision, &fd.DestDetail, &fd.Binary, &fd.Diff)
	if err != nil {
		return nil, err
	}
	return &fd, nil
}

func scanScreenshot(row scanner) (*reviews.Screenshot, error) {
	var ss reviews.Screenshot
	err := row.Scan(&ss.ID, &ss.ReviewRequestID, &ss.Caption,
		&ss.DraftCaption, &ss.Path, &ss.Active)
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

// DiffSets returns the published diffsets of a review request in
// revision order.
func (s *Store) DiffSets(reviewRequestID int) ([]*reviews.DiffSet, error) {
	var result []*reviews.DiffSet
	query := "SELECT " + diffSetColumns + " FROM diffset " +
		"WHERE review_request_id=$1 AND revision>0 ORDER BY revision"
	err := s.queryAndScan(query, queryParams{reviewRequestID}, func(rows *sql.Rows) error {
		ds, err := scanDiffSet(rows)
		if err == nil {
			result = append(result, ds)
		}
		return err
	})
	return result, err
}

// DiffSet fetches a diffset by ID, published or not.
func (s *Store) DiffSet(id int) (*reviews.DiffSet, error) {
	var ds *reviews.DiffSet
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+diffSetColumns+" FROM diffset WHERE id=$1", id)
		ds, err = scanDiffSet(row)
		return
	})
	return ds, notFoundIfNoRows(err, reviews.KindDiffSet, id)
}

func diffSetFields(params *queryParams, ds *reviews.DiffSet) fieldList {
	fields := fieldList{}
	fields.Add(params, "review_request_id", ds.ReviewRequestID)
	fields.Add(params, "name", ds.Name)
	fields.Add(params, "revision", ds.Revision)
	fields.Add(params, "timestamp", ds.Timestamp)
	fields.Add(params, "repository_id", ds.RepositoryID)
	fields.Add(params, "base_dir", ds.BaseDir)
	return fields
}

// CreateDiffSet stores a diffset and its files.
func (s *Store) CreateDiffSet(ds *reviews.DiffSet, files []*reviews.FileDiff) error {
	s.stamp(&ds.Timestamp)
	return s.withTx(false, func(tx *sql.Tx) error {
		params := queryParams{}
		fields := diffSetFields(&params, ds)
		query := fields.InsertStatement("diffset") + " RETURNING id"
		if err := tx.QueryRow(query, params...).Scan(&ds.ID); err != nil {
			return err
		}
		for _, fd := range files {
			params = queryParams{}
			fields = fieldList{}
			fields.Add(&params, "diffset_id", ds.ID)
			fields.Add(&params, "source_file", fd.SourceFile)
			fields.Add(&params, "dest_file", fd.DestFile)
			fields.Add(&params, "source_revision", fd.SourceRevision)
			fields.Add(&params, "dest_detail", fd.DestDetail)
			fields.Add(&params, "is_binary", fd.Binary)
			fields.Add(&params, "diff", fd.Diff)
			query = fields.InsertStatement("filediff") + " RETURNING id"
			if err := tx.QueryRow(query, params...).Scan(&fd.ID); err != nil {
				return err
			}
			fd.DiffSetID = ds.ID
		}
		return nil
	})
}

// SaveDiffSet overwrites an existing diffset.
func (s *Store) SaveDiffSet(ds *reviews.DiffSet) error {
	params := queryParams{}
	fields := diffSetFields(&params, ds)
	query := buildUpdate("diffset", fields.UpdateChanges(),
		[]string{"id=" + params.Param(ds.ID)})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindDiffSet, ds.ID)
}

// DeleteDiffSet removes a diffset and its files.
func (s *Store) DeleteDiffSet(id int) error {
	return s.withTx(false, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM diff_comment WHERE interfilediff_id IN "+
			"(SELECT id FROM filediff WHERE diffset_id=$1)", id)
		if err != nil {
			return err
		}
		result, err := tx.Exec("DELETE FROM diffset WHERE id=$1", id)
		if err != nil {
			return err
		}
		count, err := result.RowsAffected()
		return checkAffected(count, err, reviews.KindDiffSet, id)
	})
}

// FileDiffs returns the files of a diffset in ID order.
func (s *Store) FileDiffs(diffSetID int) ([]*reviews.FileDiff, error) {
	var result []*reviews.FileDiff
	query := "SELECT " + fileDiffColumns + " FROM filediff WHERE diffset_id=$1 ORDER BY id"
	err := s.queryAndScan(query, queryParams{diffSetID}, func(rows *sql.Rows) error {
		fd, err := scanFileDiff(rows)
		if err == nil {
			result = append(result, fd)
		}
		return err
	})
	return result, err
}

// FileDiff fetches a file diff by ID.
func (s *Store) FileDiff(id int) (*reviews.FileDiff, error) {
	var fd *reviews.FileDiff
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+fileDiffColumns+" FROM filediff WHERE id=$1", id)
		fd, err = scanFileDiff(row)
		return
	})
	return fd, notFoundIfNoRows(err, reviews.KindFileDiff, id)
}

// Screenshot fetches a screenshot by ID.
func (s *Store) Screenshot(id int) (*reviews.Screenshot, error) {
	var ss *reviews.Screenshot
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+screenshotColumns+" FROM screenshot WHERE id=$1", id)
		ss, err = scanScreenshot(row)
		return
	})
	return ss, notFoundIfNoRows(err, reviews.KindScreenshot, id)
}

// Screenshots returns every screenshot of a review request in ID
// order.
func (s *Store) Screenshots(reviewRequestID int) ([]*reviews.Screenshot, error) {
	var result []*reviews.Screenshot
	query := "SELECT " + screenshotColumns + " FROM screenshot WHERE review_request_id=$1 ORDER BY id"
	err := s.queryAndScan(query, queryParams{reviewRequestID}, func(rows *sql.Rows) error {
		ss, err := scanScreenshot(rows)
		if err == nil {
			result = append(result, ss)
		}
		return err
	})
	return result, err
}

func screenshotFields(params *queryParams, ss *reviews.Screenshot) fieldList {
	fields := fieldList{}
	fields.Add(params, "review_request_id", ss.ReviewRequestID)
	fields.Add(params, "caption", ss.Caption)
	fields.Add(params, "draft_caption", ss.DraftCaption)
	fields.Add(params, "path", ss.Path)
	fields.Add(params, "active", ss.Active)
	return fields
}

// CreateScreenshot stores a new screenshot.
func (s *Store) CreateScreenshot(ss *reviews.Screenshot) error {
	params := queryParams{}
	fields := screenshotFields(&params, ss)
	query := fields.InsertStatement("screenshot") + " RETURNING id"
	return s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&ss.ID)
	})
}

// SaveScreenshot overwrites an existing screenshot.
func (s *Store) SaveScreenshot(ss *reviews.Screenshot) error {
	params := queryParams{}
	fields := screenshotFields(&params, ss)
	query := buildUpdate("screenshot", fields.UpdateChanges(),
		[]string{"id=" + params.Param(ss.ID)})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindScreenshot, ss.ID)
}
