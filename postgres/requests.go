// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"
	"strconv"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/lib/pq"
)

const (
	reviewRequestColumns = "id, submitter, repository_id, change_num, status, public, " +
		"time_added, last_updated, summary, description, testing_done, branch, " +
		"bugs_closed, target_groups, target_people"
	draftColumns = "id, review_request_id, last_updated, summary, description, " +
		"testing_done, branch, bugs_closed, target_groups, target_people, " +
		"change_description, has_change_description, diffset_id, screenshot_ids"
)

func scanReviewRequest(row scanner) (*reviews.ReviewRequest, error) {
	var rr reviews.ReviewRequest
	var status string
	err := row.Scan(&rr.ID, &rr.Submitter, &rr.RepositoryID, &rr.ChangeNum,
		&status, &rr.Public, &rr.TimeAdded, &rr.LastUpdated, &rr.Summary,
		&rr.Description, &rr.TestingDone, &rr.Branch,
		pq.Array(&rr.BugsClosed), pq.Array(&rr.TargetGroups),
		pq.Array(&rr.TargetPeople))
	if err != nil {
		return nil, err
	}
	rr.Status = reviews.Status(status)
	return &rr, nil
}

func scanDraft(row scanner) (*reviews.Draft, error) {
	var d reviews.Draft
	var screenshots pq.Int64Array
	err := row.Scan(&d.ID, &d.ReviewRequestID, &d.LastUpdated, &d.Summary,
		&d.Description, &d.TestingDone, &d.Branch, pq.Array(&d.BugsClosed),
		pq.Array(&d.TargetGroups), pq.Array(&d.TargetPeople),
		&d.ChangeDescription, &d.HasChangeDescription, &d.DiffSetID,
		&screenshots)
	if err != nil {
		return nil, err
	}
	d.ScreenshotIDs = intsFromArray(screenshots)
	return &d, nil
}

// reviewRequestFields lists the mutable columns of a review request.
func reviewRequestFields(params *queryParams, rr *reviews.ReviewRequest) fieldList {
	fields := fieldList{}
	fields.Add(params, "submitter", rr.Submitter)
	fields.Add(params, "repository_id", rr.RepositoryID)
	fields.Add(params, "change_num", rr.ChangeNum)
	fields.Add(params, "status", string(rr.Status))
	fields.Add(params, "public", rr.Public)
	fields.Add(params, "time_added", rr.TimeAdded)
	fields.Add(params, "last_updated", rr.LastUpdated)
	fields.Add(params, "summary", rr.Summary)
	fields.Add(params, "description", rr.Description)
	fields.Add(params, "testing_done", rr.TestingDone)
	fields.Add(params, "branch", rr.Branch)
	fields.Add(params, "bugs_closed", pq.Array(rr.BugsClosed))
	fields.Add(params, "target_groups", pq.Array(rr.TargetGroups))
	fields.Add(params, "target_people", pq.Array(rr.TargetPeople))
	return fields
}

// txChanges loads the change descriptions of a review request.
func txChanges(tx *sql.Tx, rr *reviews.ReviewRequest) error {
	query := "SELECT id, text, timestamp FROM change_description " +
		"WHERE review_request_id=$1 ORDER BY id"
	return txQueryAndScan(tx, query, queryParams{rr.ID}, func(rows *sql.Rows) error {
		var cd reviews.ChangeDescription
		err := rows.Scan(&cd.ID, &cd.Text, &cd.Timestamp)
		if err == nil {
			rr.Changes = append(rr.Changes, cd)
		}
		return err
	})
}

// txSaveChanges stores any new change descriptions of a review
// request, assigning their IDs.  Change descriptions are never edited.
func txSaveChanges(tx *sql.Tx, rr *reviews.ReviewRequest) error {
	for i := range rr.Changes {
		cd := &rr.Changes[i]
		if cd.ID != 0 {
			continue
		}
		row := tx.QueryRow("INSERT INTO change_description(review_request_id, text, timestamp) "+
			"VALUES($1, $2, $3) RETURNING id", rr.ID, cd.Text, cd.Timestamp)
		if err := row.Scan(&cd.ID); err != nil {
			return err
		}
	}
	return nil
}

// ReviewRequest fetches a review request by ID.
func (s *Store) ReviewRequest(id int) (*reviews.ReviewRequest, error) {
	var rr *reviews.ReviewRequest
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+reviewRequestColumns+" FROM review_request WHERE id=$1", id)
		rr, err = scanReviewRequest(row)
		if err != nil {
			return
		}
		return txChanges(tx, rr)
	})
	return rr, notFoundIfNoRows(err, reviews.KindReviewRequest, id)
}

// ReviewRequests returns one page of review requests matching a
// query, most recently updated first.
func (s *Store) ReviewRequests(q *reviews.ReviewRequestQuery) ([]*reviews.ReviewRequest, error) {
	params := queryParams{}
	query := buildSelect([]string{reviewRequestColumns}, []string{"review_request"},
		reviewRequestConditions(&params, q))
	query += " ORDER BY last_updated DESC, id DESC"
	if q.Start > 0 {
		query += " OFFSET " + strconv.Itoa(q.Start)
	}
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}
	var result []*reviews.ReviewRequest
	err := s.withTx(true, func(tx *sql.Tx) error {
		err := txQueryAndScan(tx, query, params, func(rows *sql.Rows) error {
			rr, err := scanReviewRequest(rows)
			if err == nil {
				result = append(result, rr)
			}
			return err
		})
		if err != nil {
			return err
		}
		for _, rr := range result {
			if err := txChanges(tx, rr); err != nil {
				return err
			}
		}
		return nil
	})
	return result, err
}

// CountReviewRequests returns the number of review requests matching
// a query, ignoring paging.
func (s *Store) CountReviewRequests(q *reviews.ReviewRequestQuery) (count int, err error) {
	params := queryParams{}
	query := buildSelect([]string{"COUNT(*)"}, []string{"review_request"},
		reviewRequestConditions(&params, q))
	err = s.withTx(true, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&count)
	})
	return
}

// CreateReviewRequest stores a new review request.
func (s *Store) CreateReviewRequest(rr *reviews.ReviewRequest) error {
	s.stamp(&rr.TimeAdded)
	if rr.LastUpdated.IsZero() {
		rr.LastUpdated = rr.TimeAdded
	}
	err := s.withTx(false, func(tx *sql.Tx) error {
		if rr.ChangeNum != 0 {
			var other int
			row := tx.QueryRow("SELECT id FROM review_request "+
				"WHERE repository_id=$1 AND change_num=$2",
				rr.RepositoryID, rr.ChangeNum)
			err := row.Scan(&other)
			if err == nil {
				return reviews.ErrChangeNumberInUse{ReviewRequestID: other}
			} else if err != sql.ErrNoRows {
				return err
			}
		}
		params := queryParams{}
		fields := reviewRequestFields(&params, rr)
		query := fields.InsertStatement("review_request") + " RETURNING id"
		if err := tx.QueryRow(query, params...).Scan(&rr.ID); err != nil {
			return err
		}
		return txSaveChanges(tx, rr)
	})
	if isUniqueViolation(err) {
		// Lost a race for the change number
		return s.CreateReviewRequest(rr)
	}
	return err
}

// SaveReviewRequest overwrites an existing review request.
func (s *Store) SaveReviewRequest(rr *reviews.ReviewRequest) error {
	return s.withTx(false, func(tx *sql.Tx) error {
		params := queryParams{}
		fields := reviewRequestFields(&params, rr)
		query := buildUpdate("review_request", fields.UpdateChanges(),
			[]string{"id=" + params.Param(rr.ID)})
		result, err := tx.Exec(query, params...)
		if err != nil {
			return err
		}
		count, err := result.RowsAffected()
		if err = checkAffected(count, err, reviews.KindReviewRequest, rr.ID); err != nil {
			return err
		}
		return txSaveChanges(tx, rr)
	})
}

// DeleteReviewRequest removes a review request and everything that
// belongs to it.  Foreign keys cascade to most dependent rows.
func (s *Store) DeleteReviewRequest(id int) error {
	return s.withTx(false, func(tx *sql.Tx) error {
		result, err := tx.Exec("DELETE FROM review_request WHERE id=$1", id)
		if err != nil {
			return err
		}
		count, err := result.RowsAffected()
		if err = checkAffected(count, err, reviews.KindReviewRequest, id); err != nil {
			return err
		}
		_, err = tx.Exec("DELETE FROM watch WHERE kind=$1 AND object_id=$2",
			string(reviews.WatchReviewRequest), id)
		return err
	})
}

// Draft fetches the draft of a review request.
func (s *Store) Draft(reviewRequestID int) (*reviews.Draft, error) {
	var d *reviews.Draft
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+draftColumns+" FROM draft WHERE review_request_id=$1", reviewRequestID)
		d, err = scanDraft(row)
		return
	})
	return d, notFoundIfNoRows(err, reviews.KindDraft, reviewRequestID)
}

// draftFields lists the mutable columns of a draft.
func draftFields(params *queryParams, d *reviews.Draft) fieldList {
	fields := fieldList{}
	fields.Add(params, "last_updated", d.LastUpdated)
	fields.Add(params, "summary", d.Summary)
	fields.Add(params, "description", d.Description)
	fields.Add(params, "testing_done", d.TestingDone)
	fields.Add(params, "branch", d.Branch)
	fields.Add(params, "bugs_closed", pq.Array(d.BugsClosed))
	fields.Add(params, "target_groups", pq.Array(d.TargetGroups))
	fields.Add(params, "target_people", pq.Array(d.TargetPeople))
	fields.Add(params, "change_description", d.ChangeDescription)
	fields.Add(params, "has_change_description", d.HasChangeDescription)
	fields.Add(params, "diffset_id", d.DiffSetID)
	fields.Add(params, "screenshot_ids", intArray(d.ScreenshotIDs))
	return fields
}

// CreateDraft stores d unless its review request already has a draft.
func (s *Store) CreateDraft(d *reviews.Draft) (result *reviews.Draft, created bool, err error) {
	s.stamp(&d.LastUpdated)
	err = s.withTx(false, func(tx *sql.Tx) error {
		var exists bool
		row := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM review_request WHERE id=$1)", d.ReviewRequestID)
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return reviews.ErrNotFound{Kind: reviews.KindReviewRequest, Key: d.ReviewRequestID}
		}

		params := queryParams{}
		fields := draftFields(&params, d)
		fields.Add(&params, "review_request_id", d.ReviewRequestID)
		query := fields.InsertStatement("draft") +
			" ON CONFLICT (review_request_id) DO NOTHING RETURNING id"
		err := tx.QueryRow(query, params...).Scan(&d.ID)
		if err == nil {
			created = true
			copied := *d
			result = &copied
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}
		row = tx.QueryRow("SELECT "+draftColumns+" FROM draft WHERE review_request_id=$1", d.ReviewRequestID)
		result, err = scanDraft(row)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return
}

// SaveDraft overwrites the draft of a review request.
func (s *Store) SaveDraft(d *reviews.Draft) error {
	params := queryParams{}
	fields := draftFields(&params, d)
	query := buildUpdate("draft", fields.UpdateChanges(), []string{
		"id=" + params.Param(d.ID),
		"review_request_id=" + params.Param(d.ReviewRequestID),
	})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindDraft, d.ReviewRequestID)
}

// DeleteDraft removes the draft of a review request.
func (s *Store) DeleteDraft(reviewRequestID int) error {
	count, err := s.execInTx("DELETE FROM draft WHERE review_request_id=$1",
		queryParams{reviewRequestID})
	return checkAffected(count, err, reviews.KindDraft, reviewRequestID)
}
