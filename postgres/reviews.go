// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/lib/pq"
)

const (
	reviewColumns = "id, review_request_id, username, timestamp, public, ship_it, " +
		"body_top, body_bottom, base_reply_to_id, body_top_reply_to_id, body_bottom_reply_to_id"
	diffCommentColumns = "id, review_id, filediff_id, interfilediff_id, first_line, " +
		"num_lines, text, timestamp, reply_to_id"
	screenshotCommentColumns = "id, review_id, screenshot_id, x, y, w, h, text, " +
		"timestamp, reply_to_id"
)

func scanReview(row scanner) (*reviews.Review, error) {
	var r reviews.Review
	err := row.Scan(&r.ID, &r.ReviewRequestID, &r.User, &r.Timestamp,
		&r.Public, &r.ShipIt, &r.BodyTop, &r.BodyBottom, &r.BaseReplyToID,
		&r.BodyTopReplyToID, &r.BodyBottomReplyToID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanDiffComment(row scanner) (*reviews.DiffComment, error) {
	var c reviews.DiffComment
	err := row.Scan(&c.ID, &c.ReviewID, &c.FileDiffID, &c.InterFileDiffID,
		&c.FirstLine, &c.NumLines, &c.Text, &c.Timestamp, &c.ReplyToID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanScreenshotComment(row scanner) (*reviews.ScreenshotComment, error) {
	var c reviews.ScreenshotComment
	err := row.Scan(&c.ID, &c.ReviewID, &c.ScreenshotID, &c.X, &c.Y, &c.W,
		&c.H, &c.Text, &c.Timestamp, &c.ReplyToID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func reviewFields(params *queryParams, r *reviews.Review) fieldList {
	fields := fieldList{}
	fields.Add(params, "review_request_id", r.ReviewRequestID)
	fields.Add(params, "username", r.User)
	fields.Add(params, "timestamp", r.Timestamp)
	fields.Add(params, "public", r.Public)
	fields.Add(params, "ship_it", r.ShipIt)
	fields.Add(params, "body_top", r.BodyTop)
	fields.Add(params, "body_bottom", r.BodyBottom)
	fields.Add(params, "base_reply_to_id", r.BaseReplyToID)
	fields.Add(params, "body_top_reply_to_id", r.BodyTopReplyToID)
	fields.Add(params, "body_bottom_reply_to_id", r.BodyBottomReplyToID)
	return fields
}

// Review fetches a review or reply by ID.
func (s *Store) Review(id int) (*reviews.Review, error) {
	var r *reviews.Review
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+reviewColumns+" FROM review WHERE id=$1", id)
		r, err = scanReview(row)
		return
	})
	return r, notFoundIfNoRows(err, reviews.KindReview, id)
}

// Reviews returns the reviews matching a query in ID order.
func (s *Store) Reviews(q reviews.ReviewQuery) ([]*reviews.Review, error) {
	params := queryParams{}
	var conditions []string
	if q.ReviewRequestID != 0 {
		conditions = append(conditions, "review_request_id="+params.Param(q.ReviewRequestID))
	}
	if !q.AnyBase {
		conditions = append(conditions, "base_reply_to_id="+params.Param(q.BaseReplyToID))
	}
	if q.PublicOnly {
		conditions = append(conditions, "public")
	}
	if q.User != "" {
		conditions = append(conditions, "username="+params.Param(q.User))
	}
	query := buildSelect([]string{reviewColumns}, []string{"review"}, conditions) + " ORDER BY id"
	var result []*reviews.Review
	err := s.queryAndScan(query, params, func(rows *sql.Rows) error {
		r, err := scanReview(rows)
		if err == nil {
			result = append(result, r)
		}
		return err
	})
	return result, err
}

// GetOrCreateReview finds the pending review matching r, or stores r.
// A partial unique index makes the insert atomic.
func (s *Store) GetOrCreateReview(r *reviews.Review) (result *reviews.Review, created bool, err error) {
	s.stamp(&r.Timestamp)
	err = s.withTx(false, func(tx *sql.Tx) error {
		var exists bool
		row := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM review_request WHERE id=$1)", r.ReviewRequestID)
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return reviews.ErrNotFound{Kind: reviews.KindReviewRequest, Key: r.ReviewRequestID}
		}

		params := queryParams{}
		fields := reviewFields(&params, r)
		query := fields.InsertStatement("review") +
			" ON CONFLICT (review_request_id, username, base_reply_to_id) WHERE NOT public" +
			" DO NOTHING RETURNING id"
		err := tx.QueryRow(query, params...).Scan(&r.ID)
		if err == nil {
			created = true
			copied := *r
			result = &copied
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}
		row = tx.QueryRow("SELECT "+reviewColumns+" FROM review "+
			"WHERE review_request_id=$1 AND username=$2 AND base_reply_to_id=$3 AND NOT public",
			r.ReviewRequestID, r.User, r.BaseReplyToID)
		result, err = scanReview(row)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return
}

// SaveReview overwrites an existing review.
func (s *Store) SaveReview(r *reviews.Review) error {
	params := queryParams{}
	fields := reviewFields(&params, r)
	query := buildUpdate("review", fields.UpdateChanges(),
		[]string{"id=" + params.Param(r.ID)})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindReview, r.ID)
}

// DeleteReview removes a review, its replies, and their comments.
func (s *Store) DeleteReview(id int) error {
	count, err := s.execInTx("DELETE FROM review WHERE id=$1 OR base_reply_to_id=$1",
		queryParams{id})
	return checkAffected(count, err, reviews.KindReview, id)
}

// commentConditions builds WHERE fragments for a comment query;
// objectColumn names the column holding the commented object.
func commentConditions(params *queryParams, q reviews.CommentQuery, objectColumn string, objectID int) []string {
	var conditions []string
	if q.ReviewID != 0 {
		conditions = append(conditions, "review_id="+params.Param(q.ReviewID))
	}
	if objectID != 0 {
		conditions = append(conditions, objectColumn+"="+params.Param(objectID))
	}
	if q.ReplyToID != 0 {
		conditions = append(conditions, "reply_to_id="+params.Param(q.ReplyToID))
	}
	return conditions
}

// DiffComment fetches a diff comment by ID.
func (s *Store) DiffComment(id int) (*reviews.DiffComment, error) {
	var c *reviews.DiffComment
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+diffCommentColumns+" FROM diff_comment WHERE id=$1", id)
		c, err = scanDiffComment(row)
		return
	})
	return c, notFoundIfNoRows(err, reviews.KindDiffComment, id)
}

// DiffComments returns the diff comments matching a query in ID
// order.
func (s *Store) DiffComments(q reviews.CommentQuery) ([]*reviews.DiffComment, error) {
	params := queryParams{}
	conditions := commentConditions(&params, q, "filediff_id", q.FileDiffID)
	if q.Line != 0 {
		conditions = append(conditions, "first_line="+params.Param(q.Line))
	}
	query := buildSelect([]string{diffCommentColumns}, []string{"diff_comment"}, conditions) + " ORDER BY id"
	var result []*reviews.DiffComment
	err := s.queryAndScan(query, params, func(rows *sql.Rows) error {
		c, err := scanDiffComment(rows)
		if err == nil {
			result = append(result, c)
		}
		return err
	})
	return result, err
}

func diffCommentFields(params *queryParams, c *reviews.DiffComment) fieldList {
	fields := fieldList{}
	fields.Add(params, "review_id", c.ReviewID)
	fields.Add(params, "filediff_id", c.FileDiffID)
	fields.Add(params, "interfilediff_id", c.InterFileDiffID)
	fields.Add(params, "first_line", c.FirstLine)
	fields.Add(params, "num_lines", c.NumLines)
	fields.Add(params, "text", c.Text)
	fields.Add(params, "timestamp", c.Timestamp)
	fields.Add(params, "reply_to_id", c.ReplyToID)
	return fields
}

// isForeignKeyViolation returns true if err is a PostgreSQL foreign
// key failure.
func isForeignKeyViolation(err error) bool {
	pqerr, ok := err.(*pq.Error)
	return ok && pqerr.Code == "23503"
}

// CreateDiffComment stores a new diff comment.
func (s *Store) CreateDiffComment(c *reviews.DiffComment) error {
	s.stamp(&c.Timestamp)
	params := queryParams{}
	fields := diffCommentFields(&params, c)
	query := fields.InsertStatement("diff_comment") + " RETURNING id"
	err := s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&c.ID)
	})
	if isForeignKeyViolation(err) {
		return reviews.ErrNotFound{Kind: reviews.KindReview, Key: c.ReviewID}
	}
	return err
}

// SaveDiffComment overwrites an existing diff comment.
func (s *Store) SaveDiffComment(c *reviews.DiffComment) error {
	params := queryParams{}
	fields := diffCommentFields(&params, c)
	query := buildUpdate("diff_comment", fields.UpdateChanges(),
		[]string{"id=" + params.Param(c.ID)})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindDiffComment, c.ID)
}

// DeleteDiffComment removes a diff comment.
func (s *Store) DeleteDiffComment(id int) error {
	count, err := s.execInTx("DELETE FROM diff_comment WHERE id=$1", queryParams{id})
	return checkAffected(count, err, reviews.KindDiffComment, id)
}

// ScreenshotComment fetches a screenshot comment by ID.
func (s *Store) ScreenshotComment(id int) (*reviews.ScreenshotComment, error) {
	var c *reviews.ScreenshotComment
	err := s.withTx(true, func(tx *sql.Tx) (err error) {
		row := tx.QueryRow("SELECT "+screenshotCommentColumns+" FROM screenshot_comment WHERE id=$1", id)
		c, err = scanScreenshotComment(row)
		return
	})
	return c, notFoundIfNoRows(err, reviews.KindScreenshotComment, id)
}

// ScreenshotComments returns the screenshot comments matching a query
// in ID order.
func (s *Store) ScreenshotComments(q reviews.CommentQuery) ([]*reviews.ScreenshotComment, error) {
	params := queryParams{}
	conditions := commentConditions(&params, q, "screenshot_id", q.ScreenshotID)
	query := buildSelect([]string{screenshotCommentColumns}, []string{"screenshot_comment"}, conditions) + " ORDER BY id"
	var result []*reviews.ScreenshotComment
	err := s.queryAndScan(query, params, func(rows *sql.Rows) error {
		c, err := scanScreenshotComment(rows)
		if err == nil {
			result = append(result, c)
		}
		return err
	})
	return result, err
}

func screenshotCommentFields(params *queryParams, c *reviews.ScreenshotComment) fieldList {
	fields := fieldList{}
	fields.Add(params, "review_id", c.ReviewID)
	fields.Add(params, "screenshot_id", c.ScreenshotID)
	fields.Add(params, "x", c.X)
	fields.Add(params, "y", c.Y)
	fields.Add(params, "w", c.W)
	fields.Add(params, "h", c.H)
	fields.Add(params, "text", c.Text)
	fields.Add(params, "timestamp", c.Timestamp)
	fields.Add(params, "reply_to_id", c.ReplyToID)
	return fields
}

// CreateScreenshotComment stores a new screenshot comment.
func (s *Store) CreateScreenshotComment(c *reviews.ScreenshotComment) error {
	s.stamp(&c.Timestamp)
	params := queryParams{}
	fields := screenshotCommentFields(&params, c)
	query := fields.InsertStatement("screenshot_comment") + " RETURNING id"
	err := s.withTx(false, func(tx *sql.Tx) error {
		return tx.QueryRow(query, params...).Scan(&c.ID)
	})
	if isForeignKeyViolation(err) {
		return reviews.ErrNotFound{Kind: reviews.KindReview, Key: c.ReviewID}
	}
	return err
}

// SaveScreenshotComment overwrites an existing screenshot comment.
func (s *Store) SaveScreenshotComment(c *reviews.ScreenshotComment) error {
	params := queryParams{}
	fields := screenshotCommentFields(&params, c)
	query := buildUpdate("screenshot_comment", fields.UpdateChanges(),
		[]string{"id=" + params.Param(c.ID)})
	count, err := s.execInTx(query, params)
	return checkAffected(count, err, reviews.KindScreenshotComment, c.ID)
}

// DeleteScreenshotComment removes a screenshot comment.
func (s *Store) DeleteScreenshotComment(id int) error {
	count, err := s.execInTx("DELETE FROM screenshot_comment WHERE id=$1", queryParams{id})
	return checkAffected(count, err, reviews.KindScreenshotComment, id)
}
