// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides an HTTP client for the review API served
// by the "restserver" package.
//
// The server in github.com/diffeo/go-reviewapi/cmd/reviewd runs a
// compatible REST server.  Call New() with the URL of its API root;
// for instance,
//
//	c, err := restclient.New("http://localhost:8080/api/", "alice", "secret")
//
// The client reads the root document once and builds every other URL
// from its URI templates.  Failures come back as the same errors the
// server reported, so reviews.IsNotFound and friends work on them.
package restclient

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

// ErrNoURL is returned by New when it is given an empty URL.
var ErrNoURL = errors.New("restclient: no API URL given")

// Client talks to one review API server as one user.
type Client struct {
	resource
	Root restdata.Root
}

// New creates a client for the API root at baseURL.  If username is
// empty, requests are anonymous.
func New(baseURL, username, password string) (*Client, error) {
	return NewWithHTTPClient(baseURL, username, password, nil)
}

// NewWithHTTPClient creates a client that sends its requests through
// httpClient.  A nil httpClient uses http.DefaultClient.
func NewWithHTTPClient(baseURL, username, password string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		resource: resource{
			URL: u,
			transport: &transport{
				HTTP:     httpClient,
				Username: username,
				Password: password,
			},
		},
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHeader adds a header to every later request, such as an
// X-Request-Id for correlating client and server logs.
func (c *Client) SetHeader(name, value string) {
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	c.Header.Set(name, value)
}

// Refresh reloads the root document.
func (c *Client) Refresh() error {
	var doc envelope
	if err := c.Get(&doc); err != nil {
		return err
	}
	c.Root = restdata.Root{}
	return restdata.DecodeItem(map[string]interface{}(doc), &c.Root)
}

// template finds a named URI template.
func (c *Client) template(name string) (string, error) {
	t, present := c.Root.URITemplates[name]
	if !present {
		return "", ErrNoTemplate{Name: name}
	}
	return t, nil
}

// do expands a named template and performs a request against it,
// decoding the response envelope's member called item into out.
func (c *Client) do(method, name string, vars map[string]interface{}, in interface{}, item string, out interface{}) error {
	t, err := c.template(name)
	if err != nil {
		return err
	}
	u, err := c.Template(t, vars)
	if err != nil {
		return err
	}
	if out == nil {
		return c.Do(method, u, in, nil)
	}
	var doc envelope
	if err := c.Do(method, u, in, &doc); err != nil {
		return err
	}
	return doc.item(item, out)
}

func requestVars(id int) map[string]interface{} {
	return map[string]interface{}{"review_request_id": id}
}

func reviewVars(id, reviewID int) map[string]interface{} {
	return map[string]interface{}{"review_request_id": id, "review_id": reviewID}
}

// Session returns the caller's session.
func (c *Client) Session() (*restdata.Session, error) {
	var s restdata.Session
	err := c.do("GET", "session", nil, nil, "session", &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ReviewRequests lists review requests matching query, which holds
// the list filter parameters such as "from-user" or "status", plus
// "start" and "max-results" for paging.  Also returns the total
// number of matches.
func (c *Client) ReviewRequests(query url.Values) ([]restdata.ReviewRequest, int, error) {
	u, err := c.listURL(query)
	if err != nil {
		return nil, 0, err
	}
	var doc envelope
	if err := c.Do("GET", u, nil, &doc); err != nil {
		return nil, 0, err
	}
	var result []restdata.ReviewRequest
	if err := doc.item("review_requests", &result); err != nil {
		return nil, 0, err
	}
	var total int
	if err := doc.item("total_results", &total); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// CountReviewRequests returns the number of review requests matching
// query.
func (c *Client) CountReviewRequests(query url.Values) (int, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("counts-only", "1")
	u, err := c.listURL(q)
	if err != nil {
		return 0, err
	}
	var doc envelope
	if err := c.Do("GET", u, nil, &doc); err != nil {
		return 0, err
	}
	var count int
	err = doc.item("count", &count)
	return count, err
}

func (c *Client) listURL(query url.Values) (*url.URL, error) {
	t, err := c.template("review_requests")
	if err != nil {
		return nil, err
	}
	u, err := c.Template(t, nil)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()
	return u, nil
}

// ReviewRequest fetches one review request.
func (c *Client) ReviewRequest(id int) (*restdata.ReviewRequest, error) {
	var rr restdata.ReviewRequest
	err := c.do("GET", "review_request", requestVars(id), nil, "review_request", &rr)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// NewReviewRequest holds the parameters of CreateReviewRequest.
type NewReviewRequest struct {
	// Repository is a repository ID, path or mirror path.
	Repository string
	// SubmitAs names another user to own the request, if the
	// caller may do that.
	SubmitAs  string
	ChangeNum int
}

// CreateReviewRequest creates a new, unpublished review request.
func (c *Client) CreateReviewRequest(n NewReviewRequest) (*restdata.ReviewRequest, error) {
	form := url.Values{}
	if n.Repository != "" {
		form.Set("repository", n.Repository)
	}
	if n.SubmitAs != "" {
		form.Set("submit_as", n.SubmitAs)
	}
	if n.ChangeNum != 0 {
		form.Set("changenum", strconv.Itoa(n.ChangeNum))
	}
	var rr restdata.ReviewRequest
	err := c.do("POST", "review_requests", nil, form, "review_request", &rr)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// SetStatus closes, discards or reopens a review request.
func (c *Client) SetStatus(id int, status reviews.Status) (*restdata.ReviewRequest, error) {
	var rr restdata.ReviewRequest
	form := url.Values{"status": {string(status)}}
	err := c.do("PUT", "review_request", requestVars(id), form, "review_request", &rr)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// DeleteReviewRequest permanently deletes a review request.
func (c *Client) DeleteReviewRequest(id int) error {
	return c.do("DELETE", "review_request", requestVars(id), nil, "", nil)
}

// Draft fetches the draft of a review request.
func (c *Client) Draft(id int) (*restdata.Draft, error) {
	var d restdata.Draft
	err := c.do("GET", "draft", requestVars(id), nil, "draft", &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDraft changes fields of a review request's draft, creating
// the draft if needed.  Either every field is applied or the update
// fails as a whole.  List fields such as "target_people" are
// comma-separated.
func (c *Client) UpdateDraft(id int, fields url.Values) (*restdata.Draft, error) {
	var d restdata.Draft
	err := c.do("PUT", "draft", requestVars(id), fields, "draft", &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// PublishDraft applies fields, if any, to the draft and publishes it,
// returning the published review request.
func (c *Client) PublishDraft(id int, fields url.Values) (*restdata.ReviewRequest, error) {
	form := url.Values{}
	for k, v := range fields {
		form[k] = v
	}
	form.Set("public", "1")
	var rr restdata.ReviewRequest
	err := c.do("PUT", "draft", requestVars(id), form, "review_request", &rr)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// DiscardDraft throws away the draft of a review request.
func (c *Client) DiscardDraft(id int) error {
	return c.do("DELETE", "draft", requestVars(id), nil, "", nil)
}

// UploadDiff attaches a new diff to the draft of a review request.
// basedir is the path the diff's file names are relative to.
func (c *Client) UploadDiff(id int, filename string, data []byte, basedir string) (*restdata.Diff, error) {
	upload := &Upload{
		Values: url.Values{},
		Files:  map[string]UploadFile{"path": {Filename: filename, Data: data}},
	}
	if basedir != "" {
		upload.Values.Set("basedir", basedir)
	}
	var d restdata.Diff
	err := c.do("POST", "diffs", requestVars(id), upload, "diff", &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Diffs lists the published diff revisions of a review request.
func (c *Client) Diffs(id int) ([]restdata.Diff, error) {
	var result []restdata.Diff
	err := c.do("GET", "diffs", requestVars(id), nil, "diffs", &result)
	return result, err
}

// ReviewChanges holds review fields to set.  Nil fields are left
// alone.
type ReviewChanges struct {
	ShipIt     *bool
	BodyTop    *string
	BodyBottom *string
	Public     bool
}

func (ch ReviewChanges) form() url.Values {
	form := url.Values{}
	if ch.ShipIt != nil {
		form.Set("ship_it", strconv.FormatBool(*ch.ShipIt))
	}
	if ch.BodyTop != nil {
		form.Set("body_top", *ch.BodyTop)
	}
	if ch.BodyBottom != nil {
		form.Set("body_bottom", *ch.BodyBottom)
	}
	if ch.Public {
		form.Set("public", "1")
	}
	return form
}

// CreateReview starts the caller's review of a review request, or
// changes the caller's existing unpublished review.
func (c *Client) CreateReview(id int, ch ReviewChanges) (*restdata.Review, error) {
	var r restdata.Review
	err := c.do("POST", "reviews", requestVars(id), ch.form(), "review", &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReview changes an unpublished review.
func (c *Client) UpdateReview(id, reviewID int, ch ReviewChanges) (*restdata.Review, error) {
	var r restdata.Review
	err := c.do("PUT", "review", reviewVars(id, reviewID), ch.form(), "review", &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PublishReview publishes an unpublished review.
func (c *Client) PublishReview(id, reviewID int) (*restdata.Review, error) {
	return c.UpdateReview(id, reviewID, ReviewChanges{Public: true})
}

// Reviews lists the reviews of a review request that the caller can
// see.
func (c *Client) Reviews(id int) ([]restdata.Review, error) {
	var result []restdata.Review
	err := c.do("GET", "reviews", requestVars(id), nil, "reviews", &result)
	return result, err
}

// AddDiffComment adds a comment on lines of a file diff to an
// unpublished review.
func (c *Client) AddDiffComment(id, reviewID, fileDiffID, firstLine, numLines int, text string) (*restdata.DiffComment, error) {
	form := url.Values{
		"filediff_id": {strconv.Itoa(fileDiffID)},
		"first_line":  {strconv.Itoa(firstLine)},
		"num_lines":   {strconv.Itoa(numLines)},
		"text":        {text},
	}
	var dc restdata.DiffComment
	err := c.do("POST", "diff_comments", reviewVars(id, reviewID), form, "diff_comment", &dc)
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// Reply starts or changes the caller's unpublished reply to a
// review.  The reply's bodies answer the review's bodies.
func (c *Client) Reply(id, reviewID int, ch ReviewChanges) (*restdata.Review, error) {
	var r restdata.Review
	err := c.do("POST", "replies", reviewVars(id, reviewID), ch.form(), "reply", &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PublishReply publishes an unpublished reply.
func (c *Client) PublishReply(id, reviewID, replyID int) (*restdata.Review, error) {
	vars := reviewVars(id, reviewID)
	vars["reply_id"] = replyID
	var r restdata.Review
	form := ReviewChanges{Public: true}.form()
	err := c.do("PUT", "reply", vars, form, "reply", &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Watched lists the review requests a user has starred.
func (c *Client) Watched(username string) ([]restdata.Watched, error) {
	var result []restdata.Watched
	vars := map[string]interface{}{"username": username}
	err := c.do("GET", "watched_review_requests", vars, nil, "watched_review_requests", &result)
	return result, err
}

// Star adds a review request to a user's watch list.
func (c *Client) Star(username string, id int) (*restdata.Watched, error) {
	vars := map[string]interface{}{"username": username}
	form := url.Values{"object_id": {strconv.Itoa(id)}}
	var w restdata.Watched
	err := c.do("POST", "watched_review_requests", vars, form, "watched_review_request", &w)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Unstar removes a review request from a user's watch list.
// Unstarring a review request that is not starred succeeds.
func (c *Client) Unstar(username string, id int) error {
	entryID := workflow.WatchEntryID(username, reviews.WatchReviewRequest, id)
	vars := map[string]interface{}{"username": username, "watched_obj_id": entryID}
	return c.do("DELETE", "watched_review_request", vars, nil, "", nil)
}
