// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-reviewapi/auth"
	"github.com/diffeo/go-reviewapi/blobstore"
	"github.com/diffeo/go-reviewapi/diffviewer"
	"github.com/diffeo/go-reviewapi/memory"
	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/restserver"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/negroni"
)

const password = "secret"

const sampleDiff = `--- README	(revision 1)
+++ README	(working copy)
@@ -1,2 +1,2 @@
 hello
-world
+there
`

// Suite runs requests through the full HTTP stack against a memory
// store.
type Suite struct {
	suite.Suite
	Clock   *clock.Mock
	Store   *memory.Store
	Service *workflow.Service
	Server  *httptest.Server
	Client  *http.Client
	Repo    *reviews.Repository
}

func TestServer(t *testing.T) {
	suite.Run(t, &Suite{})
}

func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Set(time.Date(2017, 3, 1, 12, 0, 0, 0, time.UTC))
	s.Store = memory.NewWithClock(s.Clock)
	hash, err := auth.HashPassword(password)
	s.Require().NoError(err)
	for _, name := range []string{"owner", "reviewer", "admin"} {
		s.Require().NoError(s.Store.CreateUser(&reviews.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: hash,
			IsSuperuser:  name == "admin",
		}))
	}
	s.Repo = &reviews.Repository{Name: "repo", Path: "/svn/repo", Tool: "none", Public: true}
	s.Require().NoError(s.Store.CreateRepository(s.Repo))
	s.Require().NoError(s.Store.CreateGroup(&reviews.Group{
		Name:        "qa",
		DisplayName: "Quality Assurance",
		Visible:     true,
		Members:     []string{"reviewer"},
	}))

	s.Service = &workflow.Service{
		Store:    s.Store,
		Clock:    s.Clock,
		Parser:   diffviewer.Parser{},
		Renderer: diffviewer.Renderer{},
	}
	logger := logrus.New()
	logger.Out = io.Discard
	router := restserver.NewRouter(s.Service, restserver.Options{Logger: logger})
	basic := auth.NewBasic(s.Store)
	basic.Logger = logger
	n := negroni.New(basic)
	n.UseHandler(router)
	s.Server = httptest.NewServer(n)
	s.Client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *Suite) TearDownTest() {
	s.Server.Close()
}

// response is a decoded reply.
type response struct {
	*http.Response
	Body map[string]interface{}
}

// item decodes one object of the body into out.
func (r response) item(name string, out interface{}) error {
	return restdata.DecodeItem(r.Body[name], out)
}

// errorBody decodes an error envelope.
func (r response) errorBody() restdata.ErrorResponse {
	var er restdata.ErrorResponse
	_ = restdata.DecodeItem(r.Body, &er)
	return er
}

// do sends a request as user, with form values if any.
func (s *Suite) do(method, path, user string, form url.Values) response {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, s.url(path), body)
	s.Require().NoError(err)
	if form != nil {
		req.Header.Set("Content-Type", restdata.FormMediaType)
	}
	return s.send(req, user)
}

func (s *Suite) send(req *http.Request, user string) response {
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	resp, err := s.Client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	result := response{Response: resp}
	if restdata.IsJSON(strings.Split(resp.Header.Get("Content-Type"), ";")[0]) {
		s.Require().NoError(restdata.Decode(resp.Header.Get("Content-Type"), resp.Body, &result.Body))
	}
	return result
}

func (s *Suite) url(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return s.Server.URL + "/api" + path
}

// assertError checks an error response.
func (s *Suite) assertError(r response, status int, code restdata.ErrorCode) {
	s.Equal(status, r.StatusCode)
	er := r.errorBody()
	s.Equal(restdata.StatFail, er.Stat)
	s.Equal(code, er.Err.Code)
}

// newRequest creates a review request as owner and returns its path.
func (s *Suite) newRequest() (string, restdata.ReviewRequest) {
	r := s.do("POST", "/review-requests/", "owner", url.Values{
		"repository": {strconv.Itoa(s.Repo.ID)},
	})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	var rr restdata.ReviewRequest
	s.Require().NoError(r.item("review_request", &rr))
	s.Equal(r.Header.Get("Location"), rr.Links["self"].Href)
	return "/review-requests/" + strconv.Itoa(rr.ID) + "/", rr
}

// publishedRequest creates and publishes a review request targeted
// at the qa group.
func (s *Suite) publishedRequest() string {
	path, _ := s.newRequest()
	r := s.do("PUT", path+"draft/", "owner", url.Values{
		"summary":       {"Fix the frobnicator"},
		"target_groups": {"qa"},
		"public":        {"1"},
	})
	s.Require().Equal(http.StatusSeeOther, r.StatusCode)
	s.Equal(s.url(path), r.Header.Get("Location"))
	return path
}

func (s *Suite) TestRoot() {
	r := s.do("GET", "/", "", nil)
	s.Require().Equal(http.StatusOK, r.StatusCode)
	var root restdata.Root
	s.Require().NoError(restdata.DecodeItem(r.Body, &root))
	s.Equal(s.url("/review-requests/"), root.Links["review_requests"].Href)
	s.Equal(s.url("/"), root.Links["self"].Href)
	s.Equal(s.url("/review-requests/{review_request_id}/"), root.URITemplates["review_request"])
	s.Equal(s.url("/review-requests/{review_request_id}/reviews/"), root.URITemplates["reviews"])
	s.Equal(s.url("/users/{username}/"), root.URITemplates["user"])
	s.NotContains(root.URITemplates, "review_draft")
}

func (s *Suite) TestInfoAndSession() {
	r := s.do("GET", "/info/", "", nil)
	s.Require().Equal(http.StatusOK, r.StatusCode)
	info := r.Body["info"].(map[string]interface{})
	product := info["product"].(map[string]interface{})
	s.Equal("Review Board", product["name"])

	r = s.do("GET", "/session/", "", nil)
	var session restdata.Session
	s.Require().NoError(r.item("session", &session))
	s.False(session.Authenticated)

	r = s.do("GET", "/session/", "owner", nil)
	s.Require().NoError(r.item("session", &session))
	s.True(session.Authenticated)
	s.Equal(s.url("/users/owner/"), session.Links["user"].Href)
}

func (s *Suite) TestNotFound() {
	s.assertError(s.do("GET", "/no/such/thing/", "", nil), http.StatusNotFound, restdata.DoesNotExist)
	s.assertError(s.do("GET", "/review-requests/99/", "", nil), http.StatusNotFound, restdata.DoesNotExist)
	s.assertError(s.do("GET", "/users/nobody/", "", nil), http.StatusNotFound, restdata.DoesNotExist)
}

func (s *Suite) TestLoginFailed() {
	req, err := http.NewRequest("GET", s.url("/session/"), nil)
	s.Require().NoError(err)
	req.SetBasicAuth("owner", "wrong")
	resp, err := s.Client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	var er restdata.ErrorResponse
	s.Require().NoError(restdata.Decode(resp.Header.Get("Content-Type"), resp.Body, &er))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(restdata.LoginFailed, er.Err.Code)
}

func (s *Suite) TestMethodNotAllowed() {
	r := s.do("DELETE", "/users/", "admin", nil)
	s.Equal(http.StatusMethodNotAllowed, r.StatusCode)
}

func (s *Suite) TestXML() {
	req, err := http.NewRequest("GET", s.url("/users/owner/"), nil)
	s.Require().NoError(err)
	req.Header.Set("Accept", "application/xml")
	resp, err := s.Client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/xml", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Contains(buf.String(), "<rsp>")
	s.Contains(buf.String(), "<username>owner</username>")
}

func (s *Suite) TestPrivateRequest() {
	path, rr := s.newRequest()
	s.False(rr.Public)
	s.Equal("pending", rr.Status)
	s.Equal(s.url("/users/owner/"), rr.Links["submitter"].Href)
	s.Equal(s.url("/repositories/"+strconv.Itoa(s.Repo.ID)+"/"), rr.Links["repository"].Href)

	s.assertError(s.do("GET", path, "", nil), http.StatusUnauthorized, restdata.NotLoggedIn)
	s.assertError(s.do("GET", path, "reviewer", nil), http.StatusForbidden, restdata.PermissionDenied)
	s.Equal(http.StatusOK, s.do("GET", path, "owner", nil).StatusCode)
	s.Equal(http.StatusOK, s.do("GET", path, "admin", nil).StatusCode)
}

func (s *Suite) TestPublish() {
	path := s.publishedRequest()

	r := s.do("GET", path, "", nil)
	s.Require().Equal(http.StatusOK, r.StatusCode)
	var rr restdata.ReviewRequest
	s.Require().NoError(r.item("review_request", &rr))
	s.True(rr.Public)
	s.Equal("Fix the frobnicator", rr.Summary)
	if s.Len(rr.TargetGroups, 1) {
		s.Equal(s.url("/groups/qa/"), rr.TargetGroups[0].Href)
		s.Equal("qa", rr.TargetGroups[0].Title)
	}
	s.NotContains(rr.Links, "update")

	// The draft is gone once published
	s.assertError(s.do("GET", path+"draft/", "owner", nil), http.StatusNotFound, restdata.DoesNotExist)

	r = s.do("GET", path+"last-update/", "", nil)
	var lu restdata.LastUpdate
	s.Require().NoError(r.item("last_update", &lu))
	s.Equal(reviews.UpdateReviewRequest, lu.Type)
}

func (s *Suite) TestDraftValidation() {
	path, _ := s.newRequest()
	r := s.do("PUT", path+"draft/", "owner", url.Values{
		"summary":       {"ok"},
		"target_people": {"reviewer, nobody"},
	})
	s.assertError(r, http.StatusBadRequest, restdata.InvalidFormData)
	if diff := cmp.Diff(map[string][]string{"target_people": {"nobody"}}, r.errorBody().Fields); diff != "" {
		s.Fail("unexpected fields", diff)
	}

	// Neither PUT nor POST saves anything when a field is invalid
	r = s.do("GET", path+"draft/", "owner", nil)
	var d restdata.Draft
	s.Require().NoError(r.item("draft", &d))
	s.Equal("", d.Summary)

	r = s.do("POST", path+"draft/", "owner", url.Values{
		"summary":       {"changed"},
		"target_people": {"nobody"},
	})
	s.assertError(r, http.StatusBadRequest, restdata.InvalidFormData)
	r = s.do("GET", path+"draft/", "owner", nil)
	s.Require().NoError(r.item("draft", &d))
	s.Equal("", d.Summary)

	r = s.do("POST", path+"draft/", "owner", url.Values{"summary": {"created"}})
	s.Equal(http.StatusCreated, r.StatusCode)
	s.Require().NoError(r.item("draft", &d))
	s.Equal("created", d.Summary)

	r = s.do("PUT", path+"draft/", "owner", url.Values{"summary": {"updated"}})
	s.Equal(http.StatusOK, r.StatusCode)
	s.Require().NoError(r.item("draft", &d))
	s.Equal("updated", d.Summary)

	s.assertError(s.do("PUT", path+"draft/", "reviewer", url.Values{"summary": {"mine"}}),
		http.StatusForbidden, restdata.PermissionDenied)
}

func (s *Suite) TestImmutableField() {
	path, _ := s.newRequest()
	r := s.do("PUT", path, "owner", url.Values{"summary": {"direct"}})
	s.assertError(r, http.StatusBadRequest, restdata.InvalidFormData)
	s.Contains(r.errorBody().Fields, "summary")
}

func (s *Suite) TestCloseAndList() {
	path := s.publishedRequest()
	s.publishedRequest()

	r := s.do("GET", "/review-requests/?counts-only=1", "", nil)
	s.Equal(int64(2), toInt(r.Body["count"]))

	r = s.do("PUT", path, "owner", url.Values{"status": {"submitted"}})
	s.Require().Equal(http.StatusOK, r.StatusCode)

	r = s.do("GET", "/review-requests/", "", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))
	r = s.do("GET", "/review-requests/?status=all&max-results=1", "", nil)
	s.Equal(int64(2), toInt(r.Body["total_results"]))
	s.Len(r.Body["review_requests"], 1)
	links := r.Body["links"].(map[string]interface{})
	s.Contains(links, "next")
	s.NotContains(links, "prev")

	r = s.do("GET", "/review-requests/?status=bogus", "", nil)
	s.assertError(r, http.StatusBadRequest, restdata.InvalidFormData)

	s.assertError(s.do("PUT", path, "reviewer", url.Values{"status": {"pending"}}),
		http.StatusForbidden, restdata.PermissionDenied)
	s.assertError(s.do("DELETE", path, "owner", nil), http.StatusForbidden, restdata.PermissionDenied)
	s.Equal(http.StatusNoContent, s.do("DELETE", path, "admin", nil).StatusCode)
	s.assertError(s.do("GET", path, "admin", nil), http.StatusNotFound, restdata.DoesNotExist)
}

func toInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return -1
}

func (s *Suite) TestReviews() {
	path := s.publishedRequest()

	r := s.do("POST", path+"reviews/", "reviewer", url.Values{"body_top": {"Looks good"}})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	var review restdata.Review
	s.Require().NoError(r.item("review", &review))
	s.False(review.Public)
	reviewURL := r.Header.Get("Location")

	// A second POST finds the same unpublished review
	r = s.do("POST", path+"reviews/", "reviewer", url.Values{"ship_it": {"1"}})
	s.Equal(http.StatusSeeOther, r.StatusCode)
	s.Equal(reviewURL, r.Header.Get("Location"))

	r = s.do("GET", path+"reviews/draft/", "reviewer", nil)
	s.Equal(http.StatusMovedPermanently, r.StatusCode)
	s.Equal(reviewURL, r.Header.Get("Location"))
	s.assertError(s.do("GET", path+"reviews/draft/", "owner", nil), http.StatusNotFound, restdata.DoesNotExist)

	// Unpublished reviews are private
	s.assertError(s.do("GET", reviewURL, "owner", nil), http.StatusForbidden, restdata.PermissionDenied)
	r = s.do("GET", path+"reviews/", "owner", nil)
	s.Equal(int64(0), toInt(r.Body["total_results"]))

	s.Clock.Add(time.Minute)
	r = s.do("PUT", reviewURL, "reviewer", url.Values{"public": {"1"}})
	s.Require().Equal(http.StatusOK, r.StatusCode)
	s.Require().NoError(r.item("review", &review))
	s.True(review.Public)
	s.True(review.ShipIt)
	s.Equal("Looks good", review.BodyTop)

	// Public reviews are frozen
	s.assertError(s.do("PUT", reviewURL, "reviewer", url.Values{"body_top": {"again"}}),
		http.StatusForbidden, restdata.PermissionDenied)

	r = s.do("GET", path+"last-update/", "", nil)
	var lu restdata.LastUpdate
	s.Require().NoError(r.item("last_update", &lu))
	s.Equal(reviews.UpdateReview, lu.Type)
	s.Equal(s.url("/users/reviewer/"), lu.Links["user"].Href)

	// The owner replies
	r = s.do("POST", reviewURL+"replies/", "owner", url.Values{"body_top": {"Thanks"}, "public": {"1"}})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	var reply restdata.Review
	s.Require().NoError(r.item("reply", &reply))
	s.True(reply.Public)
	s.True(strings.HasPrefix(r.Header.Get("Location"), reviewURL+"replies/"))
}

func (s *Suite) upload(path, user string) response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("path", "fix.diff")
	s.Require().NoError(err)
	_, err = fw.Write([]byte(sampleDiff))
	s.Require().NoError(err)
	s.Require().NoError(mw.WriteField("basedir", "/trunk"))
	s.Require().NoError(mw.Close())
	req, err := http.NewRequest("POST", s.url(path), &body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, user)
}

func (s *Suite) TestDiffs() {
	path := s.publishedRequest()

	s.assertError(s.do("POST", path+"diffs/", "owner", url.Values{}), http.StatusBadRequest, restdata.InvalidFormData)

	r := s.upload(path+"diffs/", "owner")
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	s.Equal(s.url(path+"diffs/0/"), r.Header.Get("Location"))

	// The pending diff is only visible through the draft
	s.assertError(s.do("GET", path+"diffs/0/", "reviewer", nil), http.StatusForbidden, restdata.PermissionDenied)
	r = s.do("GET", path+"diffs/", "", nil)
	s.Equal(int64(0), toInt(r.Body["total_results"]))

	r = s.do("PUT", path+"draft/", "owner", url.Values{"public": {"1"}})
	s.Require().Equal(http.StatusSeeOther, r.StatusCode)

	r = s.do("GET", path+"diffs/1/", "", nil)
	s.Require().Equal(http.StatusOK, r.StatusCode)
	var diff restdata.Diff
	s.Require().NoError(r.item("diff", &diff))
	s.Equal(1, diff.Revision)
	s.Equal("fix.diff", diff.Name)

	req, err := http.NewRequest("GET", s.url(path+"diffs/1/"), nil)
	s.Require().NoError(err)
	req.Header.Set("Accept", restdata.PatchMediaType)
	resp, err := s.Client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(restdata.PatchMediaType, resp.Header.Get("Content-Type"))
	s.Contains(resp.Header.Get("Content-Disposition"), "fix.diff")
	var patch bytes.Buffer
	_, err = patch.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Contains(patch.String(), "+there")

	r = s.do("GET", path+"diffs/1/files/", "", nil)
	files := r.Body["files"].([]interface{})
	s.Require().Len(files, 1)
	fileURL := files[0].(map[string]interface{})["links"].(map[string]interface{})["self"].(map[string]interface{})["href"].(string)

	req, err = http.NewRequest("GET", fileURL, nil)
	s.Require().NoError(err)
	req.Header.Set("Accept", restdata.DiffDataJSONMediaType)
	r = s.send(req, "")
	s.Require().Equal(http.StatusOK, r.StatusCode)
	s.Contains(r.Body, "diff_data")

	// Comment on the file, and find the comment from the file
	r = s.do("POST", path+"reviews/", "reviewer", url.Values{"public": {"0"}})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	reviewURL := r.Header.Get("Location")
	fileID := fileURL[strings.LastIndex(strings.TrimSuffix(fileURL, "/"), "/")+1 : len(fileURL)-1]
	r = s.do("POST", reviewURL+"diff-comments/", "reviewer", url.Values{
		"filediff_id": {fileID},
		"first_line":  {"2"},
		"num_lines":   {"1"},
		"text":        {"why?"},
	})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	var comment restdata.DiffComment
	s.Require().NoError(r.item("diff_comment", &comment))
	s.Equal("why?", comment.Text)
	s.Equal(fileURL, comment.Links["filediff"].Href)

	r = s.do("GET", fileURL+"diff-comments/", "reviewer", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))
	r = s.do("GET", fileURL+"diff-comments/", "owner", nil)
	s.Equal(int64(0), toInt(r.Body["total_results"]))
}

func (s *Suite) TestWatched() {
	path := s.publishedRequest()
	_, rr := s.newRequest()
	id := path[len("/review-requests/") : len(path)-1]

	list := "/users/reviewer/watched/review-requests/"
	r := s.do("POST", list, "reviewer", url.Values{"object_id": {id}})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	entryURL := r.Header.Get("Location")

	r = s.do("GET", list, "reviewer", nil)
	var entries []restdata.Watched
	s.Require().NoError(restdata.DecodeItem(r.Body["watched_review_requests"], &entries))
	if s.Len(entries, 1) && s.NotNil(entries[0].ReviewRequest) {
		s.Equal("Fix the frobnicator", entries[0].ReviewRequest.Summary)
	}

	r = s.do("GET", entryURL, "reviewer", nil)
	s.Equal(http.StatusFound, r.StatusCode)
	s.Equal(s.url(path), r.Header.Get("Location"))

	// Nobody else can change the list, and private requests cannot
	// be starred
	s.assertError(s.do("POST", list, "owner", url.Values{"object_id": {id}}),
		http.StatusForbidden, restdata.PermissionDenied)
	s.assertError(s.do("POST", list, "reviewer", url.Values{"object_id": {strconv.Itoa(rr.ID)}}),
		http.StatusForbidden, restdata.PermissionDenied)
	s.assertError(s.do("POST", list, "reviewer", url.Values{}), http.StatusBadRequest, restdata.InvalidFormData)

	s.Equal(http.StatusNoContent, s.do("DELETE", entryURL, "reviewer", nil).StatusCode)
	r = s.do("GET", list+"?counts-only=1", "reviewer", nil)
	s.Equal(int64(0), toInt(r.Body["count"]))

	// Removing it again still succeeds
	s.Equal(http.StatusNoContent, s.do("DELETE", entryURL, "reviewer", nil).StatusCode)
	s.assertError(s.do("GET", entryURL, "reviewer", nil), http.StatusNotFound, restdata.DoesNotExist)
}

func (s *Suite) TestUnwatchGroupTwice() {
	list := "/users/owner/watched/review-groups/"
	r := s.do("POST", list, "owner", url.Values{"object_id": {"qa"}})
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	entryURL := r.Header.Get("Location")

	s.Equal(http.StatusNoContent, s.do("DELETE", entryURL, "owner", nil).StatusCode)
	s.Equal(http.StatusNoContent, s.do("DELETE", entryURL, "owner", nil).StatusCode)
	s.assertError(s.do("DELETE", entryURL, "reviewer", nil), http.StatusForbidden, restdata.PermissionDenied)
}

func (s *Suite) TestGroups() {
	r := s.do("GET", "/groups/?q=Qual&displayname=1", "", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))

	r = s.do("GET", "/groups/qa/users/", "", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))
	s.Equal(http.StatusOK, s.do("GET", "/groups/qa/users/reviewer/", "", nil).StatusCode)
	s.assertError(s.do("GET", "/groups/qa/users/owner/", "", nil), http.StatusNotFound, restdata.DoesNotExist)
}

func (s *Suite) TestRepositoryInfo() {
	r := s.do("GET", "/repositories/"+strconv.Itoa(s.Repo.ID)+"/info/", "owner", nil)
	s.assertError(r, http.StatusNotImplemented, restdata.RepoNotImplemented)
}

func (s *Suite) TestScreenshots() {
	files, err := blobstore.OpenDir(s.T().TempDir())
	s.Require().NoError(err)
	s.Service.Files = files
	path := s.publishedRequest()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("path", "shot.png")
	s.Require().NoError(err)
	_, err = fw.Write([]byte("not really a png"))
	s.Require().NoError(err)
	s.Require().NoError(mw.WriteField("caption", "Before"))
	s.Require().NoError(mw.Close())
	req, err := http.NewRequest("POST", s.url(path+"screenshots/"), &body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r := s.send(req, "owner")
	s.Require().Equal(http.StatusCreated, r.StatusCode)
	item, ok := r.Body["draft_screenshot"].(map[string]interface{})
	s.Require().True(ok, "upload answers with the draft view")
	s.Equal("Before", item["caption"])
	id := strconv.Itoa(int(toInt(item["id"])))
	s.Equal(s.url(path+"draft/screenshots/"+id+"/"), r.Header.Get("Location"))

	// Staged in the draft until it is published
	r = s.do("GET", path+"screenshots/", "owner", nil)
	s.Equal(int64(0), toInt(r.Body["total_results"]))
	r = s.do("GET", path+"draft/screenshots/", "owner", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))
	s.assertError(s.do("GET", path+"screenshots/"+id+"/", "owner", nil), http.StatusNotFound, restdata.DoesNotExist)

	r = s.do("PUT", path+"draft/", "owner", url.Values{"public": {"1"}})
	s.Require().Equal(http.StatusSeeOther, r.StatusCode)

	r = s.do("GET", path+"screenshots/", "reviewer", nil)
	s.Equal(int64(1), toInt(r.Body["total_results"]))

	req, err = http.NewRequest("GET", s.url(path+"screenshots/"+id+"/"), nil)
	s.Require().NoError(err)
	req.Header.Set("Accept", "image/png")
	resp, err := s.Client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("image/png", resp.Header.Get("Content-Type"))
	var image bytes.Buffer
	_, err = image.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Equal("not really a png", image.String())

	s.assertError(s.do("PUT", path+"screenshots/"+id+"/", "reviewer", url.Values{"caption": {"Mine"}}),
		http.StatusForbidden, restdata.PermissionDenied)
}
