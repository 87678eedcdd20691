// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Summary *string `mapstructure:"summary"`
	Public  bool    `mapstructure:"public"`
	Line    *int    `mapstructure:"first_line"`
}

func TestPayloadForm(t *testing.T) {
	form := url.Values{"summary": {"Fix it"}, "public": {"1"}, "first_line": {"10"}}
	req := httptest.NewRequest("PUT", "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", FormMediaType)

	p, err := ReadPayload(req)
	require.NoError(t, err)
	assert.True(t, p.Has("summary"))
	assert.False(t, p.Has("description"))

	var s sample
	require.NoError(t, p.Decode(&s))
	if assert.NotNil(t, s.Summary) {
		assert.Equal(t, "Fix it", *s.Summary)
	}
	assert.True(t, s.Public)
	if assert.NotNil(t, s.Line) {
		assert.Equal(t, 10, *s.Line)
	}
}

func TestPayloadJSON(t *testing.T) {
	body := `{"summary": "Fix it", "public": true, "first_line": 3}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", VendorJSON("draft"))

	p, err := ReadPayload(req)
	require.NoError(t, err)
	var s sample
	require.NoError(t, p.Decode(&s))
	assert.True(t, s.Public)
	if assert.NotNil(t, s.Line) {
		assert.Equal(t, 3, *s.Line)
	}
	str, ok := p.String("first_line")
	assert.True(t, ok)
	assert.Equal(t, "3", str)
}

func TestPayloadMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("basedir", "/trunk"))
	fw, err := mw.CreateFormFile("path", "change.diff")
	require.NoError(t, err)
	_, err = fw.Write([]byte("--- a\n+++ b\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	p, err := ReadPayload(req)
	require.NoError(t, err)

	basedir, _ := p.String("basedir")
	assert.Equal(t, "/trunk", basedir)
	if f := p.Files["path"]; assert.NotNil(t, f) {
		assert.Equal(t, "change.diff", f.Filename)
		assert.Equal(t, "--- a\n+++ b\n", string(f.Data))
	}
}

func TestPayloadEmpty(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	p, err := ReadPayload(req)
	require.NoError(t, err)
	assert.Empty(t, p.Values)

	// Unknown length, no Content-Type, nothing sent
	req = httptest.NewRequest("PUT", "/", ioutil.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	p, err = ReadPayload(req)
	require.NoError(t, err)
	assert.Empty(t, p.Values)
}

func TestPayloadNoContentType(t *testing.T) {
	req := httptest.NewRequest("POST", "/", ioutil.NopCloser(strings.NewReader("summary=x")))
	req.ContentLength = -1
	_, err := ReadPayload(req)
	assert.IsType(t, ErrBadRequest{}, err)
}

func TestPayloadUnsupported(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader("<x/>"))
	req.Header.Set("Content-Type", "image/png")
	_, err := ReadPayload(req)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "image/png"}, err)
}

func TestPayloadInvalidValue(t *testing.T) {
	p := &Payload{Values: map[string]interface{}{"first_line": "ten"}}
	var s sample
	err := p.Decode(&s)
	if assert.IsType(t, reviews.ErrInvalidInput{}, err) {
		assert.Contains(t, err.(reviews.ErrInvalidInput).Fields, "first_line")
	}
}

func TestDecodeItem(t *testing.T) {
	var rr ReviewRequest
	in := map[string]interface{}{
		"id":          int64(4),
		"summary":     "Hi",
		"bugs_closed": []interface{}{"1", "2"},
		"links": map[string]interface{}{
			"self": map[string]interface{}{"method": "GET", "href": "http://x/"},
		},
	}
	require.NoError(t, DecodeItem(in, &rr))
	assert.Equal(t, 4, rr.ID)
	assert.Equal(t, []string{"1", "2"}, rr.BugsClosed)
	assert.Equal(t, "http://x/", rr.Links["self"].Href)
}

func TestPayloadJoinLists(t *testing.T) {
	p := &Payload{Values: map[string]interface{}{
		"target_people": []interface{}{"alice", "bob"},
		"bugs_closed":   "12, 14",
	}}
	p.JoinLists("target_people", "bugs_closed", "target_groups")
	assert.Equal(t, "alice, bob", p.Values["target_people"])
	assert.Equal(t, "12, 14", p.Values["bugs_closed"])
	assert.False(t, p.Has("target_groups"))
}
