// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/jtacoma/uritemplates"
	"github.com/ugorji/go/codec"
)

// transport holds what every request needs besides its URL.
type transport struct {
	HTTP     *http.Client
	Username string
	Password string
	// Header holds extra headers sent with every request.
	Header http.Header
}

// resource is any object that has a URL and a representation.
type resource struct {
	URL *url.URL
	*transport
}

// Template expands a URI template from the root document.  String
// values are encoded as names and integers are formatted in decimal.
func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}

	expandVars := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		switch vv := v.(type) {
		case string:
			expandVars[k] = restdata.MaybeEncodeName(vv)
		case int:
			expandVars[k] = strconv.Itoa(vv)
		default:
			expandVars[k] = v
		}
	}

	expanded, err := tmpl.Expand(expandVars)
	if err != nil {
		return nil, err
	}
	return r.URL.Parse(expanded)
}

// Upload is a multipart request body.  Values are sent as form fields
// and Files maps a field name to a file.
type Upload struct {
	Values url.Values
	Files  map[string]UploadFile
}

// UploadFile is one file in an Upload.
type UploadFile struct {
	Filename string
	Data     []byte
}

func (u *Upload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range u.Values {
		for _, value := range values {
			if err := w.WriteField(name, value); err != nil {
				return nil, "", err
			}
		}
	}
	for name, file := range u.Files {
		part, err := w.CreateFormFile(name, file.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Do performs some HTTP action.  in may be nil, url.Values for a
// form body, an *Upload for a multipart body, or anything else to be
// sent as JSON.  If out is non-nil, the response envelope is decoded
// into it, and it must be of pointer type.
func (r *resource) Do(method string, u *url.URL, in, out interface{}) (err error) {
	var (
		body        io.Reader
		contentType string
	)
	switch v := in.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(v.Encode())
		contentType = restdata.FormMediaType
	case *Upload:
		body, contentType, err = v.encode()
		if err != nil {
			return err
		}
	default:
		reader, writer := io.Pipe()
		encoder := codec.NewEncoder(writer, restdata.JSONHandle())
		finished := make(chan error)
		go func() {
			err := encoder.Encode(in)
			err = firstError(err, writer.Close())
			finished <- err
		}()
		defer func() {
			err = firstError(err, <-finished)
		}()
		body = reader
		contentType = restdata.JSONMediaType
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, values := range r.Header {
		req.Header[name] = values
	}
	req.Header.Set("Accept", restdata.JSONMediaType)
	if r.Username != "" {
		req.SetBasicAuth(r.Username, r.Password)
	}

	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	if err = checkHTTPStatus(resp); err != nil {
		return err
	}

	if resp.Body != nil && out != nil && resp.StatusCode != http.StatusNoContent {
		contentType := resp.Header.Get("Content-Type")
		err = restdata.Decode(contentType, resp.Body, out)
	}

	return err // may be nil
}

// envelope is a decoded response body.
type envelope map[string]interface{}

// item copies the named member of the envelope into out.
func (e envelope) item(name string, out interface{}) error {
	value, present := e[name]
	if !present {
		return ErrMissingMember{Name: name}
	}
	return restdata.DecodeItem(value, out)
}

// Get retrieves the resource from its own URL.
func (r *resource) Get(out interface{}) error {
	return r.Do("GET", r.URL, nil, out)
}

// GetFrom retrieves a resource from some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.
func (r *resource) GetFrom(template string, vars map[string]interface{}, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("GET", url, nil, out)
	}
	return err
}

// PutTo updates a resource at some other URL.
func (r *resource) PutTo(template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("PUT", url, in, out)
	}
	return err
}

// PostTo submits data to a list at some other URL.
func (r *resource) PostTo(template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("POST", url, in, out)
	}
	return err
}

// DeleteAt deletes the resource at some other URL.
func (r *resource) DeleteAt(template string, vars map[string]interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do("DELETE", url, nil, nil)
	}
	return err
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// ErrMissingMember is returned when a response lacks the expected
// object.
type ErrMissingMember struct {
	Name string
}

func (e ErrMissingMember) Error() string {
	return "response has no " + e.Name
}

// ErrNoTemplate is returned when the server does not advertise a
// resource the client needs.
type ErrNoTemplate struct {
	Name string
}

func (e ErrNoTemplate) Error() string {
	return "server has no URI template for " + e.Name
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	var errResp restdata.ErrorResponse
	contentType := resp.Header.Get("Content-Type")
	err2 := restdata.Decode(contentType, bytes.NewReader(body), &errResp)
	if err2 == nil && errResp.Stat == restdata.StatFail {
		return errResp.ToError()
	}

	return ErrorHTTP{Response: resp, Body: string(body)}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
