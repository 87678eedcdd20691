// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/mitchellh/mapstructure"
	"github.com/ugorji/go/codec"
)

var errNoContentType = errors.New("request body has no Content-Type")

// maxMemory bounds the part of a multipart body held in memory; the
// rest spills to temporary files.
const maxMemory = 32 << 20

// JSONHandle returns the codec handle used for every JSON body.
// Objects decode into map[string]interface{} and map keys encode in
// sorted order.
func JSONHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.Canonical = true
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// IsJSON returns true if mediaType is any of the JSON media types.
func IsJSON(mediaType string) bool {
	switch mediaType {
	case JSONMediaType, "text/json":
		return true
	}
	return strings.HasPrefix(mediaType, VendorMediaTypePrefix) &&
		strings.HasSuffix(mediaType, "+json")
}

// IsXML returns true if mediaType is any of the XML media types.
func IsXML(mediaType string) bool {
	switch mediaType {
	case XMLMediaType, "text/xml":
		return true
	}
	return strings.HasPrefix(mediaType, VendorMediaTypePrefix) &&
		strings.HasSuffix(mediaType, "+xml")
}

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}
	if !IsJSON(mediaType) {
		return ErrUnsupportedMediaType{Type: mediaType}
	}
	decoder := codec.NewDecoder(r, JSONHandle())
	return decoder.Decode(out)
}

// EncodeJSON writes v as JSON.
func EncodeJSON(w io.Writer, v interface{}) error {
	encoder := codec.NewEncoder(w, JSONHandle())
	return encoder.Encode(v)
}

// DecodeItem copies a decoded JSON object into one of the typed
// representations in this package.
func DecodeItem(in interface{}, out interface{}) error {
	config := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

// File is one uploaded file from a multipart request.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Payload is the body of a PUT or POST request, independent of its
// encoding.  Form values are strings; JSON values keep their types.
type Payload struct {
	Values map[string]interface{}
	Files  map[string]*File
}

// ReadPayload reads the body of req.  An empty body is an empty
// payload, whether or not its length was declared.  A non-empty body
// needs a Content-Type.
func ReadPayload(req *http.Request) (*Payload, error) {
	p := &Payload{
		Values: make(map[string]interface{}),
		Files:  make(map[string]*File),
	}
	contentType := req.Header.Get("Content-Type")
	if req.Body == nil || req.ContentLength == 0 {
		return p, nil
	}
	if contentType == "" {
		first, err := ioutil.ReadAll(io.LimitReader(req.Body, 1))
		if err != nil {
			return nil, ErrBadRequest{Err: err}
		}
		if len(first) == 0 {
			return p, nil
		}
		return nil, ErrBadRequest{Err: errNoContentType}
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, ErrBadRequest{Err: err}
	}
	switch {
	case mediaType == FormMediaType:
		if err := req.ParseForm(); err != nil {
			return nil, ErrBadRequest{Err: err}
		}
		for name, values := range req.PostForm {
			p.Values[name] = values[0]
		}
	case mediaType == MultipartMediaType:
		if err := req.ParseMultipartForm(maxMemory); err != nil {
			return nil, ErrBadRequest{Err: err}
		}
		for name, values := range req.MultipartForm.Value {
			p.Values[name] = values[0]
		}
		for name, headers := range req.MultipartForm.File {
			f, err := headers[0].Open()
			if err != nil {
				return nil, ErrBadRequest{Err: err}
			}
			data, err := ioutil.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, ErrBadRequest{Err: err}
			}
			p.Files[name] = &File{
				Filename:    headers[0].Filename,
				ContentType: headers[0].Header.Get("Content-Type"),
				Data:        data,
			}
		}
	case IsJSON(mediaType):
		var values map[string]interface{}
		if err := Decode(mediaType, req.Body, &values); err != nil {
			return nil, ErrBadRequest{Err: err}
		}
		for name, value := range values {
			p.Values[name] = value
		}
	default:
		return nil, ErrUnsupportedMediaType{Type: mediaType}
	}
	return p, nil
}

// Has returns true if the payload sets name.
func (p *Payload) Has(name string) bool {
	_, ok := p.Values[name]
	return ok
}

// String returns a value as a string, and whether it was present.
func (p *Payload) String(name string) (string, bool) {
	v, ok := p.Values[name]
	if !ok {
		return "", false
	}
	var s string
	if err := DecodeItem(v, &s); err != nil {
		return "", true
	}
	return s, true
}

// quotedName finds the field name in a mapstructure error message.
var quotedName = regexp.MustCompile(`'([^']*)'`)

// Decode copies the payload into a struct with mapstructure tags.
// Values are weakly typed, so "1" decodes into a bool or an int.  A
// value that cannot be converted is an ErrInvalidInput naming its
// field.
func (p *Payload) Decode(out interface{}) error {
	config := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	err = decoder.Decode(p.Values)
	if merr, ok := err.(*mapstructure.Error); ok {
		var invalid reviews.ErrInvalidInput
		for _, msg := range merr.Errors {
			name := "__all__"
			if m := quotedName.FindStringSubmatch(msg); m != nil {
				name = m[1]
			}
			invalid.Add(name, "This field has an invalid value")
		}
		return invalid
	}
	return err
}

// JoinLists rewrites list values of the named fields as
// comma-separated text, the form clients send in URL-encoded bodies.
func (p *Payload) JoinLists(names ...string) {
	for _, name := range names {
		list, ok := p.Values[name].([]interface{})
		if !ok {
			continue
		}
		parts := make([]string, len(list))
		for i, item := range list {
			_ = DecodeItem(item, &parts[i])
		}
		p.Values[name] = strings.Join(parts, ", ")
	}
}
