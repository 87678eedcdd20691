// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeXML(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeXML(&buf, map[string]interface{}{
		"stat": "ok",
		"review": map[string]interface{}{
			"id":        7,
			"ship_it":   true,
			"timestamp": time.Date(2017, 3, 1, 12, 30, 0, 0, time.UTC),
			"bugs":      []string{"12", "14"},
			"links":     Links{"self": {Method: "GET", Href: "http://x/"}},
		},
	})
	require.NoError(t, err)
	expected := xml.Header + "<rsp><review>" +
		"<bugs><array><item>12</item><item>14</item></array></bugs>" +
		"<id>7</id>" +
		"<links><self><method>GET</method><href>http://x/</href></self></links>" +
		"<ship_it>1</ship_it>" +
		"<timestamp>2017-03-01 12:30:00</timestamp>" +
		"</review><stat>ok</stat></rsp>"
	assert.Equal(t, expected, buf.String())
}

func TestEncodeXMLError(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(ErrMissingAttribute{Name: "path"})
	var buf bytes.Buffer
	require.NoError(t, EncodeXML(&buf, &resp))
	assert.Contains(t, buf.String(), "<stat>fail</stat><err><code>106</code>")
	assert.Contains(t, buf.String(), "<attribute>path</attribute>")
	assert.NotContains(t, buf.String(), "Status")
}
