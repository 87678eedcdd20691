// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct{ plain, encoded string }{
		{"alice", "alice"},
		{"dev.team_2", "dev.team_2"},
		{"", "-"},
		{"-", "-LQ"},
		{"\u0000", "-AA"},
		{"bob@example.com", "-Ym9iQGV4YW1wbGUuY29t"},
	}
	for _, test := range tests {
		assert.Equal(t, test.encoded, MaybeEncodeName(test.plain),
			"MaybeEncodeName(%q)", test.plain)

		dec, err := MaybeDecodeName(test.encoded)
		if assert.NoError(t, err, "MaybeDecodeName(%q)", test.encoded) {
			assert.Equal(t, test.plain, dec)
		}
	}
}

func TestDecodeBadName(t *testing.T) {
	_, err := MaybeDecodeName("-!!")
	assert.Error(t, err)
}
