package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeForObject(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"photos/abc/original.jpg":  "image/jpeg",
		"photos/abc/original.jpeg": "image/jpeg",
		"illustrations/p1/v1.png":  "image/png",
		"photos/abc/original.webp": "image/webp",
		"photos/abc/original.heic": "image/heic",
		"photos/abc/original.gif":  "image/gif",
		"photos/abc/original.cr2":  "application/octet-stream",
		"photos/abc/no-extension":  "application/octet-stream",
	}

	for objectName, want := range cases {
		assert.Equal(t, want, ContentTypeForObject(objectName), objectName)
	}
}
