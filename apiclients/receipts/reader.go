package receipts

import (
	"bytes"
	"io"
)

// readerFor wraps a possibly-nil byte slice for use as a request
// body.
func readerFor(body []byte) io.Reader {
	if body == nil {
		return bytes.NewReader([]byte{})
	}
	return bytes.NewReader(body)
}
