package ai

import (
	"errors"
	"net"
	"net/url"
)

// isTransport reports whether err came from the HTTP transport rather than
// from a response.
func isTransport(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
