package auth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrNoBasicAuth is returned when a header does not carry basic credentials.
var ErrNoBasicAuth = errors.New("missing basic authorization")

// ParseBasic decodes an "Authorization: Basic" header value into username
// and password. The password may be empty.
func ParseBasic(header string) (username, password string, err error) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", ErrNoBasicAuth
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", errors.Join(ErrNoBasicAuth, err)
	}
	username, password, _ = strings.Cut(string(raw), ":")
	if username == "" {
		return "", "", ErrNoBasicAuth
	}
	return username, password, nil
}
