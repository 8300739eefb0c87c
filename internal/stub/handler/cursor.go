package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const pageTokenPrefix = "offset"

// DecodePageToken returns the listing offset a page token points at.
// An empty token is the first page.
func DecodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 || parts[0] != pageTokenPrefix {
		return 0, fmt.Errorf("invalid page token format")
	}

	var offset int
	if _, err := fmt.Sscanf(parts[1], "%d", &offset); err != nil {
		return 0, fmt.Errorf("invalid offset in page token: %w", err)
	}
	if offset < 0 {
		return 0, fmt.Errorf("invalid offset in page token: %d", offset)
	}

	return offset, nil
}

// EncodePageToken builds the token for the page starting at offset
func EncodePageToken(offset int) string {
	cs := fmt.Sprintf("%s|%d", pageTokenPrefix, offset)
	return base64.RawURLEncoding.EncodeToString([]byte(cs))
}
