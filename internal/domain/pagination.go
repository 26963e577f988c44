package domain

import (
	"encoding/base64"
	"strconv"
)

// Page size bounds for history listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageRequest selects one page of a listing. PageToken is opaque to clients;
// it carries the offset of the first record.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Offset decodes the page token. A malformed token reads as the first page.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Limit returns the page size clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultPageSize
	case p.MaxResults > MaxPageSize:
		return MaxPageSize
	}
	return p.MaxResults
}

// NextPageToken returns the token for the page after the one at offset, or ""
// when total records have been exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if next <= 0 || int64(next) >= total {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(next)))
}
