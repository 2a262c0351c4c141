package catalog

import (
	"regexp"
	"strings"
)

// Only the Google Drive sharing-link layout is recognized and rewritten.
// Any other non-empty string passes through unchanged.
var drivePattern = regexp.MustCompile(`https://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)/view`)

// DriveStorageURL converts a Drive sharing link to its direct-download form,
// the canonical form persisted in the catalog.
func DriveStorageURL(url string) string {
	s := strings.TrimSpace(url)
	if s == "" {
		return ""
	}
	if m := drivePattern.FindStringSubmatch(s); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	return s
}

// DriveDisplayURL converts a Drive sharing link to its thumbnail-service form
// for previews.
func DriveDisplayURL(url string) string {
	s := strings.TrimSpace(url)
	if s == "" {
		return ""
	}
	if m := drivePattern.FindStringSubmatch(s); m != nil {
		return "https://drive.google.com/thumbnail?id=" + m[1] + "&sz=w300-h300"
	}
	return s
}
