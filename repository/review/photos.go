package reviewrepo

import "strings"

// photo_urls is stored as a newline-joined text column.

func joinURLs(urls []string) string { return strings.Join(urls, "\n") }

func splitURLs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
