package discovery

import "strings"

// SplitSrcset returns the URL of every candidate in a srcset attribute.
// Descriptors are dropped, as are empty and data: entries.
func SplitSrcset(srcset string) []string {
	var urls []string
	for _, item := range strings.Split(srcset, ",") {
		item = strings.TrimSpace(item)
		token, _, _ := strings.Cut(item, " ")
		if token == "" || strings.HasPrefix(token, "data:") {
			continue
		}
		urls = append(urls, token)
	}
	return urls
}
