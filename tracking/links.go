package tracking

import (
	"net/url"
	"strings"
)

// ScanURL builds the deep link encoded into a part's QR code.
func ScanURL(base, partID string) string {
	return strings.TrimRight(base, "/") + "/scan/" + url.PathEscape(partID)
}

// SafeFileName replaces characters that are not allowed in file names.
func SafeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/*?:"<>|`, r) {
			return '_'
		}
		return r
	}, name)
}
