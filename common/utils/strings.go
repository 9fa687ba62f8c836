package utils

import (
	"strings"
	"unicode"
)

//Remove control symbols
func Trim(str string) string {
	return strings.TrimFunc(str, func(c rune) bool {
		return unicode.IsControl(c)
	})
}

// Basename returns the last component of a Windows or POSIX path.
// A path without separators is returned as is.
func Basename(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
