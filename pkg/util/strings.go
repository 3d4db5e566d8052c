package util

import "unicode/utf8"

func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

// TrimString cuts s down to at most length characters without splitting a rune.
// A length of zero or less disables trimming.
func TrimString(s string, length int) string {
	if length <= 0 || utf8.RuneCountInString(s) <= length {
		return s
	}

	runes := []rune(s)
	return string(runes[:length])
}
