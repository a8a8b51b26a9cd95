package types

import "strings"

// RedactEmail masks the local part of an address for logging, keeping its
// first character: "john@gmail.com" becomes "j***@gmail.com". Strings without
// an "@" are masked entirely.
func RedactEmail(addr string) string {
	if addr == "" {
		return ""
	}

	local, domain, ok := strings.Cut(addr, "@")
	switch {
	case !ok:
		return "***"
	case local == "":
		return "***@" + domain
	default:
		return local[:1] + "***@" + domain
	}
}
