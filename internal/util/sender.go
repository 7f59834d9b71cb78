package util

import (
	"net/mail"
	"strings"
)

// SenderKey reduces a From header to the address used to group candidates:
// lowercased, with any +tag removed from the local part. Dots are kept since
// only some providers ignore them. A header that is a list yields its first
// parseable address. Returns "" when no address can be found.
func SenderKey(from string) string {
	addr := firstAddress(from)
	if addr == "" {
		return ""
	}
	addr = strings.ToLower(addr)
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 {
		return addr
	}
	local, domain := addr[:at], addr[at+1:]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	return local + "@" + domain
}

func firstAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if a, err := mail.ParseAddress(from); err == nil {
		return strings.TrimSpace(a.Address)
	}
	for _, part := range strings.Split(from, ",") {
		if a, err := mail.ParseAddress(strings.TrimSpace(part)); err == nil {
			return strings.TrimSpace(a.Address)
		}
	}
	return ""
}

// SenderDisplayName picks a label for a sender: the phrase before the angle
// address when present, otherwise the local part of key in title case.
func SenderDisplayName(from, key string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		if name := strings.Trim(strings.TrimSpace(from[:idx]), `"'`); name != "" {
			return name
		}
	}
	at := strings.IndexByte(key, '@')
	if at <= 0 {
		return key
	}
	words := strings.Split(key[:at], ".")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
