package detect

import (
	"strconv"
	"strings"
)

// placeholders are values firmware and tools print when they have nothing
// real to report. Compared after NormalizeKey.
var placeholders = func() map[string]bool {
	m := make(map[string]bool)
	for _, s := range []string{
		"",
		"none",
		"n/a",
		"na",
		"null",
		"unknown",
		"not specified",
		"not available",
		"not provided",
		"not present",
		"not applicable",
		"unspecified",
		"default string",
		"to be filled by o.e.m.",
		"to be filled by oem",
		"system serial number",
		"system product name",
		"system manufacturer",
		"system version",
		"base board serial number",
		"chassis serial number",
		"serial number",
		"0123456789",
		"123456789",
		"1234567890",
		"no asset tag",
		"no dimm",
		"oem",
		"o.e.m.",
		"ffffffff",
		"ffffffffffffffff",
		"03000200-0400-0500-0006-000700080009",
	} {
		m[s] = true
	}
	return m
}()

// NormalizeKey is the canonical form for identity comparison: trimmed
// and case-folded.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsPlaceholder reports whether s carries no real information.
func IsPlaceholder(s string) bool {
	n := NormalizeKey(s)
	if placeholders[n] {
		return true
	}
	// All-zero serials, UUIDs and MACs.
	return strings.Trim(n, "0-:. ") == ""
}

// Key builds an identity key of the given kind, or "" when the value is
// empty or a placeholder and must not be used for matching.
func Key(kind, value string) string {
	if IsPlaceholder(value) {
		return ""
	}
	return kind + ":" + NormalizeKey(value)
}

// Str returns a pointer to the trimmed value, or nil when it is empty.
func Str(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Ident is Str that also rejects placeholder values. Use it for serials,
// UUIDs and vendor strings.
func Ident(s string) *string {
	if IsPlaceholder(s) {
		return nil
	}
	return Str(s)
}

// Int parses a base-10 integer, nil on failure.
func Int(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// Int64 parses a base-10 int64, nil on failure.
func Int64(s string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Float parses a float, nil on failure.
func Float(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// Ptr returns a pointer to v.
func Ptr[V any](v V) *V {
	return &v
}

// Deref returns the pointed-to value or the zero value.
func Deref[V any](p *V) V {
	if p == nil {
		var zero V
		return zero
	}
	return *p
}
