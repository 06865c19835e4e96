package pgtool

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "xxxxx"

// Matches a password keyword in a keyword/value DSN, quoted or bare.
var dsnPassword = regexp.MustCompile(`(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|[^\s']\S*)`)

// NormalizeURL removes the schema selector carried as a "schema" query
// parameter, which libpq rejects, and returns it separately. Keyword/value
// DSNs and unparsable input are returned unchanged.
func NormalizeURL(raw string) (clean, schema string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw, ""
	}
	q := u.Query()
	schema = q.Get("schema")
	if !q.Has("schema") {
		return raw, ""
	}
	q.Del("schema")
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return strings.TrimSuffix(u.String(), "?"), schema
}

// Redact masks connection-string passwords in an argument vector so it can be
// logged and written to manifests. URL passwords, password query parameters
// and password keywords of keyword/value DSNs are all replaced by xxxxx.
func Redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = redactArg(a)
	}
	return out
}

func redactArg(a string) string {
	if !strings.Contains(a, "://") {
		return dsnPassword.ReplaceAllString(a, "${1}"+redacted)
	}
	u, err := url.Parse(a)
	if err != nil {
		return dsnPassword.ReplaceAllString(a, "${1}"+redacted)
	}
	changed := false
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redacted)
			changed = true
		}
	}
	if q := u.Query(); q.Has("password") {
		q.Set("password", redacted)
		u.RawQuery = q.Encode()
		changed = true
	}
	if !changed {
		return a
	}
	return u.String()
}
