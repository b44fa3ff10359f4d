// Package net provides the URI type used to address binders, proxies and
// services across the Mindroid runtime.
package net

import (
	"fmt"
	"strings"
)

// URI is a parsed Mindroid endpoint address:
//
//	scheme '://' authority [ '/' key '=' value {',' key '=' value} ] [ '?' query ]
//	authority = node-id '.' local-id | service-name
//
// Authority identifies either a binder ("<node>.<local>") or a named
// service. The path carries "if=<interface-descriptor>" to record the
// interface contract at the call site; the query string is preserved
// end-to-end and may narrow behavior (e.g. a protocol version).
type URI struct {
	Scheme    string
	Authority string
	Path      string
	Query     string
	Fragment  string
}

// Parse decodes raw into a URI. It only understands the grammar Mindroid
// uses on the wire and in the service directory, not general RFC 3986 URIs.
func Parse(raw string) (*URI, error) {
	if raw == "" {
		return nil, fmt.Errorf("net: invalid URI: empty string")
	}

	schemeIdx := strings.Index(raw, "://")
	if schemeIdx < 0 {
		return nil, fmt.Errorf("net: invalid URI %q: missing scheme separator", raw)
	}

	u := &URI{Scheme: raw[:schemeIdx]}
	if u.Scheme == "" {
		return nil, fmt.Errorf("net: invalid URI %q: empty scheme", raw)
	}

	rest := raw[schemeIdx+3:]

	if fragIdx := strings.Index(rest, "#"); fragIdx >= 0 {
		u.Fragment = rest[fragIdx+1:]
		rest = rest[:fragIdx]
	}

	if queryIdx := strings.Index(rest, "?"); queryIdx >= 0 {
		u.Query = rest[queryIdx+1:]
		rest = rest[:queryIdx]
	}

	if pathIdx := strings.Index(rest, "/"); pathIdx >= 0 {
		u.Authority = rest[:pathIdx]
		u.Path = rest[pathIdx:]
	} else {
		u.Authority = rest
	}

	if u.Authority == "" {
		return nil, fmt.Errorf("net: invalid URI %q: empty authority", raw)
	}

	return u, nil
}

// MustParse is like Parse but panics on error; useful for constructing
// known-good URIs (e.g. from compile-time constants).
func MustParse(raw string) *URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// String reassembles the URI into its canonical wire form.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Authority)
	b.WriteString(u.Path)
	if u.Query != "" {
		b.WriteString("?")
		b.WriteString(u.Query)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// PathParams parses the "/key=value,key=value" path segment into a map.
func (u *URI) PathParams() map[string]string {
	params := make(map[string]string)
	if u.Path == "" {
		return params
	}
	trimmed := strings.TrimPrefix(u.Path, "/")
	for _, pair := range strings.Split(trimmed, ",") {
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		params[key] = value
	}
	return params
}

// InterfaceDescriptor returns the "if" path key, reassembled as a full
// "<scheme>://interfaces/<value>[?query]" URI string, and whether it was
// present.
func (u *URI) InterfaceDescriptor() (string, bool) {
	value, ok := u.PathParams()["if"]
	if !ok {
		return "", false
	}
	if u.Query != "" {
		return fmt.Sprintf("%s://interfaces/%s?%s", u.Scheme, value, u.Query), true
	}
	return fmt.Sprintf("%s://interfaces/%s", u.Scheme, value), true
}

// SplitAuthority splits an authority of the form "<node>.<local>" into its
// two numeric parts. It returns ok=false if the authority is not in that
// form (e.g. it names a service instead).
func SplitAuthority(authority string) (node, local uint32, ok bool) {
	parts := strings.SplitN(authority, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	var n, l uint64
	if _, err := fmt.Sscanf(parts[0], "%d", &n); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &l); err != nil {
		return 0, 0, false
	}
	return uint32(n), uint32(l), true
}
