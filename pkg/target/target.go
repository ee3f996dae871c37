// Package target resolves which table a page is viewing.
//
// A table view lives at /view/<keyspace>/<table>. The pair is derived once from
// the page address and is immutable afterwards; every fetch the paging
// controller issues is addressed to the endpoint built from it.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// ViewPrefix is the path segment every table view lives under.
const ViewPrefix = "/view"

// ErrNotTableView is returned when an address does not point at a table view.
var ErrNotTableView = errors.New("address is not a table view")

var viewPath = regexp.MustCompile(`^/view/([^/]+)/([^/]+)`)

// Target identifies the namespace (keyspace) and resource (table) of a view.
type Target struct {
	// Namespace is the decoded keyspace name.
	Namespace string

	// Resource is the decoded table name.
	Resource string
}

// ParsePath extracts the target from a URL path such as
// "/view/my%20keyspace/users". Both segments are percent-decoded.
func ParsePath(path string) (Target, error) {
	match := viewPath.FindStringSubmatch(path)
	if match == nil {
		return Target{}, fmt.Errorf("%w: %q", ErrNotTableView, path)
	}

	namespace, err := url.PathUnescape(match[1])
	if err != nil {
		return Target{}, fmt.Errorf("decode namespace: %w", err)
	}

	resource, err := url.PathUnescape(match[2])
	if err != nil {
		return Target{}, fmt.Errorf("decode resource: %w", err)
	}

	return Target{Namespace: namespace, Resource: resource}, nil
}

// ParseURL splits a full page address into the server base URL
// (scheme://host) and the target it views.
//
// Example:
//
//	base, t, err := target.ParseURL("http://localhost:8080/view/shop/orders")
//	// base = "http://localhost:8080", t = {shop orders}
func ParseURL(raw string) (string, Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", Target{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Target{}, fmt.Errorf("%w: %q has no scheme or host", ErrNotTableView, raw)
	}

	// EscapedPath keeps "%2F" inside a segment from splitting it.
	t, err := ParsePath(u.EscapedPath())
	if err != nil {
		return "", Target{}, err
	}

	return u.Scheme + "://" + u.Host, t, nil
}

// Endpoint returns the path fetches are sent to, with both segments
// re-encoded for safe inclusion in a URL.
func (t Target) Endpoint() string {
	return ViewPrefix + "/" + url.PathEscape(t.Namespace) + "/" + url.PathEscape(t.Resource)
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return t.Namespace + "." + t.Resource
}
