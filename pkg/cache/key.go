package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix namespaces every key written by the manager.
const KeyPrefix = "table-scroll:page"

// PageKey identifies one cached page of a table view.
type PageKey struct {
	// Endpoint is the view path (e.g., "/view/shop/orders")
	Endpoint string

	// Limit is the page size the page was fetched with
	Limit int

	// PagingState is the continuation token, empty for the first page
	PagingState string
}

// String generates a deterministic cache key string.
// Format: table-scroll:page:<endpoint>:limit=<n>:state=<digest>
//
// The paging state is digested because tokens are long and may contain
// characters that are awkward in key patterns.
//
// Example:
//
//	table-scroll:page:view/shop/orders:limit=50:state=-
func (k PageKey) String() string {
	state := "-"
	if k.PagingState != "" {
		sum := sha256.Sum256([]byte(k.PagingState))
		state = hex.EncodeToString(sum[:12])
	}

	return strings.Join([]string{
		EndpointPrefix(k.Endpoint),
		fmt.Sprintf("limit=%d", k.Limit),
		"state=" + state,
	}, ":")
}

// EndpointPrefix returns the key prefix shared by every page of an endpoint.
func EndpointPrefix(endpoint string) string {
	return KeyPrefix + ":" + strings.Trim(endpoint, "/")
}
