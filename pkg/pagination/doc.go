// Package pagination implements the incremental ("infinite scroll") paging
// controller for a server-driven table view.
//
// The server pages with an opaque cursor: each response carries
// X-Has-More-Pages and X-Paging-State headers, and the next request echoes the
// paging state back as the paging_state query parameter. The Controller owns
// the paging state and decides whether, when and with what parameters more
// rows are requested.
//
// Example usage:
//
//	ctrl, err := pagination.NewController(pagination.DefaultConfig(&tgt), appender, view)
//	ctrl.RequestMore(ctx)                 // initial load
//	ctrl.OnScrollProximity(ctx, distance) // every scroll tick
//	ctrl.OnPageSizeChanged(ctx, 100)      // page-size selector
//
// The controller:
//   - Issues at most one fetch at a time
//   - Stops fetching once the server reports exhaustion
//   - Resets on page-size changes and on fresh (non-continuation) loads
//   - Discards responses of superseded requests by ticket
//   - Keeps its cursor on failure so the next trigger retries in place
package pagination
