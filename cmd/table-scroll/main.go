// Command table-scroll browses a table view in the terminal, loading more rows
// as the user scrolls towards the bottom.
//
// Usage:
//
//	table-scroll http://localhost:8080/view/shop/orders
//	table-scroll dump http://localhost:8080/view/shop/orders > orders.tsv
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
