package compile

import "errors"

// ErrNoBackingTable is returned, wrapped with the offending id, when a term
// names a literal subject that has no table to search at all.
var ErrNoBackingTable = errors.New("compile: literal subject has no backing table")
