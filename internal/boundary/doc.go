// Package boundary validates the per-window winning boundaries and
// produces the final ordered cut plan. Length violations warn rather than
// self-correct; ordering violations abort the run with the source file
// untouched.
package boundary
