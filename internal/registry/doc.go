// Package registry is the single dispatch seam between a plan and the tools
// it names.
//
// Lookup is two-tiered. A name is first resolved against external tools,
// either registered explicitly or located on disk by a Finder; only when no
// external tool exists is it resolved against the fixed table of built-in
// actions. A name that matches neither tier is a configuration error.
//
// Registration happens while the application is wired together and panics
// on duplicates, since a clash is a programming error rather than user input.
package registry
