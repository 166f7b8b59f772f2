// Package preflight checks that the filesystem locations decart writes to are
// usable before a command depends on them.
//
// Each check returns a Result with a short human-readable detail; the CLI
// renders them as status lines. Only features enabled in the config are
// checked.
package preflight
