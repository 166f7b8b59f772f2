// Package main hosts the decart CLI entrypoint and command graph.
//
// The Cobra command tree reads Octocart GIF cartridges, prints their embedded
// program and options, and maintains the decode cache. Configuration and
// logger setup are resolved once per invocation in commandContext so
// subcommands only deal with presentation.
package main
