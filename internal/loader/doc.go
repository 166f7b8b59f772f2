// Package loader turns a cartridge file or stream into a decoded body and,
// optionally, a parsed cartridge document.
//
// A Loader hashes the container bytes, consults the decode cache, runs the
// stego decoder on a miss and stores complete results back. Every call is
// tagged with a fresh request ID so its log lines can be correlated.
package loader
