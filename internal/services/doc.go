// Package services defines shared utilities consumed by the decoder, the
// payload parser and the cartridge loader.
//
// Key responsibilities:
//   - Context helpers that stamp cartridge sources, operation names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every failure carries
//     one of the decode error kinds (io, container, palette, payload,
//     truncated) and can be classified with errors.Is or Kind.
//
// Use these helpers when wiring new decode paths so error handling and
// observability stay uniform across the CLI and library entry points.
package services
