// Package octo models the document hidden inside an Octo cartridge: the
// program source text and the runtime options Octo needs to run it.
//
// Parse is strict. The payload must be a JSON object with a string program
// and an options object carrying every required runtime setting; anything
// else is reported as a payload error wrapping services.ErrPayload and no
// partial Cart is returned. Unknown option keys are ignored so carts written
// by newer Octo releases still load.
//
// Options can be rendered back as JSON (the cart's own form), TOML, or the
// key=value .octo.rc format read by C-Octo.
package octo
