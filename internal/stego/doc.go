// Package stego recovers the hidden payload carried by an Octo cartridge.
//
// An Octocart is an animated GIF whose palette colors carry data in their
// least significant bits: one bit from red, two from green and one from
// blue form a nybble, and two successive pixels form one byte. The first
// four bytes of the first frame hold a big-endian body length; the body
// follows and may continue across any number of frames.
//
// The package is layered leaf-first:
//   - Palette.Color and EffectivePalette resolve a pixel index to a color,
//     preferring a frame-local palette over the container-wide one.
//   - Nybble and AssembleByte implement the bit layout.
//   - Reader walks a Container frame by frame as an io.Reader over the body,
//     stopping as soon as the declared length is satisfied.
//   - Decode and DecodeGIF collect the body and report truncation.
//
// The GIF bitstream itself is handled by image/gif behind the Container
// interface; any other frame source can be decoded by implementing it.
package stego
