package stego

// Nybble extracts the 4 payload bits carried by one color:
// bit 3 is the red LSB, bits 2..1 the two green LSBs, bit 0 the blue LSB.
func Nybble(c RGB) uint8 {
	return (c.R&1)<<3 | (c.G&3)<<1 | c.B&1
}

// AssembleByte combines two successive pixels into one byte. The first pixel
// supplies the high nybble.
func AssembleByte(hi, lo uint8, p Palette) (byte, error) {
	first, err := p.Color(hi)
	if err != nil {
		return 0, err
	}
	second, err := p.Color(lo)
	if err != nil {
		return 0, err
	}
	return Nybble(first)<<4 | Nybble(second), nil
}
