package escpos

// ESC/POS control sequences. The encoder interleaves these with literal text
// bytes; the resulting stream is bit-exact per paper-width configuration and
// must not change without introducing a new document variant.
var (
	// cmdInit resets the printer to its power-on state (ESC @).
	cmdInit = []byte{0x1B, 0x40}

	// Alignment (ESC a n): 0 left, 1 center, 2 right.
	cmdAlignLeft   = []byte{0x1B, 0x61, 0x00}
	cmdAlignCenter = []byte{0x1B, 0x61, 0x01}

	// Emphasis on/off (ESC E n).
	cmdBoldOn  = []byte{0x1B, 0x45, 0x01}
	cmdBoldOff = []byte{0x1B, 0x45, 0x00}

	// Character size (GS ! n): 0x11 doubles width and height.
	cmdSizeDouble = []byte{0x1D, 0x21, 0x11}
	cmdSizeNormal = []byte{0x1D, 0x21, 0x00}

	// cmdFeed advances n lines (ESC d n).
	cmdFeed4 = []byte{0x1B, 0x64, 0x04}

	// cmdCut performs a partial cut with feed (GS V 66 0).
	cmdCut = []byte{0x1D, 0x56, 0x42, 0x00}

	lf = []byte{0x0A}
)
