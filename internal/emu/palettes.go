package emu

// rgb is one (R,G,B) triple for a single 2-bit DMG shade.
type rgb = [3]byte

// greyShades is the standard four-shade DMG greyscale, indexed by the
// 2-bit pixel value the PPU writes into its framebuffer (0=lightest).
var greyShades = [4]rgb{
	{0xE0, 0xF8, 0xD0},
	{0x88, 0xC0, 0x70},
	{0x34, 0x68, 0x56},
	{0x08, 0x18, 0x20},
}

// cgbCompatSetNames labels each colorization palette; indices here match
// the IDs used throughout compat_tables.go.
var cgbCompatSetNames = []string{
	"Green",
	"Sepia",
	"Blue",
	"Red",
	"Pastel",
	"Grey",
}

// cgbCompatSets are cosmetic four-shade tints applied in place of the
// plain greyscale, echoing the boot-time palette auto-selection real
// Game Boy Color hardware performs for monochrome cartridges. No CGB
// registers, VRAM banking, or attribute maps are modeled; this only
// recolors the DMG core's existing 2-bit shades.
var cgbCompatSets = [6][4]rgb{
	{ // Green, Game Boy classic-with-tint
		{0xF0, 0xF8, 0xD8}, {0x88, 0xD0, 0x68}, {0x38, 0x80, 0x58}, {0x08, 0x28, 0x18},
	},
	{ // Sepia
		{0xF4, 0xE4, 0xC8}, {0xC8, 0xA4, 0x78}, {0x90, 0x68, 0x48}, {0x40, 0x2C, 0x20},
	},
	{ // Blue
		{0xE0, 0xF0, 0xF8}, {0x80, 0xB0, 0xD8}, {0x38, 0x60, 0x98}, {0x08, 0x20, 0x48},
	},
	{ // Red
		{0xF8, 0xE0, 0xE0}, {0xE0, 0x90, 0x90}, {0x98, 0x38, 0x38}, {0x40, 0x08, 0x08},
	},
	{ // Pastel
		{0xF8, 0xF0, 0xFC}, {0xD8, 0xC0, 0xE8}, {0x98, 0x88, 0xC0}, {0x50, 0x48, 0x68},
	},
	{ // Grey, a subtler contrast curve than the plain greyscale
		{0xF8, 0xF8, 0xF8}, {0xB0, 0xB0, 0xB0}, {0x60, 0x60, 0x60}, {0x10, 0x10, 0x10},
	},
}
