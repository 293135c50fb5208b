package ppu

import "testing"

func TestRenderLineAppliesPalette(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4) // BGP: identity-ish palette 11 10 01 00

	// Tile 0 at 0x9800 entry 0, row 0 all color index 1 (lo=0xFF, hi=0x00)
	p.CPUWrite(0x8000, 0xFF)
	p.CPUWrite(0x8001, 0x00)
	p.CPUWrite(0x9800, 0x00)

	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, tile data 0x8000
	p.Tick(80 + 172)         // render line 0 at mode3->0 transition

	fb := p.Framebuffer()
	want := (byte(0xE4) >> 2) & 0x03 // palette entry for color index 1
	if fb[0][0] != want {
		t.Fatalf("pixel got %d want %d", fb[0][0], want)
	}
}

func TestPresentFiresAtVBlank(t *testing.T) {
	p := New(nil)
	var got bool
	p.SetPresentFunc(func(fb *[144][160]byte) { got = true })
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(144 * 456)
	if !got {
		t.Fatalf("expected Present callback at VBlank entry")
	}
}

func TestSpriteRendersOverBackground(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0xFF48, 0xE4) // OBP0

	// BG tile 0: all color index 0 (transparent-looking, lo=hi=0)
	p.CPUWrite(0x9800, 0x00)

	// Sprite tile 1: all color index 1 (lo=0xFF, hi=0)
	p.CPUWrite(0x8010, 0xFF)
	p.CPUWrite(0x8011, 0x00)
	// OAM entry 0: Y=16 (screen y=0), X=8 (screen x=0), tile=1, attr=0
	p.CPUWrite(0xFE00, 16)
	p.CPUWrite(0xFE01, 8)
	p.CPUWrite(0xFE02, 1)
	p.CPUWrite(0xFE03, 0)

	p.CPUWrite(0xFF40, 0x93) // LCD on, BG on, OBJ on, tile data 0x8000
	p.Tick(80 + 172)

	fb := p.Framebuffer()
	want := (byte(0xE4) >> 2) & 0x03
	if fb[0][0] != want {
		t.Fatalf("sprite pixel got %d want %d", fb[0][0], want)
	}
}
