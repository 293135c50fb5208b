package cart

import "testing"

func TestNewCartridge_Dispatch(t *testing.T) {
	cases := []struct {
		cartType byte
		want     string
	}{
		{0x00, "*cart.ROMOnly"},
		{0x01, "*cart.MBC1"},
		{0x05, "*cart.MBC2"},
		{0x0F, "*cart.MBC3"},
		{0x19, "*cart.MBC5"},
	}
	for _, c := range cases {
		rom := buildROM("T", c.cartType, 0x00, 0x00, 32*1024)
		got, err := NewCartridge(rom)
		if err != nil {
			t.Fatalf("cartType %#02x: unexpected error: %v", c.cartType, err)
		}
		if gotType := typeName(got); gotType != c.want {
			t.Fatalf("cartType %#02x: got %s want %s", c.cartType, gotType, c.want)
		}
	}
}

func TestNewCartridge_UnsupportedTypeErrors(t *testing.T) {
	rom := buildROM("T", 0xFC, 0x00, 0x00, 32*1024)
	if _, err := NewCartridge(rom); err == nil {
		t.Fatalf("expected error for unsupported cart type, got nil")
	}
}

func TestNewCartridge_ShortROMFallsBackToROMOnly(t *testing.T) {
	short := make([]byte, 0x100) // ends before the header at 0x0100-0x014F
	c, err := NewCartridge(short)
	if err != nil {
		t.Fatalf("unexpected error for headless ROM: %v", err)
	}
	if typeName(c) != "*cart.ROMOnly" {
		t.Fatalf("expected ROMOnly fallback, got %s", typeName(c))
	}
}

func typeName(c Cartridge) string {
	switch c.(type) {
	case *ROMOnly:
		return "*cart.ROMOnly"
	case *MBC1:
		return "*cart.MBC1"
	case *MBC2:
		return "*cart.MBC2"
	case *MBC3:
		return "*cart.MBC3"
	case *MBC5:
		return "*cart.MBC5"
	default:
		return "unknown"
	}
}
