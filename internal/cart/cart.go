// Package cart implements the DMG cartridge/MBC layer: ROM-only and the
// MBC1/MBC2/MBC3 banking controllers spec.md requires (MBC5 is kept as a
// bonus variant beyond that set, since the teacher already dispatches on
// its header bytes).
package cart

import "fmt"

// Cartridge is the minimal interface the bus needs for ROM/RAM banking.
// Addresses are CPU addresses; Read/Write cover both the ROM control range
// (0x0000-0x7FFF, where writes latch banking registers rather than
// mutating ROM) and external RAM (0xA000-0xBFFF).
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)

	// Battery returns a snapshot of external RAM for the .sav mirror, and
	// nil for cartridges with no persisted RAM (ROM-only with no RAM, or
	// MBC variants without the battery bit set).
	Battery() []byte
	// LoadBattery seeds external RAM from a previously-saved mirror. It is
	// a no-op if the cartridge has no external RAM.
	LoadBattery(data []byte)
}

// NewCartridge selects an MBC implementation from the ROM header's
// cartridge-type byte (0x0147). An unparseable or too-small ROM falls back
// to ROM-only so headless test ROMs without a full header can still run;
// a recognized-but-unsupported type is a load error the caller should
// surface per spec.md §7.
func NewCartridge(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom, 0), nil
	}
	switch h.CartType {
	case 0x00, 0x08, 0x09:
		return NewROMOnly(rom, h.RAMSizeBytes), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x05, 0x06:
		return NewMBC2(rom), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes), nil
	default:
		return nil, fmt.Errorf("cart: unsupported MBC type %#02x (%s)", h.CartType, h.CartTypeStr)
	}
}
