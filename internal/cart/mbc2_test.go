package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank got %02X want 01", got)
	}
	// bit 8 of the address set selects ROM bank
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}
	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_RAMEnableAndNibbleMask(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom)

	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("RAM disabled read got %02X want FF", got)
	}
	m.Write(0x0000, 0x0A) // bit 8 clear selects RAM-enable latch
	m.Write(0xA000, 0x3F)
	if got := m.Read(0xA000); got != 0xF0|0x0F {
		t.Fatalf("nibble-masked read got %02X want F0|0F", got)
	}
}

func TestMBC2_RAMMirrorsThrough512Bytes(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x05)
	if got := m.Read(0xA200); got != 0xF5 {
		t.Fatalf("mirrored read at A200 got %02X want F5", got)
	}
}

func TestMBC2_BatteryDefaultsToNibbleF(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom)
	data := m.Battery()
	if len(data) != 512 {
		t.Fatalf("battery size got %d want 512", len(data))
	}
	for i, b := range data {
		if b != 0x0F {
			t.Fatalf("byte %d got %02X want 0F", i, b)
		}
	}
}

func TestMBC2_BatteryRoundTrip(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A)
	m.Write(0xA010, 0x07)

	data := m.Battery()
	n := NewMBC2(rom)
	n.LoadBattery(data)
	n.Write(0x0000, 0x0A)
	if got := n.Read(0xA010); got != 0xF7 {
		t.Fatalf("battery restore got %02X want F7", got)
	}
}
