package cart

import "testing"

func TestMBC3_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC3(rom, 0)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank got %02X want 01", got)
	}
	m.Write(0x2000, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC3_RAMBankingAndBattery(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x8000) // 4 banks of 8 KiB

	m.Write(0x0000, 0x0A) // RAM enable
	m.Write(0x4000, 0x02) // RAM bank 2
	m.Write(0xA000, 0x55)
	if got := m.Read(0xA000); got != 0x55 {
		t.Fatalf("RAM bank2 RW failed: got %02X", got)
	}

	data := m.Battery()
	n := NewMBC3(rom, 0x8000)
	n.LoadBattery(data)
	n.Write(0x0000, 0x0A)
	n.Write(0x4000, 0x02)
	if got := n.Read(0xA000); got != 0x55 {
		t.Fatalf("battery restore mismatch: got %02X want 55", got)
	}
}

func TestMBC3_RTCRegisterSelectIsStubbed(t *testing.T) {
	// RTC registers 0x08-0x0C are stubbed zero-returning and latchable;
	// selecting one must not disturb RAM bank state or crash.
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000)
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x08) // select RTC seconds -> no RAM bank mapped
	m.Write(0x6000, 0x00)
	m.Write(0x6000, 0x01) // latch
	if got := m.Read(0xA000); got != 0x00 {
		t.Fatalf("stubbed RTC select read got %02X want 00 (RTC stub reads zero)", got)
	}
}
