// Package bus wires the CPU-visible address space to the cartridge, WRAM,
// HRAM, PPU, timer, joypad, and serial port, plus OAM DMA and the boot ROM
// overlay.
package bus

import (
	"io"

	"github.com/kestrelgb/dmgcore/internal/apu"
	"github.com/kestrelgb/dmgcore/internal/cart"
	"github.com/kestrelgb/dmgcore/internal/joypad"
	"github.com/kestrelgb/dmgcore/internal/ppu"
	"github.com/kestrelgb/dmgcore/internal/serial"
	"github.com/kestrelgb/dmgcore/internal/timer"
)

// Bus owns every memory-mapped component except the CPU itself.
type Bus struct {
	cart cart.Cartridge

	// Work RAM (WRAM) 8 KiB at 0xC000–0xDFFF; Echo 0xE000–0xFDFF mirrors C000–DDFF.
	wram [0x2000]byte

	// High RAM (HRAM) 0xFF80–0xFFFE (127 bytes)
	hram [0x7F]byte

	ppu    *ppu.PPU
	timer  *timer.Timer
	joypad *joypad.Joypad
	serial *serial.Port
	apu    *apu.APU

	// Interrupt registers
	ie    byte // IE at 0xFFFF
	ifReg byte // IF at 0xFF0F (lower 5 bits used)

	// DMA register (still handled here for copy trigger)
	dma byte // FF46

	// OAM DMA state
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	// Boot ROM support: overlays 0x0000-0x00FF until disabled via 0xFF50
	// write or, on the real hardware, until PC reaches 0x0100.
	bootROM     []byte
	bootEnabled bool
	pc          func() uint16
}

// New constructs a Bus around the cartridge NewCartridge selects for rom.
// If NewCartridge fails (a recognized-but-unsupported MBC type), New does
// not fail: it substitutes a blank 32 KiB ROM-only cartridge instead.
func New(rom []byte) *Bus {
	c, err := cart.NewCartridge(rom)
	if err != nil {
		c, _ = cart.NewCartridge(make([]byte, 0x8000))
	}
	return NewWithCartridge(c)
}

// NewWithCartridge wires a provided cartridge implementation.
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c}
	b.ppu = ppu.New(func(bit int) { b.requestInterrupt(bit) })
	b.timer = timer.New(func() { b.requestInterrupt(2) })
	b.joypad = joypad.New(func() { b.requestInterrupt(4) })
	b.serial = serial.New(func() { b.requestInterrupt(3) })
	b.apu = apu.New(48000)
	return b
}

// APU returns the internal APU, used by the host's audio sink.
func (b *Bus) APU() *apu.APU { return b.apu }

func (b *Bus) requestInterrupt(bit int) { b.ifReg |= 1 << uint(bit) }

// PPU returns the internal PPU for read-only rendering helpers.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Joypad returns the joypad controller for KeyDown/KeyUp wiring.
func (b *Bus) Joypad() *joypad.Joypad { return b.joypad }

// Cart returns the underlying cartridge for battery persistence.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// SetSerialWriter sets a sink that receives bytes written via the serial port.
func (b *Bus) SetSerialWriter(w io.Writer) {
	b.serial.Sink = w
}

// SetBootROM loads a DMG boot ROM to be mapped at 0x0000-0x00FF until
// disabled by a 0xFF50 write or PC reaching 0x0100.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// SetPCReader lets the bus check the CPU's current PC so the boot ROM
// overlay stops the instant execution reaches cartridge code at 0x0100,
// matching hardware, rather than relying solely on the 0xFF50 latch.
func (b *Bus) SetPCReader(f func() uint16) { b.pc = f }

func (b *Bus) bootActive() bool {
	if !b.bootEnabled || len(b.bootROM) < 0x100 {
		return false
	}
	if b.pc != nil && b.pc() >= 0x0100 {
		return false
	}
	return true
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if addr < 0x0100 && b.bootActive() {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		return b.wram[mirror-0xC000]
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr == 0xFF00:
		return b.joypad.Read()
	case addr == 0xFF01, addr == 0xFF02:
		return b.serial.Read(addr)
	case addr == 0xFF04, addr == 0xFF05, addr == 0xFF06, addr == 0xFF07:
		return b.timer.Read(addr)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFFFF:
		return b.ie
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		if mirror >= 0xC000 && mirror <= 0xDDFF {
			b.wram[mirror-0xC000] = value
		}
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF00:
		b.joypad.Write(value)
	case addr == 0xFF01, addr == 0xFF02:
		b.serial.Write(addr, value)
	case addr == 0xFF04, addr == 0xFF05, addr == 0xFF06, addr == 0xFF07:
		b.timer.Write(addr, value)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		// OAM DMA: 160-byte transfer from value*0x100 to FE00, 1 byte per cycle.
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr == 0xFF50:
		b.bootEnabled = false
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFFFF:
		b.ie = value
	}
}

// Joypad button bitmasks, re-exported from internal/joypad for callers that
// only import bus.
const (
	JoypRight     = joypad.Right
	JoypLeft      = joypad.Left
	JoypUp        = joypad.Up
	JoypDown      = joypad.Down
	JoypA         = joypad.A
	JoypB         = joypad.B
	JoypSelectBtn = joypad.Select
	JoypStart     = joypad.Start
)

// SetJoypadState sets which buttons are currently pressed, using the Joyp*
// mask constants; set bits mean pressed.
func (b *Bus) SetJoypadState(mask byte) {
	for _, button := range []byte{JoypRight, JoypLeft, JoypUp, JoypDown, JoypA, JoypB, JoypSelectBtn, JoypStart} {
		if mask&button != 0 {
			b.joypad.KeyDown(button)
		} else {
			b.joypad.KeyUp(button)
		}
	}
}

// Tick advances the timer, PPU, and OAM DMA by the given number of T-cycles.
func (b *Bus) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	b.timer.Tick(cycles)
	b.apu.Tick(cycles)
	for i := 0; i < cycles; i++ {
		if b.ppu != nil {
			b.ppu.Tick(1)
		}
		if b.dmaActive {
			if b.dmaIndex < 0xA0 {
				v := b.Read(b.dmaSrc + uint16(b.dmaIndex))
				b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
				b.dmaIndex++
			}
			if b.dmaIndex >= 0xA0 {
				b.dmaActive = false
			}
		}
	}
}

// IE/IF helpers for the CPU's interrupt dispatch.
func (b *Bus) IE() byte     { return b.ie }
func (b *Bus) IF() byte     { return b.ifReg }
func (b *Bus) SetIF(v byte) { b.ifReg = v & 0x1F }
