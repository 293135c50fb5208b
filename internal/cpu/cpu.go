package cpu

import (
	"fmt"
	"log"

	"github.com/kestrelgb/dmgcore/internal/bus"
)

// CPU implements the Sharp SM83 instruction set: all 256 primary opcodes,
// all 256 CB-prefixed opcodes, HALT/STOP, the EI/DI enable-delay, and
// interrupt dispatch in priority order.
type CPU struct {
	// 8-bit registers
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME    bool
	halted bool
	// stopped latches on STOP (0x10) until WakeFromStop reports a held joypad button.
	stopped bool
	// illegal latches once an undefined opcode is fetched; Step no longer
	// advances PC or executes further instructions once set.
	illegal bool

	// eiDelay counts Step calls remaining before a pending EI takes effect:
	// 2 means "scheduled this step", 1 means "one more instruction to run
	// with interrupts still disabled", 0 means inactive. See Step's defer.
	eiDelay int
	// diDelay mirrors eiDelay for DI: IME stays true through the instruction
	// following DI and is only cleared once that instruction completes, so
	// DI's own step (and an interrupt dispatched before the next step) can
	// still observe IME=true. See Step's defer.
	diDelay int

	// WakeFromStop reports whether the low-power STOP latch should release.
	// New wires this to the bus's joypad; callers may override it.
	WakeFromStop func() bool

	fatal func(string)

	bus *bus.Bus
}

// New creates a CPU with SP=0xFFFE, PC=0x0000 and the other registers zero;
// ResetNoBoot sets the DMG post-boot register values.
func New(b *bus.Bus) *CPU {
	c := &CPU{bus: b, SP: 0xFFFE, PC: 0x0000}
	if b != nil {
		c.WakeFromStop = func() bool { return b.Joypad().AnyPressed() }
	}
	return c
}

// SetPC allows tests or a boot stub to set the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Bus exposes the underlying bus for tests/tools.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// SetFatalFunc wires the machine's fatal-error hook, called once when an
// undefined opcode is fetched.
func (c *CPU) SetFatalFunc(f func(string)) { c.fatal = f }

// Halted reports whether the CPU is in HALT, for UI/debug tooling.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is in the STOP low-power latch.
func (c *CPU) Stopped() bool { return c.stopped }

// ResetNoBoot sets registers to typical DMG post-boot state.
// Useful when running without a boot ROM.
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.IME = false
	c.halted = false
	c.stopped = false
	c.illegal = false
	c.eiDelay = 0
	c.diDelay = 0
}

// Flags helpers
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

func (c *CPU) setZNHC(z, n, h, carry bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if carry {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) add8(a, b byte) (res byte, z, n, h, cy bool) {
	r := uint16(a) + uint16(b)
	res = byte(r)
	z = res == 0
	n = false
	h = ((a & 0x0F) + (b & 0x0F)) > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) adc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	z = res == 0
	n = false
	h = ((a & 0x0F) + (b & 0x0F) + ci) > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) sub8(a, b byte) (res byte, z, n, h, cy bool) {
	r := int16(a) - int16(b)
	res = byte(r)
	z = res == 0
	n = true
	h = (a & 0x0F) < (b & 0x0F)
	cy = int16(a) < int16(b)
	return
}

func (c *CPU) sbc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	z = res == 0
	n = true
	h = (a & 0x0F) < ((b & 0x0F) + ci)
	cy = int16(a) < int16(b)+int16(ci)
	return
}

func (c *CPU) and8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a & b
	z = res == 0
	n = false
	h = true
	cy = false
	return
}

func (c *CPU) xor8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a ^ b
	z = res == 0
	n = false
	h = false
	cy = false
	return
}

func (c *CPU) or8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a | b
	z = res == 0
	n = false
	h = false
	cy = false
	return
}

func (c *CPU) cp8(a, b byte) (z, n, h, cy bool) {
	_, z, n, h, cy = c.sub8(a, b)
	return
}

// aluOp applies one of the eight ALU operations (selected the way the
// opcode's bits 5-3 select them) to A and operand, writing A and flags.
func (c *CPU) aluOp(sel byte, operand byte) {
	switch sel {
	case 0: // ADD
		r, z, n, h, cy := c.add8(c.A, operand)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 1: // ADC
		r, z, n, h, cy := c.adc8(c.A, operand, (c.F&flagC) != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 2: // SUB
		r, z, n, h, cy := c.sub8(c.A, operand)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 3: // SBC
		r, z, n, h, cy := c.sbc8(c.A, operand, (c.F&flagC) != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 4: // AND
		r, z, n, h, cy := c.and8(c.A, operand)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 5: // XOR
		r, z, n, h, cy := c.xor8(c.A, operand)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 6: // OR
		r, z, n, h, cy := c.or8(c.A, operand)
		c.A = r
		c.setZNHC(z, n, h, cy)
	default: // CP
		z, n, h, cy := c.cp8(c.A, operand)
		c.setZNHC(z, n, h, cy)
	}
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.read8(c.PC)
	c.PC++
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | (hi << 8)
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | (hi << 8)
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v&0x00FF))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

// push16 is the single stack-write path used by PUSH, CALL, RST, and
// interrupt dispatch: SP -= 2, then write16(SP, v). No opcode writes the
// stack any other way.
func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// reg reads one of the 8 single-register operands addressed by a 3-bit
// opcode field: 0=B,1=C,2=D,3=E,4=H,5=L,6=(HL),7=A.
func (c *CPU) reg(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) setReg(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

// regPair reads one of the 4 "dd" 16-bit register operands: 0=BC,1=DE,2=HL,3=SP.
func (c *CPU) regPair(idx byte) uint16 {
	switch idx {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.SP
	}
}

func (c *CPU) setRegPair(idx byte, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

// pairQQ reads one of the 4 "qq" PUSH/POP operands: 0=BC,1=DE,2=HL,3=AF.
func (c *CPU) pairQQ(idx byte) uint16 {
	if idx == 3 {
		return c.getAF()
	}
	return c.regPair(idx)
}

func (c *CPU) setPairQQ(idx byte, v uint16) {
	if idx == 3 {
		c.setAF(v)
		return
	}
	c.setRegPair(idx, v)
}

// condTrue evaluates one of the 4 branch conditions: 0=NZ,1=Z,2=NC,3=C.
func (c *CPU) condTrue(cc byte) bool {
	switch cc {
	case 0:
		return (c.F & flagZ) == 0
	case 1:
		return (c.F & flagZ) != 0
	case 2:
		return (c.F & flagC) == 0
	default:
		return (c.F & flagC) != 0
	}
}

// interruptSources lists IF/IE bits in dispatch priority, highest first.
var interruptSources = [5]struct {
	mask   byte
	vector uint16
}{
	{1 << 0, 0x40}, // VBlank
	{1 << 1, 0x48}, // LCD STAT
	{1 << 2, 0x50}, // Timer
	{1 << 3, 0x58}, // Serial
	{1 << 4, 0x60}, // Joypad
}

// serviceInterrupt dispatches the highest-priority pending, enabled
// interrupt, if any. Returns 0 if none is pending.
func (c *CPU) serviceInterrupt() int {
	pending := c.bus.IE() & c.bus.IF() & 0x1F
	if pending == 0 {
		return 0
	}
	for _, src := range interruptSources {
		if pending&src.mask == 0 {
			continue
		}
		c.bus.SetIF(c.bus.IF() &^ src.mask)
		c.halted = false
		c.IME = false
		c.eiDelay = 0
		c.diDelay = 0
		c.push16(c.PC)
		c.PC = src.vector
		return 20
	}
	return 0
}

func (c *CPU) illegalOpcode(op byte) int {
	c.illegal = true
	c.PC-- // pin PC on the illegal byte; Step no longer advances
	msg := fmt.Sprintf("cpu: illegal opcode %#02x at PC=%#04x", op, c.PC)
	if c.fatal != nil {
		c.fatal(msg)
	} else {
		log.Print(msg)
	}
	return 4
}

// Step executes one instruction (or services one pending interrupt, or
// idles through HALT/STOP) and returns its T-cycle cost, also advancing
// the bus's timer/PPU/DMA by that many cycles.
func (c *CPU) Step() (cycles int) {
	defer func() {
		if c.bus != nil && cycles > 0 {
			c.bus.Tick(cycles)
		}
		// EI's enable takes effect only after the instruction following EI
		// has fully executed, never EI's own step.
		if c.eiDelay > 0 {
			c.eiDelay--
			if c.eiDelay == 0 {
				c.IME = true
			}
		}
		// DI's disable is deferred the same way: cleared only after the
		// instruction following DI has fully executed.
		if c.diDelay > 0 {
			c.diDelay--
			if c.diDelay == 0 {
				c.IME = false
			}
		}
	}()

	if c.illegal {
		cycles = 0
		return
	}

	if c.stopped {
		if c.WakeFromStop != nil && c.WakeFromStop() {
			c.stopped = false
		} else {
			return 4
		}
	}

	if c.halted {
		if c.IME {
			if cyc := c.serviceInterrupt(); cyc != 0 {
				return cyc
			}
			return 4
		}
		// HALT with IME=0: exits without servicing once something is
		// pending (the halt-bug's double-fetch quirk is not modeled).
		if (c.bus.IF()&c.bus.IE())&0x1F != 0 {
			c.halted = false
		} else {
			return 4
		}
	}

	if c.IME {
		if cyc := c.serviceInterrupt(); cyc != 0 {
			return cyc
		}
	}

	op := c.fetch8()

	switch {
	case op == 0x00: // NOP
		return 4
	case op == 0x76: // HALT
		c.halted = true
		return 4
	case op == 0x10: // STOP
		c.fetch8() // mandatory padding byte
		c.stopped = true
		return 4

	case op >= 0x40 && op <= 0x7F: // LD r,r'
		d := (op >> 3) & 7
		s := op & 7
		c.setReg(d, c.reg(s))
		if d == 6 || s == 6 {
			return 8
		}
		return 4

	case op >= 0x80 && op <= 0xBF: // ALU A,r
		sel := (op >> 3) & 7
		s := op & 7
		c.aluOp(sel, c.reg(s))
		if s == 6 {
			return 8
		}
		return 4

	case op&0xC7 == 0x06: // LD r,d8 (0x36 covers LD (HL),d8)
		d := (op >> 3) & 7
		v := c.fetch8()
		c.setReg(d, v)
		if d == 6 {
			return 12
		}
		return 8

	case op&0xC7 == 0x04: // INC r8 (0x34 covers INC (HL))
		d := (op >> 3) & 7
		old := c.reg(d)
		v := old + 1
		c.setReg(d, v)
		c.setZNHC(v == 0, false, (old&0x0F) == 0x0F, (c.F&flagC) != 0)
		if d == 6 {
			return 12
		}
		return 4

	case op&0xC7 == 0x05: // DEC r8 (0x35 covers DEC (HL))
		d := (op >> 3) & 7
		old := c.reg(d)
		v := old - 1
		c.setReg(d, v)
		c.setZNHC(v == 0, true, (old&0x0F) == 0x00, (c.F&flagC) != 0)
		if d == 6 {
			return 12
		}
		return 4

	case op&0xCF == 0x01: // LD dd,d16
		dd := (op >> 4) & 3
		c.setRegPair(dd, c.fetch16())
		return 12
	case op&0xCF == 0x03: // INC dd
		dd := (op >> 4) & 3
		c.setRegPair(dd, c.regPair(dd)+1)
		return 8
	case op&0xCF == 0x0B: // DEC dd
		dd := (op >> 4) & 3
		c.setRegPair(dd, c.regPair(dd)-1)
		return 8
	case op&0xCF == 0x09: // ADD HL,dd
		dd := (op >> 4) & 3
		hl := c.getHL()
		v := c.regPair(dd)
		r := uint32(hl) + uint32(v)
		h := ((hl & 0x0FFF) + (v & 0x0FFF)) > 0x0FFF
		c.setHL(uint16(r))
		c.setZNHC((c.F&flagZ) != 0, false, h, r > 0xFFFF)
		return 8

	case op&0xCF == 0xC5: // PUSH qq
		qq := (op >> 4) & 3
		c.push16(c.pairQQ(qq))
		return 16
	case op&0xCF == 0xC1: // POP qq
		qq := (op >> 4) & 3
		c.setPairQQ(qq, c.pop16())
		return 12

	case op&0xC7 == 0xC7: // RST t
		t := (op >> 3) & 7
		c.push16(c.PC)
		c.PC = uint16(t) * 8
		return 16

	case op&0xE7 == 0x20: // JR cc,r8
		cc := (op >> 3) & 3
		off := int8(c.fetch8())
		if c.condTrue(cc) {
			c.PC = uint16(int32(c.PC) + int32(off))
			return 12
		}
		return 8
	case op&0xE7 == 0xC2: // JP cc,a16
		cc := (op >> 3) & 3
		addr := c.fetch16()
		if c.condTrue(cc) {
			c.PC = addr
			return 16
		}
		return 12
	case op&0xE7 == 0xC4: // CALL cc,a16
		cc := (op >> 3) & 3
		addr := c.fetch16()
		if c.condTrue(cc) {
			c.push16(c.PC)
			c.PC = addr
			return 24
		}
		return 12
	case op&0xE7 == 0xC0: // RET cc
		cc := (op >> 3) & 3
		if c.condTrue(cc) {
			c.PC = c.pop16()
			return 20
		}
		return 8

	// 16-bit loads that don't fit the dd grid
	case op == 0x08: // LD (a16),SP
		addr := c.fetch16()
		c.write16(addr, c.SP)
		return 20

	case op == 0x02: // LD (BC),A
		c.write8(c.getBC(), c.A)
		return 8
	case op == 0x12: // LD (DE),A
		c.write8(c.getDE(), c.A)
		return 8
	case op == 0x0A: // LD A,(BC)
		c.A = c.read8(c.getBC())
		return 8
	case op == 0x1A: // LD A,(DE)
		c.A = c.read8(c.getDE())
		return 8

	case op == 0x22: // LD (HL+),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl + 1)
		return 8
	case op == 0x2A: // LD A,(HL+)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl + 1)
		return 8
	case op == 0x32: // LD (HL-),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl - 1)
		return 8
	case op == 0x3A: // LD A,(HL-)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl - 1)
		return 8

	case op == 0xE0: // LDH (FF00+n),A
		n := uint16(c.fetch8())
		c.write8(0xFF00+n, c.A)
		return 12
	case op == 0xF0: // LDH A,(FF00+n)
		n := uint16(c.fetch8())
		c.A = c.read8(0xFF00 + n)
		return 12
	case op == 0xE2: // LD (FF00+C),A
		c.write8(0xFF00+uint16(c.C), c.A)
		return 8
	case op == 0xF2: // LD A,(FF00+C)
		c.A = c.read8(0xFF00 + uint16(c.C))
		return 8
	case op == 0xEA: // LD (a16),A
		addr := c.fetch16()
		c.write8(addr, c.A)
		return 16
	case op == 0xFA: // LD A,(a16)
		addr := c.fetch16()
		c.A = c.read8(addr)
		return 16

	case op == 0x07: // RLCA
		cval := (c.A >> 7) & 1
		c.A = (c.A << 1) | cval
		c.setZNHC(false, false, false, cval == 1)
		return 4
	case op == 0x0F: // RRCA
		cval := c.A & 1
		c.A = (c.A >> 1) | (cval << 7)
		c.setZNHC(false, false, false, cval == 1)
		return 4
	case op == 0x17: // RLA
		cval := (c.A >> 7) & 1
		carry := byte(0)
		if (c.F & flagC) != 0 {
			carry = 1
		}
		c.A = (c.A << 1) | carry
		c.setZNHC(false, false, false, cval == 1)
		return 4
	case op == 0x1F: // RRA
		cval := c.A & 1
		carry := byte(0)
		if (c.F & flagC) != 0 {
			carry = 1
		}
		c.A = (c.A >> 1) | (carry << 7)
		c.setZNHC(false, false, false, cval == 1)
		return 4
	case op == 0x27: // DAA
		a := c.A
		cf := (c.F & flagC) != 0
		if (c.F & flagN) == 0 { // after addition
			if cf || a > 0x99 {
				a += 0x60
				cf = true
			}
			if (c.F&flagH) != 0 || (a&0x0F) > 9 {
				a += 0x06
			}
		} else { // after subtraction
			if cf {
				a -= 0x60
			}
			if (c.F & flagH) != 0 {
				a -= 0x06
			}
		}
		c.A = a
		c.setZNHC(c.A == 0, (c.F&flagN) != 0, false, cf)
		return 4
	case op == 0x2F: // CPL
		c.A = ^c.A
		c.F = (c.F & (flagZ | flagC)) | flagN | flagH
		return 4
	case op == 0x37: // SCF
		c.F = (c.F & flagZ) | flagC
		return 4
	case op == 0x3F: // CCF
		newC := (c.F & flagC) == 0
		c.F &= flagZ
		if newC {
			c.F |= flagC
		}
		return 4

	case op == 0xC3: // JP a16
		c.PC = c.fetch16()
		return 16
	case op == 0xE9: // JP (HL)
		c.PC = c.getHL()
		return 4
	case op == 0x18: // JR r8
		off := int8(c.fetch8())
		c.PC = uint16(int32(c.PC) + int32(off))
		return 12

	case op == 0xCD: // CALL a16
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
		return 24
	case op == 0xC9: // RET
		c.PC = c.pop16()
		return 16
	case op == 0xD9: // RETI
		c.PC = c.pop16()
		c.IME = true
		c.eiDelay = 0
		return 16

	case op == 0xC6: // ADD A,d8
		c.aluOp(0, c.fetch8())
		return 8
	case op == 0xCE: // ADC A,d8
		c.aluOp(1, c.fetch8())
		return 8
	case op == 0xD6: // SUB d8
		c.aluOp(2, c.fetch8())
		return 8
	case op == 0xDE: // SBC A,d8
		c.aluOp(3, c.fetch8())
		return 8
	case op == 0xE6: // AND d8
		c.aluOp(4, c.fetch8())
		return 8
	case op == 0xEE: // XOR d8
		c.aluOp(5, c.fetch8())
		return 8
	case op == 0xF6: // OR d8
		c.aluOp(6, c.fetch8())
		return 8
	case op == 0xFE: // CP d8
		c.aluOp(7, c.fetch8())
		return 8

	case op == 0xF8: // LD HL,SP+r8
		off := int8(c.fetch8())
		res := uint16(int32(int16(c.SP)) + int32(off))
		low := byte(c.SP & 0xFF)
		_, _, _, h, cy := c.add8(low, byte(off))
		c.setHL(res)
		c.setZNHC(false, false, h, cy)
		return 12
	case op == 0xF9: // LD SP,HL
		c.SP = c.getHL()
		return 8
	case op == 0xE8: // ADD SP,r8
		off := int8(c.fetch8())
		low := byte(c.SP & 0xFF)
		_, _, _, h, cy := c.add8(low, byte(off))
		c.SP = uint16(int32(int16(c.SP)) + int32(off))
		c.setZNHC(false, false, h, cy)
		return 16

	case op == 0xF3: // DI, delayed until after the next instruction
		c.diDelay = 2
		c.eiDelay = 0
		return 4
	case op == 0xFB: // EI, delayed until after the next instruction
		c.eiDelay = 2
		c.diDelay = 0
		return 4

	case op == 0xCB:
		return c.stepCB()

	case op == 0xD3, op == 0xDB, op == 0xDD, op == 0xE3, op == 0xE4,
		op == 0xEB, op == 0xEC, op == 0xED, op == 0xF4, op == 0xFC, op == 0xFD:
		return c.illegalOpcode(op)
	}

	return c.illegalOpcode(op)
}

// stepCB executes one CB-prefixed opcode: rotates/shifts/SWAP, BIT, RES, SET.
func (c *CPU) stepCB() int {
	cb := c.fetch8()
	reg := cb & 7
	opg := (cb >> 6) & 3
	y := (cb >> 3) & 7

	cycles := 8
	if reg == 6 {
		cycles = 16
	}

	switch opg {
	case 0: // rotate/shift/swap
		v := c.reg(reg)
		var cflag byte
		switch y {
		case 0: // RLC
			cflag = (v >> 7) & 1
			v = (v << 1) | cflag
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 1: // RRC
			cflag = v & 1
			v = (v >> 1) | (cflag << 7)
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 2: // RL
			cflag = (v >> 7) & 1
			cin := byte(0)
			if (c.F & flagC) != 0 {
				cin = 1
			}
			v = (v << 1) | cin
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 3: // RR
			cflag = v & 1
			cin := byte(0)
			if (c.F & flagC) != 0 {
				cin = 1
			}
			v = (v >> 1) | (cin << 7)
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 4: // SLA
			cflag = (v >> 7) & 1
			v <<= 1
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 5: // SRA
			cflag = v & 1
			v = (v >> 1) | (v & 0x80)
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 6: // SWAP
			v = (v << 4) | (v >> 4)
			c.setZNHC(v == 0, false, false, false)
		case 7: // SRL
			cflag = v & 1
			v >>= 1
			c.setZNHC(v == 0, false, false, cflag == 1)
		}
		c.setReg(reg, v)
	case 1: // BIT y,r
		v := c.reg(reg)
		bit := (v >> y) & 1
		c.F = (c.F & flagC) | flagH
		if bit == 0 {
			c.F |= flagZ
		}
	case 2: // RES y,r
		v := c.reg(reg)
		v &^= 1 << y
		c.setReg(reg, v)
	case 3: // SET y,r
		v := c.reg(reg)
		v |= 1 << y
		c.setReg(reg, v)
	}
	return cycles
}
