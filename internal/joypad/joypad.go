// Package joypad models the DMG JOYP register (0xFF00) and button state.
package joypad

// Button bitmasks, matching spec.md's key_down/key_up contract.
const (
	Right  byte = 1 << 0
	Left   byte = 1 << 1
	Up     byte = 1 << 2
	Down   byte = 1 << 3
	A      byte = 1 << 4
	B      byte = 1 << 5
	Select byte = 1 << 6
	Start  byte = 1 << 7
)

// RequestFunc raises the JOYPAD interrupt source in the owning IF register.
type RequestFunc func()

// Joypad tracks which buttons are held and which button group (or both) the
// game has selected via bits 5..4 of JOYP, and raises JOYPAD on any
// select-line transitioning high-to-low (a button press becoming visible).
type Joypad struct {
	pressed byte // bitmask of Button* constants, 1 = held down
	select_ byte // last-written bits 5..4 (0 = that group selected)
	lastLow byte // previously computed low nibble, for edge detection

	Request RequestFunc
}

func New(req RequestFunc) *Joypad {
	return &Joypad{select_: 0x30, lastLow: 0x0F, Request: req}
}

// Read returns JOYP: bits 7..6 always 1, bits 5..4 reflect the last select
// write, bits 3..0 are active-low button state for the selected group(s).
func (j *Joypad) Read() byte {
	return 0xC0 | (j.select_ & 0x30) | j.lowNibble()
}

// Write latches which button group(s) are selected.
func (j *Joypad) Write(value byte) {
	j.select_ = value & 0x30
	j.updateEdge()
}

func (j *Joypad) lowNibble() byte {
	low := byte(0x0F)
	if j.select_&0x10 == 0 { // P14 low selects D-pad
		if j.pressed&Right != 0 {
			low &^= 0x01
		}
		if j.pressed&Left != 0 {
			low &^= 0x02
		}
		if j.pressed&Up != 0 {
			low &^= 0x04
		}
		if j.pressed&Down != 0 {
			low &^= 0x08
		}
	}
	if j.select_&0x20 == 0 { // P15 low selects buttons
		if j.pressed&A != 0 {
			low &^= 0x01
		}
		if j.pressed&B != 0 {
			low &^= 0x02
		}
		if j.pressed&Select != 0 {
			low &^= 0x04
		}
		if j.pressed&Start != 0 {
			low &^= 0x08
		}
	}
	return low
}

func (j *Joypad) updateEdge() {
	newLow := j.lowNibble()
	fallen := j.lastLow &^ newLow // bits that were 1, now 0
	if fallen != 0 && j.Request != nil {
		j.Request()
	}
	j.lastLow = newLow
}

// KeyDown marks a button pressed and raises JOYPAD if that changes a
// currently-selected line from high to low.
func (j *Joypad) KeyDown(button byte) {
	j.pressed |= button
	j.updateEdge()
}

// KeyUp marks a button released.
func (j *Joypad) KeyUp(button byte) {
	j.pressed &^= button
	j.updateEdge()
}

// AnyPressed reports whether any button is currently held, used to wake the
// CPU from STOP.
func (j *Joypad) AnyPressed() bool { return j.pressed != 0 }
