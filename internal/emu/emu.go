// Package emu wires the CPU, Bus/MMU, and cartridge into a single runnable
// DMG machine: the Scheduler of spec.md §2.7, repeatedly advancing the CPU
// by one instruction and presenting a frame once VBlank starts.
package emu

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kestrelgb/dmgcore/internal/bus"
	"github.com/kestrelgb/dmgcore/internal/cart"
	"github.com/kestrelgb/dmgcore/internal/cpu"
)

// Button bitmasks for KeyDown/KeyUp, matching spec.md §6's joypad encoding
// (and internal/joypad's bit layout, re-exported here so hosts don't need
// to import internal/bus directly just to press buttons).
const (
	ButtonRight  = bus.JoypRight
	ButtonLeft   = bus.JoypLeft
	ButtonUp     = bus.JoypUp
	ButtonDown   = bus.JoypDown
	ButtonA      = bus.JoypA
	ButtonB      = bus.JoypB
	ButtonSelect = bus.JoypSelectBtn
	ButtonStart  = bus.JoypStart
)

// Machine owns every DMG core component (spec.md §9's "single owning
// object") and drives the scheduler loop.
type Machine struct {
	cfg Config

	c *cpu.CPU

	romPath string
	rom     []byte
	bootROM []byte
	header  *cart.Header

	fatal    string
	fb       []byte // RGBA 160x144*4, refreshed once per frame from the PPU's 2-bit shades
	frameSeq uint64 // bumped by the PPU's present callback; StepFrame waits for it to advance

	wantCGBColors bool // user preference: apply a boot-style colorization tint
	useCGBBG      bool // actually applying the tint right now (set on (re)reset)
	compatID      int
}

func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, fb: make([]byte, 160*144*4)}
}

// SetBootROM stages a boot ROM to be mapped at reset time; LoadCartridge (or
// a later reset) picks it up.
func (m *Machine) SetBootROM(data []byte) {
	if len(data) >= 0x100 {
		m.bootROM = append([]byte(nil), data[:0x100]...)
	} else {
		m.bootROM = nil
	}
}

// LoadCartridge installs rom bytes and (re)creates the Bus/CPU pair around
// it. boot, if 256 bytes or longer, overrides any previously staged boot ROM.
// A ROM too small to hold a header or carrying an unsupported MBC type is a
// load error per spec.md §7, not a silent fallback.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	ct, err := cart.NewCartridge(rom)
	if err != nil {
		return err
	}
	if len(boot) >= 0x100 {
		m.bootROM = append([]byte(nil), boot[:0x100]...)
	}

	b := bus.NewWithCartridge(ct)
	if len(m.bootROM) >= 0x100 {
		b.SetBootROM(m.bootROM)
	}

	c := cpu.New(b)
	c.SetFatalFunc(func(msg string) { m.fatal = msg })
	b.SetPCReader(func() uint16 { return c.PC })
	b.PPU().SetPresentFunc(func(*[144][160]byte) { m.frameSeq++ })

	m.rom = rom
	m.header = h
	m.c = c
	if id, ok := autoCompatPaletteFromHeader(h); ok {
		m.compatID = id
	} else {
		m.compatID = 0
	}

	if len(m.bootROM) >= 0x100 {
		m.resetWithBoot()
	} else {
		m.resetPostBoot()
	}
	m.renderFramebuffer()
	return nil
}

// LoadROMFromFile reads rom and wires a fresh machine around it, remembering
// the path for ROMPath/window-title/battery use. It does not itself read the
// sibling .sav; callers load and apply that via LoadBattery.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(data, m.bootROM); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// SetSerialWriter routes bytes sent over the serial port to w. LoadCartridge
// builds a new Bus, so this applies to the currently loaded ROM only.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.c == nil {
		return
	}
	m.c.Bus().SetSerialWriter(w)
}

// ROMPath returns the path of the currently loaded ROM, or "" if none.
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header title, or "" if no ROM is loaded.
func (m *Machine) ROMTitle() string {
	if m.header == nil {
		return ""
	}
	if m.header.Title != "" {
		return m.header.Title
	}
	if m.romPath != "" {
		return romDisplayName(m.romPath)
	}
	return ""
}

// LoadBattery seeds external RAM from a previously-saved mirror. It reports
// whether the cartridge actually has battery-backed RAM to receive it.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.c == nil {
		return false
	}
	c := m.c.Bus().Cart()
	if c.Battery() == nil {
		return false
	}
	c.LoadBattery(data)
	return true
}

// SaveBattery returns the current external-RAM mirror for writing to .sav,
// and false if the cartridge has no battery-backed RAM.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.c == nil {
		return nil, false
	}
	data := m.c.Bus().Cart().Battery()
	return data, data != nil
}

// ResetPostBoot resets to typical DMG post-boot register/IO state and jumps
// straight to cartridge code at 0x0100, skipping the boot ROM.
func (m *Machine) ResetPostBoot() { m.resetPostBoot() }

func (m *Machine) resetPostBoot() {
	if m.c == nil {
		return
	}
	b := m.c.Bus()
	m.c.ResetNoBoot()
	m.c.SetPC(0x0100)
	b.Write(0xFF00, 0xCF)
	b.Write(0xFF05, 0x00)
	b.Write(0xFF06, 0x00)
	b.Write(0xFF07, 0x00)
	b.Write(0xFF40, 0x91)
	b.Write(0xFF42, 0x00)
	b.Write(0xFF43, 0x00)
	b.Write(0xFF45, 0x00)
	b.Write(0xFF47, 0xFC)
	b.Write(0xFF48, 0xFF)
	b.Write(0xFF49, 0xFF)
	b.Write(0xFF4A, 0x00)
	b.Write(0xFF4B, 0x00)
	b.Write(0xFFFF, 0x00)
	m.fatal = ""
	m.frameSeq = 0
}

// ResetWithBoot resets to the very start of the boot ROM (PC=0x0000), so the
// Nintendo logo scroll and header checksum run as on real hardware. If no
// boot ROM has been staged it falls back to ResetPostBoot.
func (m *Machine) ResetWithBoot() {
	if len(m.bootROM) < 0x100 {
		m.resetPostBoot()
		return
	}
	m.resetWithBoot()
}

func (m *Machine) resetWithBoot() {
	if m.c == nil {
		return
	}
	m.c.Bus().SetBootROM(m.bootROM)
	m.c.SetPC(0x0000)
	m.c.SP = 0xFFFE
	m.c.IME = false
	m.fatal = ""
	m.frameSeq = 0
}

// ResetCGBPostBoot resets to post-boot state and, when on is true, leaves
// the compatibility-palette tint engaged across the reset (used when the
// user enables colorization for an already-running DMG title).
func (m *Machine) ResetCGBPostBoot(on bool) {
	m.resetPostBoot()
	m.useCGBBG = on
	m.renderFramebuffer()
}

// StepFrame runs the CPU until the PPU has presented exactly one frame
// (entered VBlank), applying the current framebuffer palette afterward.
func (m *Machine) StepFrame() {
	m.runOneFrame()
	m.renderFramebuffer()
}

// StepFrameNoRender advances one frame's worth of emulation without paying
// for the RGBA conversion, for frame-skip fast-forward.
func (m *Machine) StepFrameNoRender() {
	m.runOneFrame()
}

func (m *Machine) runOneFrame() {
	if m.c == nil || m.fatal != "" {
		return
	}
	target := m.frameSeq + 1
	// A DMG frame is 70224 T-cycles; bound the loop generously in case a
	// guest spins without ever reaching VBlank (e.g. LCD disabled).
	const maxCyclesPerFrame = 70224 * 4
	spent := 0
	for m.frameSeq < target && spent < maxCyclesPerFrame && m.fatal == "" {
		spent += m.c.Step()
	}
}

// Framebuffer returns the most recent frame as packed RGBA8888 bytes,
// 160x144, row-major.
func (m *Machine) Framebuffer() []byte { return m.fb }

func (m *Machine) renderFramebuffer() {
	if m.c == nil {
		return
	}
	shades := m.c.Bus().PPU().Framebuffer()
	pal := greyShades
	if m.useCGBBG && m.IsCGBCompat() {
		pal = cgbCompatSets[m.compatID]
	}
	i := 0
	for y := 0; y < 144; y++ {
		for x := 0; x < 160; x++ {
			c := pal[shades[y][x]&3]
			m.fb[i+0] = c[0]
			m.fb[i+1] = c[1]
			m.fb[i+2] = c[2]
			m.fb[i+3] = 0xFF
			i += 4
		}
	}
}

// KeyDown presses button (one of the Button* masks), matching spec.md §6's
// discrete key_down entry point: internal/joypad raises JOYPAD when the press
// pulls a selected line low, and a CPU in STOP resumes on its next step
// because its WakeFromStop hook sees a held button.
func (m *Machine) KeyDown(button byte) {
	if m.c == nil {
		return
	}
	m.c.Bus().Joypad().KeyDown(button)
}

// KeyUp releases button, matching spec.md §6's discrete key_up entry point.
func (m *Machine) KeyUp(button byte) {
	if m.c == nil {
		return
	}
	m.c.Bus().Joypad().KeyUp(button)
}

// SetUseFetcherBG is a compatibility knob for hosts that remember a
// fetcher-vs-direct render preference; this core always renders through the
// pixel-FIFO fetcher (spec.md §4.4), so the flag is only recorded.
func (m *Machine) SetUseFetcherBG(v bool) { m.cfg.UseFetcherBG = v }

// WantCGBColors reports the user's colorization preference.
func (m *Machine) WantCGBColors() bool { return m.wantCGBColors }

// SetUseCGBBG turns the colorization tint on or off for the currently
// loaded ROM immediately (without a reset).
func (m *Machine) SetUseCGBBG(v bool) {
	m.wantCGBColors = v
	m.useCGBBG = v
	m.renderFramebuffer()
}

// UseCGBBG reports whether the tint is actively applied right now.
func (m *Machine) UseCGBBG() bool { return m.useCGBBG }

// IsCGBCompat reports whether the loaded ROM is eligible for boot-style
// colorization: any cartridge not flagged CGB-exclusive (header byte 0x0143
// == 0xC0 means the cartridge won't run correctly as a plain DMG title at
// all, compat palette or not).
func (m *Machine) IsCGBCompat() bool {
	return m.header != nil && m.header.CGBFlag != 0xC0
}

// SetCompatPalette selects a colorization palette by index, clamped to the
// available set.
func (m *Machine) SetCompatPalette(id int) {
	if id < 0 {
		id = 0
	}
	if id >= len(cgbCompatSets) {
		id = len(cgbCompatSets) - 1
	}
	m.compatID = id
	m.renderFramebuffer()
}

// CurrentCompatPalette returns the active colorization palette index.
func (m *Machine) CurrentCompatPalette() int { return m.compatID }

// CycleCompatPalette advances the colorization palette by dir (+1/-1),
// wrapping.
func (m *Machine) CycleCompatPalette(dir int) {
	n := len(cgbCompatSets)
	m.compatID = ((m.compatID+dir)%n + n) % n
	m.renderFramebuffer()
}

// CompatPaletteName returns a human label for a colorization palette index.
func (m *Machine) CompatPaletteName(id int) string {
	if id < 0 || id >= len(cgbCompatSetNames) {
		return "Unknown"
	}
	return cgbCompatSetNames[id]
}

// APUBufferedStereo reports how many stereo frames are ready to pull.
func (m *Machine) APUBufferedStereo() int {
	if m.c == nil {
		return 0
	}
	return m.c.Bus().APU().StereoAvailable()
}

// APUPullStereo drains up to max interleaved (L,R) int16 stereo frames.
func (m *Machine) APUPullStereo(max int) []int16 {
	if m.c == nil {
		return nil
	}
	return m.c.Bus().APU().PullStereo(max)
}

// APUClearAudioLatency drops any buffered samples, used when (re)starting
// audio playback to avoid presenting a stale backlog.
func (m *Machine) APUClearAudioLatency() {
	if m.c == nil {
		return
	}
	a := m.c.Bus().APU()
	a.PullStereo(a.StereoAvailable())
}

// APUCapBufferedStereo trims the buffered stereo frame count down to max,
// discarding the oldest samples, to bound audio latency.
func (m *Machine) APUCapBufferedStereo(max int) {
	if m.c == nil {
		return
	}
	a := m.c.Bus().APU()
	if over := a.StereoAvailable() - max; over > 0 {
		a.PullStereo(over)
	}
}

// errSaveStatesUnsupported is returned by Save/LoadStateFromFile: whole-
// machine snapshotting is an explicit spec non-goal (spec.md §1), so these
// exist only to keep the menu's save-state slots a well-defined no-op
// rather than removing the UI affordance outright.
var errSaveStatesUnsupported = errors.New("emu: save states are not supported")

// SaveStateToFile always fails; see errSaveStatesUnsupported.
func (m *Machine) SaveStateToFile(string) error { return errSaveStatesUnsupported }

// LoadStateFromFile always fails; see errSaveStatesUnsupported.
func (m *Machine) LoadStateFromFile(string) error { return errSaveStatesUnsupported }

// romDisplayName derives a window-title fallback from a ROM path when the
// header title is blank (some homebrew ROMs leave it empty).
func romDisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
