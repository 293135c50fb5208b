package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace        bool // not read by the emulator; setting it has no effect
	LimitFPS     bool // not read by the emulator; setting it has no effect
	UseFetcherBG bool // recorded only; BG always renders via the fetcher/FIFO scanline path
	// Later: fast-forward, GBC enable, debugger flags, etc.
}
