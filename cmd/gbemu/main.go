package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kestrelgb/dmgcore/internal/cart"
	"github.com/kestrelgb/dmgcore/internal/emu"
	"github.com/kestrelgb/dmgcore/internal/ui"
)

// usage matches spec.md §6's CLI contract exactly: no flags, just the BIOS,
// ROM, and an optional battery-RAM mirror.
const usage = "usage: gbemu <bios-file> <rom-file> [<save-file>]"

func loadBIOS(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read BIOS %s: %w", path, err)
	}
	if len(data) != 0x100 {
		return nil, fmt.Errorf("BIOS %s: got %d bytes, want exactly 256", path, len(data))
	}
	return data, nil
}

func loadROM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ROM %s: %w", path, err)
	}
	if len(data) == 0 || len(data)%0x4000 != 0 {
		return nil, fmt.Errorf("ROM %s: size %d is not a non-zero multiple of 16 KiB", path, len(data))
	}
	return data, nil
}

func run() error {
	args := os.Args[1:]
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%s", usage)
	}
	biosPath, romPath := args[0], args[1]
	var savePath string
	if len(args) == 3 {
		savePath = args[2]
	}

	bios, err := loadBIOS(biosPath)
	if err != nil {
		return err
	}
	rom, err := loadROM(romPath)
	if err != nil {
		return err
	}
	if h, herr := cart.ParseHeader(rom); herr == nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}

	m := emu.New(emu.Config{})
	m.SetBootROM(bios)
	if abs, aerr := filepath.Abs(romPath); aerr == nil {
		romPath = abs
	}
	if err := m.LoadROMFromFile(romPath); err != nil {
		return fmt.Errorf("load cartridge: %w", err)
	}

	if savePath != "" {
		if data, serr := os.ReadFile(savePath); serr == nil {
			if m.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", savePath, len(data))
			}
		}
	}

	uiCfg := ui.Config{}
	if t := m.ROMTitle(); t != "" {
		uiCfg.Title = t
	}
	app := ui.NewApp(uiCfg, m)
	runErr := app.Run()
	app.SaveSettings()

	if savePath != "" {
		if data, ok := m.SaveBattery(); ok {
			if werr := os.WriteFile(savePath, data, 0644); werr != nil {
				log.Printf("write save file %s: %v", savePath, werr)
			} else {
				log.Printf("wrote %s", savePath)
			}
		}
	}
	return runErr
}

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
