package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gentam/s1"
)

func flashCommand(args []string) {
	if len(args) == 0 {
		fatalUsage("usage: s1 flash wake|id|status|erase|read|sleep [arguments]")
	}

	switch cmd := args[0]; cmd {
	case "wake":
		flashWakeCommand()
	case "id":
		flashIDCommand()
	case "status":
		flashStatusCommand()
	case "erase":
		flashEraseCommand(args[1:])
	case "read":
		flashReadCommand(args[1:])
	case "sleep":
		flashSleepCommand()
	default:
		fatalUsage("unknown flash command %q", cmd)
	}
}

// wakeFlash takes the flash out of deep power-down. No reset, so a running
// erase is not aborted.
func wakeFlash(m *s1.Module) {
	if err := m.Flash.Wake(); err != nil {
		fatalf("flash wake failed: %v", err)
	}
}

func flashWakeCommand() {
	m := openModuleHeld()
	defer m.Close()

	if err := m.Flash.WakeAndIdentify(); err != nil {
		fatalf("flash bring-up failed: %v", err)
	}
	fmt.Println("flash ready")
}

func flashIDCommand() {
	m := openModuleHeld()
	defer m.Close()
	wakeFlash(m)

	flashID, name, err := m.Flash.ReadID()
	if err != nil {
		fatalf("read flash ID failed: %v", err)
	}
	fmt.Printf("%X\t%s\n", flashID, name)
}

func flashStatusCommand() {
	m := openModuleHeld()
	defer m.Close()
	wakeFlash(m)

	sr, err := m.Flash.ReadStatusRegister()
	if err != nil {
		fatalf("read flash status register failed: %v", err)
	}
	fmt.Println(sr)
}

func flashEraseCommand(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	var (
		wait     bool
		timeout  time.Duration
		interval time.Duration
	)
	fs.BoolVar(&wait, "wait", false, "wait for the erase to complete")
	fs.DurationVar(&timeout, "timeout", 0, "give up waiting after this long (default: datasheet chip erase time, or forever)")
	fs.DurationVar(&interval, "interval", time.Second, "status poll interval")
	fs.Parse(args)
	if interval <= 0 {
		fatalUsage("-interval must be positive, got %v", interval)
	}

	m := openModuleHeld()
	defer m.Close()

	if err := m.Flash.WakeAndIdentify(); err != nil {
		fatalf("flash bring-up failed: %v", err)
	}
	if err := m.Flash.EraseAll(); err != nil {
		fatalf("bulk erase flash failed: %v", err)
	}
	if !wait {
		fmt.Println("erase started")
		return
	}

	if timeout == 0 {
		timeout = m.Flash.ChipEraseTime()
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := m.Flash.WaitReady(ctx, interval); err != nil {
		fatalf("erase did not complete: %v", err)
	}
	fmt.Printf("erase done in %v\n", time.Since(start).Round(time.Millisecond))
}

func flashReadCommand(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var (
		addr    int
		nread   int
		outFile string
	)
	fs.IntVar(&addr, "a", 0, "start address")
	fs.IntVar(&nread, "n", 256, "number of bytes to read")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	m := openModuleHeld()
	defer m.Close()
	wakeFlash(m)

	data, err := m.Flash.Read(addr, nread)
	if err != nil {
		fatalf("read flash failed: %v", err)
	}
	if outFile == "" {
		fmt.Println(hex.Dump(data))
		return
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		fatalf("write file failed: %v", err)
	}
}

func flashSleepCommand() {
	m := openModuleHeld()
	defer m.Close()

	if err := m.Flash.PowerDown(); err != nil {
		fatalf("flash power down failed: %v", err)
	}
}
