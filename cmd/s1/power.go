package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/gentam/s1"
)

func powerCommand(args []string) {
	if len(args) != 2 {
		fatalUsage("usage: s1 power vaux <volts> | vio <volts> | core on|off")
	}

	m := openModule()
	defer m.Close()

	var err error
	switch rail, val := args[0], args[1]; rail {
	case "vaux", "vio":
		v, perr := parseVolts(val)
		if perr != nil {
			fatalUsage("%v", perr)
		}
		if rail == "vaux" {
			err = m.Power.SetAuxRail(v)
		} else {
			err = m.Power.SetIORail(v)
		}
	case "core":
		on, perr := parseOnOff(val)
		if perr != nil {
			fatalUsage("%v", perr)
		}
		err = m.Power.SetFPGACore(on)
	default:
		fatalUsage("unknown rail %q", rail)
	}
	if errors.Is(err, s1.ErrInvalidSetting) {
		fatalUsage("%v", err)
	}
	if err != nil {
		fatalf("power %s failed: %v", args[0], err)
	}
}

func fpgaCommand(args []string) {
	if len(args) != 1 {
		fatalUsage("usage: s1 fpga hold|release")
	}

	m := openModule()
	defer m.Close()

	switch args[0] {
	case "hold":
		if err := m.HoldFPGAReset(); err != nil {
			fatalf("%v", err)
		}
	case "release":
		if err := m.ReleaseFPGAReset(); err != nil {
			fatalf("%v", err)
		}
	default:
		fatalUsage("unknown fpga command %q", args[0])
	}
}

func upCommand(args []string) {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	var (
		vio  string
		vaux string
	)
	fs.StringVar(&vio, "vio", "1.8", "FPGA I/O rail voltage")
	fs.StringVar(&vaux, "vaux", "off", "auxiliary rail voltage")
	fs.Parse(args)

	io, err := parseVolts(vio)
	if err != nil {
		fatalUsage("%v", err)
	}
	aux, err := parseVolts(vaux)
	if err != nil {
		fatalUsage("%v", err)
	}

	m := openModuleHeld()
	defer m.Close()

	if err := m.Power.SetFPGACore(true); err != nil {
		fatalf("fpga core on failed: %v", err)
	}
	if err := m.Power.SetIORail(io); err != nil {
		fatalf("io rail failed: %v", err)
	}
	if err := m.Power.SetAuxRail(aux); err != nil {
		fatalf("aux rail failed: %v", err)
	}
	if err := m.Flash.WakeAndIdentify(); err != nil {
		fatalf("flash bring-up failed: %v", err)
	}
	fmt.Println("module up")
}

func downCommand() {
	m := openModule()
	defer m.Close()

	if err := m.Power.SetAuxRail(0); err != nil {
		fatalf("aux rail off failed: %v", err)
	}
	// Also takes the I/O rail down first.
	if err := m.Power.SetFPGACore(false); err != nil {
		fatalf("fpga core off failed: %v", err)
	}
	fmt.Println("module down")
}
