// Command s1 sequences the power rails and brings up the configuration flash
// of an S1 module.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gentam/s1"
)

var (
	configFile = flag.String("config", "", "board profile (YAML)")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	s1 [-config file] [-log-level level] <command> [arguments]

Commands:
	info	 print adapter, PMIC and FPGA status
	power	 set rails: vaux <volts> | vio <volts> | core on|off
	fpga	 FPGA reset line: hold | release
	flash	 flash: wake | id | status | erase [-wait] | read | sleep
	up	 power up and bring up the flash
	down	 power down
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "info":
		infoCommand()
	case "power":
		powerCommand(flag.Args()[1:])
	case "fpga":
		fpgaCommand(flag.Args()[1:])
	case "flash":
		flashCommand(flag.Args()[1:])
	case "up":
		upCommand(flag.Args()[1:])
	case "down":
		downCommand()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	return slog.New(h), nil
}

// openModule opens the module and probes the PMIC, exiting on failure. The
// FPGA reset line is left alone.
func openModule() *s1.Module {
	log, err := newLogger(*logLevel)
	if err != nil {
		fatalUsage("%v", err)
	}
	cfg, err := s1.LoadConfig(*configFile)
	if err != nil {
		fatalf("%v", err)
	}
	m, err := s1.Open(cfg, s1.WithLogger(log))
	if err != nil {
		fatalf("%v", err)
	}
	if err := m.Probe(); err != nil {
		m.Close()
		fatalf("module probe failed: %v", err)
	}
	return m
}

// openModuleHeld is openModule for commands that use the flash: the FPGA is
// held in reset so that it stays off the SPI bus.
func openModuleHeld() *s1.Module {
	m := openModule()
	if err := m.HoldFPGAReset(); err != nil {
		m.Close()
		fatalf("%v", err)
	}
	return m
}

// parseVolts parses "1.8", "1.8V" or "off" (0V).
func parseVolts(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "off") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSuffix(s, "V"), "v"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid voltage %q", s)
	}
	return v, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
