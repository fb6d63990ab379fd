package s1

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// Module is an S1 module: PMIC rails, configuration flash and the FPGA
// control lines.
type Module struct {
	FTDI  *ftdi.FT232H // nil unless opened through the ftdi adapter
	Power *Power
	Flash *Flash

	reset gpio.PinOut // low holds the FPGA in reset
	done  gpio.PinIn  // high once the FPGA is configured
	log   *slog.Logger

	closers []io.Closer
}

// NewModule assembles a Module from already opened transports: pmic is the
// PMIC I2C device, flash the flash SPI connection.
func NewModule(pmic, flash conn.Conn, reset gpio.PinOut, done gpio.PinIn, opts ...Option) *Module {
	o := newOptions(opts)
	return &Module{
		Power: NewPower(pmic, opts...),
		Flash: NewFlash(flash, opts...),
		reset: reset,
		done:  done,
		log:   o.log,
	}
}

// Init holds the FPGA in reset, then runs Probe. This is the boot-time
// setup; it clears a configured FPGA.
func (m *Module) Init() error {
	if err := m.HoldFPGAReset(); err != nil {
		return err
	}
	return m.Probe()
}

// Probe configures the done line and checks that the PMIC answers with the
// expected chip ID. The reset line is left as it is.
func (m *Module) Probe() error {
	if err := m.done.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure done pin: %w", err)
	}
	return m.Power.CheckChipID()
}

// HoldFPGAReset drives the reset line low, holding the FPGA in reset
// whatever the rail state. It also keeps the FPGA off the shared SPI bus.
func (m *Module) HoldFPGAReset() error {
	if err := m.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("hold fpga reset: %w", err)
	}
	return nil
}

// ReleaseFPGAReset drives the reset line high, letting the FPGA configure
// itself from flash.
func (m *Module) ReleaseFPGAReset() error {
	if err := m.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("release fpga reset: %w", err)
	}
	return nil
}

// FPGADone reports whether the FPGA signals a completed configuration.
func (m *Module) FPGADone() bool {
	return m.done.Read() == gpio.High
}

// Close releases the buses opened by Open.
func (m *Module) Close() error {
	var errs []error
	for _, c := range slices.Backward(m.closers) {
		errs = append(errs, c.Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

var hostInitialized atomic.Bool

// Open initializes the periph.io host drivers once per process and opens
// the module as described by cfg.
func Open(cfg Config, opts ...Option) (m *Module, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			hostInitialized.Store(false)
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	var closers []io.Closer
	defer func() {
		if err != nil {
			for _, c := range slices.Backward(closers) {
				_ = c.Close()
			}
		}
	}()

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.I2CBus, err)
	}
	closers = append(closers, bus)
	pmic := &i2c.Dev{Bus: bus, Addr: cfg.PMICAddr}

	var (
		port        spi.PortCloser
		ft          *ftdi.FT232H
		reset       gpio.PinOut
		done        gpio.PinIn
		cs          gpio.PinOut
		clock       = physic.Frequency(cfg.SPIClockHz) * physic.Hertz
		adapterOpts []Option
	)
	switch cfg.Adapter {
	case AdapterFTDI:
		if ft, err = findFT2232H(); err != nil {
			return nil, err
		}
		if port, err = ft.SPI(); err != nil {
			return nil, fmt.Errorf("failed to get SPI port: %w", err)
		}

		// [EB82|Appendix A. Sheet 2 of 5 (USB to SPI/RS232)] / [icebreaker-sch.pdf]
		// ADBUS0 | iCE_SCK
		// ADBUS1 | iCE_MOSI / FLASH_MOSI
		// ADBUS2 | iCE_MISO / FLASH_MISO
		// ADBUS4 | iCE_SS_B
		// ADBUS6 | iCE_CDONE
		// ADBUS7 | iCE_CRESET / iCE_RESET
		cs = ft.D4
		reset = ft.D7
		done = ft.D6

	case AdapterHost:
		if port, err = spireg.Open(cfg.SPIPort); err != nil {
			return nil, fmt.Errorf("failed to open SPI port %q: %w", cfg.SPIPort, err)
		}
		if reset, err = pinByName(cfg.ResetPin); err != nil {
			return nil, err
		}
		if done, err = pinByName(cfg.DonePin); err != nil {
			return nil, err
		}
		if cfg.ChipSelect != "" {
			if cs, err = pinByName(cfg.ChipSelect); err != nil {
				return nil, err
			}
		}
	}
	closers = append(closers, port)

	// [FTDI AN_114|1.2]> FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	// [N25Q32|Table 7: SPI Modes] mode 0 and mode 3 are supported
	flash, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}
	if cs != nil {
		adapterOpts = append(adapterOpts, WithChipSelect(cs))
		if err := cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("deassert chip select: %w", err)
		}
	}

	m = NewModule(pmic, flash, reset, done, slices.Concat(opts, adapterOpts)...)
	m.FTDI = ft
	m.closers = closers
	m.log.Debug("module opened", "adapter", cfg.Adapter, "i2c", bus.String(), "spi", port.String())
	return m, nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return p, nil
}

func findFT2232H() (*ftdi.FT232H, error) {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}

	return nil, errors.New("FT2232H device not found")
}
