package s1

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Adapters understood by Open.
const (
	AdapterHost = "host" // I2C, SPI and GPIO from the host registries (sysfs, ...)
	AdapterFTDI = "ftdi" // SPI and FPGA lines from an FT232H/FT2232H, PMIC from the host
)

// Config describes how the module is wired to the host.
type Config struct {
	Adapter string `yaml:"adapter"`

	// I2CBus is the i2creg name of the PMIC bus, empty for the first one.
	I2CBus   string `yaml:"i2c_bus"`
	PMICAddr uint16 `yaml:"pmic_addr"`

	// SPIPort is the spireg name of the flash port (host adapter only).
	SPIPort    string `yaml:"spi_port"`
	SPIClockHz int64  `yaml:"spi_clock_hz"`

	// gpioreg pin names (host adapter only). An empty ChipSelect leaves CS
	// to the SPI port.
	ResetPin   string `yaml:"reset_pin"`
	DonePin    string `yaml:"done_pin"`
	ChipSelect string `yaml:"cs_pin"`
}

// DefaultConfig returns the wiring of the module on its FT2232H carrier.
func DefaultConfig() Config {
	return Config{
		Adapter:    AdapterFTDI,
		PMICAddr:   PMICAddr,
		SPIClockHz: 30_000_000, // [AN_135 3.2.1 Divisors]
	}
}

// LoadConfig reads a YAML board profile on top of DefaultConfig. An empty
// path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration can be opened.
func (c Config) Validate() error {
	var errs []error
	switch c.Adapter {
	case AdapterHost:
		if c.ResetPin == "" {
			errs = append(errs, errors.New("reset_pin is required with the host adapter"))
		}
		if c.DonePin == "" {
			errs = append(errs, errors.New("done_pin is required with the host adapter"))
		}
	case AdapterFTDI:
	default:
		errs = append(errs, fmt.Errorf("unknown adapter %q", c.Adapter))
	}
	if c.PMICAddr == 0 || c.PMICAddr > 0x7F {
		errs = append(errs, fmt.Errorf("pmic_addr 0x%X is not a 7-bit address", c.PMICAddr))
	}
	if c.SPIClockHz <= 0 {
		errs = append(errs, fmt.Errorf("spi_clock_hz %d must be positive", c.SPIClockHz))
	}
	return errors.Join(errs...)
}
