package s1

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, AdapterFTDI, cfg.Adapter)
	assert.EqualValues(t, PMICAddr, cfg.PMICAddr)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigHost(t *testing.T) {
	path := writeConfig(t, `
adapter: host
i2c_bus: I2C1
spi_port: SPI0.0
spi_clock_hz: 8000000
reset_pin: GPIO20
done_pin: GPIO16
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Adapter:    AdapterHost,
		I2CBus:     "I2C1",
		PMICAddr:   PMICAddr,
		SPIPort:    "SPI0.0",
		SPIClockHz: 8_000_000,
		ResetPin:   "GPIO20",
		DonePin:    "GPIO16",
	}, cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, `
adapter: host
pmic_addr: 0x90
spi_clock_hz: 0
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	for _, msg := range []string{"reset_pin", "done_pin", "pmic_addr", "spi_clock_hz"} {
		assert.Contains(t, err.Error(), msg)
	}

	path = writeConfig(t, "adapter: usb\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, `unknown adapter "usb"`)

	path = writeConfig(t, "adapter: [\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
