package s1

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func write(reg, v byte) i2ctest.IO {
	return i2ctest.IO{Addr: PMICAddr, W: []byte{reg, v}}
}

func read(reg, v byte) i2ctest.IO {
	return i2ctest.IO{Addr: PMICAddr, W: []byte{reg}, R: []byte{v}}
}

// newTestPower returns a Power replaying ops; the test fails if any op is
// left over.
func newTestPower(t *testing.T, ops ...i2ctest.IO) *Power {
	t.Helper()
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	t.Cleanup(func() {
		assert.NoError(t, pb.Close(), "not all PMIC transactions were issued")
	})
	return NewPower(&i2c.Dev{Bus: pb, Addr: PMICAddr})
}

func TestSetAuxRail(t *testing.T) {
	t.Run("4V with regulator mode", func(t *testing.T) {
		p := newTestPower(t,
			read(pmicRegLDO0B, 0x00),
			write(pmicRegSBB2A, 64),
			write(pmicRegSBB2B, 0x0E),
		)
		require.NoError(t, p.SetAuxRail(4.0))
	})

	t.Run("4V with load-switch mode", func(t *testing.T) {
		p := newTestPower(t, read(pmicRegLDO0B, 0x08))
		err := p.SetAuxRail(4.0)
		assert.ErrorIs(t, err, ErrInvalidSetting)
	})

	t.Run("low voltage skips mode check", func(t *testing.T) {
		p := newTestPower(t,
			write(pmicRegSBB2A, 50), // (3.3-0.8)/0.05
			write(pmicRegSBB2B, 0x0E),
		)
		require.NoError(t, p.SetAuxRail(3.3))
	})

	t.Run("3.46V boundary skips mode check", func(t *testing.T) {
		p := newTestPower(t,
			write(pmicRegSBB2A, 53), // round(53.2)
			write(pmicRegSBB2B, 0x0E),
		)
		require.NoError(t, p.SetAuxRail(3.46))
	})

	t.Run("shutdown", func(t *testing.T) {
		p := newTestPower(t, write(pmicRegSBB2B, 0x0C))
		require.NoError(t, p.SetAuxRail(0))
	})

	for _, v := range []float64{0.79, 5.51, -1, math.NaN(), math.Inf(1)} {
		t.Run("out of range", func(t *testing.T) {
			p := newTestPower(t)
			assert.ErrorIs(t, p.SetAuxRail(v), ErrInvalidSetting, "%g", v)
		})
	}
}

func TestSetAuxRailDACCode(t *testing.T) {
	for mv := 800; mv <= 5500; mv += 10 {
		v := float64(mv) / 1000
		want := byte(math.Round((v - 0.8) / 0.05))

		ops := []i2ctest.IO{}
		if v > 3.46 {
			ops = append(ops, read(pmicRegLDO0B, 0x00))
		}
		ops = append(ops, write(pmicRegSBB2A, want), write(pmicRegSBB2B, 0x0E))

		p := newTestPower(t, ops...)
		require.NoError(t, p.SetAuxRail(v), "%gV", v)
	}
}

func TestSetIORail(t *testing.T) {
	tests := []struct {
		volts float64
		code  byte
	}{
		{0.8, 0},
		{1.8, 40},
		{3.3, 100},
		{3.46, 106},
	}
	for _, tt := range tests {
		p := newTestPower(t,
			write(pmicRegLDO0A, tt.code),
			write(pmicRegLDO0B, 0x0E),
		)
		require.NoError(t, p.SetIORail(tt.volts), "%gV", tt.volts)
	}

	t.Run("shutdown", func(t *testing.T) {
		p := newTestPower(t, write(pmicRegLDO0B, 0x0C))
		require.NoError(t, p.SetIORail(0))
	})

	for _, v := range []float64{0.5, 3.47, 5, math.NaN()} {
		p := newTestPower(t)
		assert.ErrorIs(t, p.SetIORail(v), ErrInvalidSetting, "%g", v)
	}
}

func TestSetFPGACore(t *testing.T) {
	t.Run("enable", func(t *testing.T) {
		p := newTestPower(t,
			write(pmicRegSBB1A, 0x08),
			write(pmicRegSBB1B, 0x7E),
		)
		require.NoError(t, p.SetFPGACore(true))
	})

	// The playback enforces order: I/O rail off strictly before core off.
	t.Run("disable", func(t *testing.T) {
		p := newTestPower(t,
			write(pmicRegSBB1A, 0x08),
			write(pmicRegLDO0B, 0x0C),
			write(pmicRegSBB1B, 0x7C),
		)
		require.NoError(t, p.SetFPGACore(false))
	})
}

func TestCheckChipID(t *testing.T) {
	p := newTestPower(t, read(pmicRegCID, 0x7A))
	require.NoError(t, p.CheckChipID())

	p = newTestPower(t, read(pmicRegCID, 0x55))
	assert.ErrorIs(t, p.CheckChipID(), ErrPMICMismatch)
}

func TestStatus(t *testing.T) {
	p := newTestPower(t,
		read(pmicRegSBB1B, 0x7E),
		read(pmicRegSBB2B, 0x0C),
		read(pmicRegLDO0B, 0x0E),
	)
	st, err := p.Status()
	require.NoError(t, err)
	assert.Equal(t, RailStatus{Core: 0x7E, Aux: 0x0C, IO: 0x0E}, st)
}

var errNack = errors.New("nack")

// failingConn fails the transaction issued once the trace holds failAt
// entries.
type failingConn struct {
	recordConn
	failAt int
}

func (c *failingConn) Tx(w, r []byte) error {
	if len(c.trace) == c.failAt {
		return errNack
	}
	return c.recordConn.Tx(w, r)
}

func TestPowerBusError(t *testing.T) {
	c := &failingConn{failAt: 1}
	p := NewPower(c)

	err := p.SetFPGACore(false)
	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "pmic", be.Dev)
	assert.ErrorIs(t, err, errNack)

	// Nothing after the failed write.
	assert.Equal(t, []string{"tx 2b08"}, c.trace)
}

func TestSetAuxRailModeReadError(t *testing.T) {
	c := &failingConn{failAt: 0}
	p := NewPower(c)

	err := p.SetAuxRail(4.0)
	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "pmic", be.Dev)
	assert.ErrorIs(t, err, errNack)
	assert.NotErrorIs(t, err, ErrInvalidSetting)

	// The failed mode read is not recorded and no write follows it.
	assert.Empty(t, c.trace)
}
