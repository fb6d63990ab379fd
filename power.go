package s1

import (
	"fmt"
	"log/slog"
	"math"

	"periph.io/x/conn/v3"
)

// Rail limits and DAC steps, in volts.
const (
	railMin    = 0.8  // DAC offset shared by SBB2 and LDO0
	auxMax     = 5.5  // SBB2 upper limit
	auxStep    = 0.05 // SBB2 DAC step
	ioMax      = 3.46 // FPGA I/O tolerance
	ioStep     = 0.025
	fpgaSafeIn = 3.46 // highest aux voltage allowed with LDO0 in load-switch mode
)

// Power sequences the module rails through the PMIC. It holds no rail state:
// every call writes the registers it needs and every safety check reads the
// PMIC again.
//
// Power is not safe for concurrent use. Register pairs (target then control)
// must not be interleaved with other traffic on the same bus.
type Power struct {
	pmic pmic
	log  *slog.Logger
}

// NewPower returns a Power talking to the PMIC through dev, typically
// &i2c.Dev{Bus: bus, Addr: PMICAddr}.
func NewPower(dev conn.Conn, opts ...Option) *Power {
	o := newOptions(opts)
	return &Power{
		pmic: pmic{dev: dev},
		log:  o.log,
	}
}

// ChipID returns the PMIC chip identification register.
func (p *Power) ChipID() (byte, error) {
	return p.pmic.readReg(pmicRegCID)
}

// CheckChipID fails with ErrPMICMismatch if the PMIC is not the expected part.
func (p *Power) CheckChipID() error {
	id, err := p.ChipID()
	if err != nil {
		return err
	}
	p.log.Debug("pmic chip id", "cid", fmt.Sprintf("0x%02X", id))
	if id != pmicChipID {
		return fmt.Errorf("%w: chip id 0x%02X, want 0x%02X", ErrPMICMismatch, id, pmicChipID)
	}
	return nil
}

// RailStatus holds the raw control register of each rail.
type RailStatus struct {
	Core byte // SBB1
	Aux  byte // SBB2
	IO   byte // LDO0, also carries the load-switch mode bit
}

// Status reads the control register of every rail.
func (p *Power) Status() (RailStatus, error) {
	var (
		st  RailStatus
		err error
	)
	if st.Core, err = p.pmic.readReg(pmicRegSBB1B); err != nil {
		return st, err
	}
	if st.Aux, err = p.pmic.readReg(pmicRegSBB2B); err != nil {
		return st, err
	}
	st.IO, err = p.pmic.readReg(pmicRegLDO0B)
	return st, err
}

// SetAuxRail sets the auxiliary rail (SBB2) to volts, within [0.8, 5.5].
// Zero shuts the rail down with its discharge resistor enabled.
//
// Above 3.46V the I/O regulator must not be in load-switch mode, otherwise
// the FPGA would see the auxiliary voltage. The mode is read from the PMIC
// on every call, before anything is written.
func (p *Power) SetAuxRail(volts float64) error {
	if volts == 0 {
		p.log.Debug("aux rail off")
		return p.pmic.writeReg(pmicRegSBB2B, auxCtrlOff)
	}
	if !inRange(volts, railMin, auxMax) {
		return fmt.Errorf("%w: aux rail %gV out of range [%g, %g]", ErrInvalidSetting, volts, railMin, auxMax)
	}

	if volts > fpgaSafeIn {
		mode, err := p.pmic.readReg(pmicRegLDO0B)
		if err != nil {
			return err
		}
		if mode&ldoLoadSwitch != 0 {
			return fmt.Errorf("%w: aux rail %gV with I/O regulator in load-switch mode", ErrInvalidSetting, volts)
		}
	}

	code := dacCode(volts, auxStep)
	p.log.Debug("aux rail on", "volts", volts, "code", code)
	if err := p.pmic.writeReg(pmicRegSBB2A, code); err != nil {
		return err
	}
	return p.pmic.writeReg(pmicRegSBB2B, auxCtrlOn)
}

// SetIORail sets the FPGA I/O rail (LDO0) to volts, within [0.8, 3.46].
// Zero shuts the rail down with its discharge resistor enabled.
func (p *Power) SetIORail(volts float64) error {
	if volts == 0 {
		p.log.Debug("io rail off")
		return p.pmic.writeReg(pmicRegLDO0B, ioCtrlOff)
	}
	if !inRange(volts, railMin, ioMax) {
		return fmt.Errorf("%w: io rail %gV out of range [%g, %g]", ErrInvalidSetting, volts, railMin, ioMax)
	}

	code := dacCode(volts, ioStep)
	p.log.Debug("io rail on", "volts", volts, "code", code)
	if err := p.pmic.writeReg(pmicRegLDO0A, code); err != nil {
		return err
	}
	return p.pmic.writeReg(pmicRegLDO0B, ioCtrlOn)
}

// SetFPGACore switches the FPGA core rail (SBB1). The rail is always pinned
// to 1.2V first.
//
// Disabling shuts the I/O rail down before the core rail: the FPGA must
// never have its I/O powered while its core is not.
func (p *Power) SetFPGACore(enable bool) error {
	if err := p.pmic.writeReg(pmicRegSBB1A, coreTarget1V2); err != nil {
		return err
	}

	if enable {
		p.log.Debug("fpga core on")
		return p.pmic.writeReg(pmicRegSBB1B, coreCtrlOn)
	}

	p.log.Debug("fpga core off")
	if err := p.pmic.writeReg(pmicRegLDO0B, ioCtrlOff); err != nil {
		return err
	}
	return p.pmic.writeReg(pmicRegSBB1B, coreCtrlOff)
}

func inRange(v, lo, hi float64) bool {
	// NaN fails both comparisons.
	return v >= lo && v <= hi
}

// dacCode converts a voltage already checked against the rail limits into
// its 8-bit DAC code.
func dacCode(volts, step float64) byte {
	code := math.Round((volts - railMin) / step)
	return byte(min(max(code, 0), math.MaxUint8))
}
