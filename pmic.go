package s1

import (
	"fmt"

	"periph.io/x/conn/v3"
)

// PMICAddr is the 7-bit I2C address of the PMIC.
const PMICAddr = 0x48

// PMIC registers:
//   - [MAX77654|Register Map]
const (
	pmicRegCID   = 0x14 // Chip identification
	pmicRegSBB1A = 0x2B // FPGA core rail target voltage
	pmicRegSBB1B = 0x2C // FPGA core rail control
	pmicRegSBB2A = 0x2D // Auxiliary rail target voltage
	pmicRegSBB2B = 0x2E // Auxiliary rail control
	pmicRegLDO0A = 0x38 // I/O rail target voltage
	pmicRegLDO0B = 0x39 // I/O rail control / companion mode
)

const (
	pmicChipID = 0x7A

	// ldoLoadSwitch is set in the LDO0 control register when the I/O
	// regulator passes its input through instead of regulating.
	ldoLoadSwitch = 1 << 3
)

// Control register values.
//
//	Value | Rail     | Meaning
//	------+----------+-------------------------------------------------
//	0x0E  | SBB2     | buck-boost, discharge resistor, 1A limit, on
//	0x0C  | SBB2     | discharge resistor, off
//	0x0E  | LDO0     | regulator mode, discharge resistor, on
//	0x0C  | LDO0     | discharge resistor, off
//	0x7E  | SBB1     | buck, 0.333A limit, discharge resistor, on
//	0x7C  | SBB1     | buck, 0.333A limit, discharge resistor, off
//	0x08  | SBB1 (A) | 1.2V target
const (
	auxCtrlOn     = 0x0E
	auxCtrlOff    = 0x0C
	ioCtrlOn      = 0x0E
	ioCtrlOff     = 0x0C
	coreCtrlOn    = 0x7E
	coreCtrlOff   = 0x7C
	coreTarget1V2 = 0x08
)

// pmic wraps register access on the PMIC I2C device. Each register access
// is exactly one bus transaction.
type pmic struct {
	dev conn.Conn
}

func (p *pmic) readReg(reg byte) (byte, error) {
	var rx [1]byte
	if err := p.dev.Tx([]byte{reg}, rx[:]); err != nil {
		return 0, &BusError{Dev: "pmic", Op: fmt.Sprintf("read 0x%02X", reg), Err: err}
	}
	return rx[0], nil
}

func (p *pmic) writeReg(reg, v byte) error {
	if err := p.dev.Tx([]byte{reg, v}, nil); err != nil {
		return &BusError{Dev: "pmic", Op: fmt.Sprintf("write 0x%02X=0x%02X", reg, v), Err: err}
	}
	return nil
}
