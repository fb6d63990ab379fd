package s1

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Flash drives the configuration flash through its wake, reset and identify
// sequence, and exposes chip erase and the status poll needed to await it.
//
// Flash keeps no device state besides the last JEDEC ID read. It is not safe
// for concurrent use: two-phase commands must not be interleaved with other
// transactions on the same bus.
type Flash struct {
	conn  conn.Conn
	cs    gpio.PinOut // nil when the SPI port drives CS
	delay func(time.Duration)
	log   *slog.Logger

	id [3]byte // JEDEC ID of the flash chip
	pr *flashParams
}

// NewFlash returns a Flash using c, an SPI connection in mode 0 with 8-bit
// words.
func NewFlash(c conn.Conn, opts ...Option) *Flash {
	o := newOptions(opts)
	return &Flash{
		conn:  c,
		cs:    o.cs,
		delay: o.delay,
		log:   o.log,
	}
}

// Flash commands:
//   - [N25Q32|Table 16: Command Set]
//   - [W25Q128|8.1.2 Instruction Set Table 1]
const (
	flashCmdPowerUp            = 0xAB // Release Power Down
	flashCmdPowerDown          = 0xB9
	flashCmdResetEnable        = 0x66
	flashCmdReset              = 0x99
	flashCmdReadID             = 0x9F
	flashCmdRead               = 0x03
	flashCmdWriteEnable        = 0x06
	flashCmdEraseChip          = 0x60 // Bulk Erase / Chip Erase
	flashCmdReadStatusRegister = 0x05
)

// Bring-up timing. The delays are minimums; the device gives no way to
// detect a violation.
const (
	// WakeLatency is tRES1, release from deep power-down to standby.
	WakeLatency = 3 * time.Microsecond
	// ResetLatency is tRST, software reset to ready.
	ResetLatency = 30 * time.Microsecond
	// PowerDownLatency is tDP, CS high to deep power-down.
	PowerDownLatency = 3 * time.Microsecond
)

// CapacityID is the JEDEC capacity code of the module flash (32Mb).
const CapacityID = 0x16

// tx runs one SPI transaction, full duplex over buf.
func (f *Flash) tx(op string, buf []byte) (err error) {
	defer func() {
		if err != nil {
			err = &BusError{Dev: "flash", Op: op, Err: err}
		}
	}()
	if f.cs == nil {
		return f.conn.Tx(buf, buf)
	}
	if err = f.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := f.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	err = f.conn.Tx(buf, buf)
	return
}

// cmd sends a single-byte command as its own transaction.
func (f *Flash) cmd(op string, c byte) error {
	return f.tx(op, []byte{c})
}

// WakeAndIdentify releases the flash from deep power-down, resets it and
// checks its capacity ID. A failure leaves the device in an unknown state;
// ErrFlashMismatch means wrong hardware and should not be retried.
func (f *Flash) WakeAndIdentify() error {
	if err := f.Wake(); err != nil {
		return err
	}

	// Reset enable and reset are only recognized as two transactions.
	if err := f.cmd("reset enable", flashCmdResetEnable); err != nil {
		return err
	}
	if err := f.cmd("reset", flashCmdReset); err != nil {
		return err
	}
	f.delay(ResetLatency)

	id, _, err := f.ReadID()
	if err != nil {
		return err
	}
	f.log.Debug("flash capacity", "id", fmt.Sprintf("0x%02X", id[2]))
	if id[2] != CapacityID {
		return fmt.Errorf("%w: capacity 0x%02X, want 0x%02X", ErrFlashMismatch, id[2], CapacityID)
	}
	return nil
}

// Wake releases the flash from deep power-down without resetting it, so an
// erase in progress keeps running.
func (f *Flash) Wake() error {
	// 0xAB is followed by three dummy bytes, in one transaction.
	if err := f.tx("wake", []byte{flashCmdPowerUp, 0, 0, 0}); err != nil {
		return err
	}
	f.delay(WakeLatency)
	return nil
}

// PowerDown puts the flash into deep power-down. WakeAndIdentify brings it
// back.
func (f *Flash) PowerDown() error {
	if err := f.cmd("power down", flashCmdPowerDown); err != nil {
		return err
	}
	f.delay(PowerDownLatency)
	return nil
}

// ReadID returns the JEDEC ID of the flash chip and configures its parameters.
// It returns a non-empty name for known IDs. The extended device string is ignored.
func (f *Flash) ReadID() (id [3]byte, name string, err error) {
	buf := make([]byte, 4)
	buf[0] = flashCmdReadID

	if err = f.tx("read id", buf); err != nil {
		return
	}

	f.id = [3]byte(buf[1:])
	f.pr = nil
	if params, ok := knownFlash[f.id]; ok {
		f.pr = &params
		name = params.name
	}
	return f.id, name, nil
}

// Read performs a read operation, splitting it into multiple transactions if needed
// to stay within the maximum transaction size.
func (f *Flash) Read(addr, n int) ([]byte, error) {
	const (
		maxTx    = 65536 // [FTDI-AN_108]
		cmdBytes = 4     // opRead + 24-bit address
		maxData  = maxTx - cmdBytes
		max24    = 1<<24 - 1
	)
	if addr < 0 || n < 0 || addr+n-1 > max24 {
		return nil, fmt.Errorf("%w: read 0x%X+%d out of 24-bit range", ErrInvalidSetting, addr, n)
	}

	out := make([]byte, n)
	off := 0
	for remaining := n; remaining > 0; {
		chunk := min(remaining, maxData)
		buf := make([]byte, cmdBytes+chunk)
		buf[0] = flashCmdRead
		buf[1] = byte(addr >> 16)
		buf[2] = byte(addr >> 8)
		buf[3] = byte(addr)
		// buf[4:] dummy bytes

		if err := f.tx("read", buf); err != nil {
			return nil, err
		}

		copy(out[off:], buf[cmdBytes:])

		addr += chunk
		off += chunk
		remaining -= chunk
	}
	return out, nil
}

// EraseAll starts a chip erase: write enable, then chip erase, as two
// transactions. It returns as soon as the erase has started; poll IsBusy
// or use WaitReady to see it complete.
func (f *Flash) EraseAll() error {
	if err := f.cmd("write enable", flashCmdWriteEnable); err != nil {
		return err
	}
	f.log.Debug("flash chip erase")
	return f.cmd("chip erase", flashCmdEraseChip)
}

// IsBusy reports whether an erase or program is in progress.
func (f *Flash) IsBusy() (bool, error) {
	sr, err := f.ReadStatusRegister()
	if err != nil {
		return false, err
	}
	return sr.Busy(), nil
}

// WaitReady polls IsBusy every interval until the flash is idle. The
// interval must be positive. There is no built-in ceiling: it only gives up
// when ctx is done. ChipEraseTime can help pick a deadline.
func (f *Flash) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval %v: %w", interval, ErrInvalidSetting)
	}

	// Fast path
	if busy, err := f.IsBusy(); err != nil || !busy {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("flash still busy: %w", ctx.Err())
		case <-ticker.C:
			busy, err := f.IsBusy()
			if err != nil {
				return err
			}
			if !busy {
				return nil
			}
		}
	}
}

// StatusRegister represents the status register of the flash chip.
//
//	Bits| [N25Q32|Table 9]                     | [W25Q128|7.1 Status Registers]
//	----+--------------------------------------+-------------------------------
//	7   | Status register write enable/disable | SRP: Status Register Protect
//	6   | Reserved                             | SEC: Sector protect
//	5   | Top/bottom                           | TB: Top/Bottom protect
//	4:2 | Block protect 2-0                    | BP2-0: Block Protect bit 2-0
//	1   | Write enable latch                   | WEL: Write Enable Latch
//	0   | Write in progress                    | BUSY: Erase/Write in progress
type StatusRegister byte

func (sr StatusRegister) StatusRegisterProtect() bool { return sr&(1<<7) != 0 }
func (sr StatusRegister) SectorProtect() bool         { return sr&(1<<6) != 0 }
func (sr StatusRegister) TopBottom() bool             { return sr&(1<<5) != 0 }
func (sr StatusRegister) BlockProtect2() bool         { return sr&(1<<4) != 0 }
func (sr StatusRegister) BlockProtect1() bool         { return sr&(1<<3) != 0 }
func (sr StatusRegister) BlockProtect0() bool         { return sr&(1<<2) != 0 }
func (sr StatusRegister) WriteEnabled() bool          { return sr&(1<<1) != 0 }
func (sr StatusRegister) Busy() bool                  { return sr&(1<<0) != 0 }

func (sr StatusRegister) String() string {
	b := fmt.Sprintf("%08b", byte(sr))
	flags := []struct {
		set  bool
		name string
	}{
		{sr.StatusRegisterProtect(), "SRP"},
		{sr.SectorProtect(), "SEC"},
		{sr.TopBottom(), "TB"},
		{sr.BlockProtect2(), "BP2"},
		{sr.BlockProtect1(), "BP1"},
		{sr.BlockProtect0(), "BP0"},
		{sr.WriteEnabled(), "WEL"},
		{sr.Busy(), "BUSY"},
	}
	s := []string{}
	for _, fl := range flags {
		if fl.set {
			s = append(s, fl.name)
		}
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

// ReadStatusRegister reads the status register in one transaction: the
// command byte, then one status byte clocked out.
func (f *Flash) ReadStatusRegister() (StatusRegister, error) {
	buf := []byte{flashCmdReadStatusRegister, 0}
	if err := f.tx("read status", buf); err != nil {
		return 0, err
	}
	f.log.Debug("flash status", "sr", StatusRegister(buf[1]).String())
	return StatusRegister(buf[1]), nil
}
