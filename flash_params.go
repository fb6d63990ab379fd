package s1

import "time"

type flashParams struct {
	name string

	tEraseChip time.Duration
}

var (
	flashIDMicronN25Q32   = [3]byte{0x20, 0xBA, 0x16}
	flashIDWinbondW25Q32  = [3]byte{0xEF, 0x40, 0x16}
	flashIDWinbondW25Q128 = [3]byte{0xEF, 0x70, 0x18}
)

var knownFlash = map[[3]byte]flashParams{
	flashIDMicronN25Q32: {
		name: "Micron N25Q 32Mb",

		// [N25Q32|Table 38: AC Characteristics and Operating Conditions]
		// tBE: Bulk ERASE cycle time
		tEraseChip: 60 * time.Second,
	},

	flashIDWinbondW25Q32: {
		name: "Winbond W25Q 32Mb",

		// [W25Q32|AC Electrical Characteristics]
		// tCE: Chip Erase Time
		tEraseChip: 50 * time.Second,
	},

	// Not fitted on the module: identification fails on capacity, but the
	// name still shows up in ReadID.
	flashIDWinbondW25Q128: {
		name: "Winbond W25Q 128Mb",

		// [W25Q128|9.6 AC Electrical Characteristics]:
		// tCE: Chip Erase Time
		tEraseChip: 200 * time.Second,
	},
}

// ChipEraseTime returns the datasheet maximum chip erase time of the part
// found by the last ReadID or WakeAndIdentify, or 0 if the part is unknown.
// Nothing applies it automatically.
func (f *Flash) ChipEraseTime() time.Duration {
	if f.pr == nil {
		return 0
	}
	return f.pr.tEraseChip
}
