package main

import (
	"fmt"

	"periph.io/x/host/v3/ftdi"
)

func infoCommand() {
	m := openModule()
	defer m.Close()

	if ft := m.FTDI; ft != nil {
		// Reference: https://github.com/periph/cmd/tree/main/ftdi-list
		i := ftdi.Info{}
		ft.Info(&i)
		fmt.Printf("Type:            %s\n", i.Type)
		fmt.Printf("Vendor ID:       %#04x\n", i.VenID)
		fmt.Printf("Device ID:       %#04x\n", i.DevID)

		ee := ftdi.EEPROM{}
		if err := ft.EEPROM(&ee); err != nil {
			fatalf("failed to read EEPROM: %v", err)
		}
		fmt.Printf("Manufacturer:    %s\n", ee.Manufacturer)
		fmt.Printf("Desc:            %s\n", ee.Desc)
		fmt.Printf("Serial:          %s\n", ee.Serial)
	}

	// openModule already checked the chip ID.
	cid, err := m.Power.ChipID()
	if err != nil {
		fatalf("read PMIC chip ID failed: %v", err)
	}
	fmt.Printf("PMIC chip ID:    %#02x\n", cid)

	st, err := m.Power.Status()
	if err != nil {
		fatalf("read rail status failed: %v", err)
	}
	fmt.Printf("FPGA core ctrl:  %08b\n", st.Core)
	fmt.Printf("Aux ctrl:        %08b\n", st.Aux)
	fmt.Printf("I/O ctrl:        %08b\n", st.IO)

	fmt.Printf("FPGA done:       %t\n", m.FPGADone())
}
