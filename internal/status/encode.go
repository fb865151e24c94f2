// internal/status/encode.go
package status

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SRQByte builds the service request byte from a snapshot.
// Only sites 1-4 fit into the byte. The result is masked with mask.
func SRQByte(s Snapshot, mask byte, asserted bool) byte {
	b := byte(s.Population) & SRQPopulationMask
	if s.Jammed {
		b |= SRQJammed
	}
	if s.Ready && !s.Jammed {
		b |= SRQReady
	}
	if asserted {
		b |= SRQAsserted
	}
	return b & mask
}

// Encode converts a Snapshot into the live part of a status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, mask byte) []uint16 {
	regs := make([]uint16, SlotsPerHandler)

	regs[SlotSRQ] = uint16(SRQByte(s, mask, false))
	regs[SlotPopulationLow] = uint16(s.Population)
	regs[SlotPopulationHigh] = uint16(s.Population >> 16)
	regs[SlotHandlerStatus] = s.Handler
	regs[SlotTestedDevices] = saturate(s.TestedDevices)
	if s.LotComplete {
		regs[SlotLotComplete] = 1
	}

	return regs
}

// NameRegisters lays the model name out over the name slots, two
// characters per register, high byte first. Characters past
// ModelNameMaxChars are cut and anything outside printable ASCII reads '?'.
func NameRegisters(model string) []uint16 {
	var text [ModelNameMaxChars]byte
	for i := 0; i < len(model) && i < len(text); i++ {
		text[i] = printable(model[i])
	}

	regs := make([]uint16, SlotModelNameSlots)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(text[2*i:])
	}
	return regs
}

func printable(c byte) byte {
	if c < ' ' || c > '~' {
		return '?'
	}
	return c
}

func saturate(n int) uint16 {
	switch {
	case n < 0:
		return 0
	case n > 65535:
		return 65535
	}
	return uint16(n)
}

// Decode reads a status block back into a Snapshot and the model name.
// Ready and Jammed come from the SRQ slot and are subject to the mask used
// when the block was written.
func Decode(regs []uint16) (Snapshot, string, error) {
	if len(regs) < SlotsPerHandler {
		return Snapshot{}, "", fmt.Errorf("status: block too short: got %d registers, want %d", len(regs), SlotsPerHandler)
	}

	srq := byte(regs[SlotSRQ])
	s := Snapshot{
		Population:    uint64(regs[SlotPopulationLow]) | uint64(regs[SlotPopulationHigh])<<16,
		Handler:       regs[SlotHandlerStatus],
		TestedDevices: int(regs[SlotTestedDevices]),
		Ready:         srq&SRQReady != 0,
		Jammed:        srq&SRQJammed != 0,
		LotComplete:   regs[SlotLotComplete] != 0,
	}
	return s, ModelFromRegisters(regs[SlotModelNameStart : SlotModelNameEnd+1]), nil
}

// ModelFromRegisters reads a name written by NameRegisters.
// NUL padding is dropped.
func ModelFromRegisters(regs []uint16) string {
	text := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(text[2*i:], r)
	}
	return strings.TrimRight(string(text), "\x00")
}
