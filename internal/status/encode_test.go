// internal/status/encode_test.go
package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSRQByte(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		mask     byte
		asserted bool
		want     byte
	}{
		{"empty stopped", Snapshot{}, DefaultSRQMask, false, 0x00},
		{"sites 1 and 3 ready", Snapshot{Population: 0x5, Ready: true}, DefaultSRQMask, false, 0x85},
		{"test start", Snapshot{Population: 0x1, Ready: true}, DefaultSRQMask, true, 0xC1},
		{"only four sites fit", Snapshot{Population: 0x3F}, DefaultSRQMask, false, 0x0F},
		{"jammed is not ready", Snapshot{Population: 0x1, Ready: true, Jammed: true}, DefaultSRQMask, false, 0x11},
		{"masked", Snapshot{Population: 0x3, Ready: true}, 0x0F, true, 0x03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SRQByte(tt.snap, tt.mask, tt.asserted))
		})
	}
}

func TestEncode(t *testing.T) {
	regs := Encode(Snapshot{
		Population:    0x30001,
		Handler:       HandlerWaiting,
		TestedDevices: 70000,
		Ready:         true,
		LotComplete:   true,
	}, DefaultSRQMask)

	assert.Len(t, regs, SlotsPerHandler)
	assert.Equal(t, uint16(0x81), regs[SlotSRQ])
	assert.Equal(t, uint16(0x0001), regs[SlotPopulationLow])
	assert.Equal(t, uint16(0x0003), regs[SlotPopulationHigh])
	assert.Equal(t, HandlerWaiting, regs[SlotHandlerStatus])
	assert.Equal(t, uint16(65535), regs[SlotTestedDevices])
	assert.Equal(t, uint16(1), regs[SlotLotComplete])
	for i := SlotReservedStart; i <= SlotModelNameEnd; i++ {
		assert.Zero(t, regs[i], "slot %d", i)
	}
}

func TestNameRegisters(t *testing.T) {
	regs := NameRegisters("AB\x01")

	assert.Len(t, regs, SlotModelNameSlots)
	assert.Equal(t, uint16('A')<<8|uint16('B'), regs[0])
	assert.Equal(t, uint16('?')<<8, regs[1])

	long := NameRegisters("0123456789ABCDEFXYZ")
	assert.Equal(t, uint16('E')<<8|uint16('F'), long[7])
}

func TestDecode_RoundTrip(t *testing.T) {
	in := Snapshot{
		Population:    0x2_0003,
		Handler:       HandlerWaiting,
		TestedDevices: 42,
		Ready:         true,
		LotComplete:   true,
	}

	regs := Encode(in, DefaultSRQMask)
	copy(regs[SlotModelNameStart:], NameRegisters("SIM-4"))

	got, name, err := Decode(regs)
	assert.NoError(t, err)
	assert.Equal(t, "SIM-4", name)
	assert.Equal(t, in, got)
}

func TestDecode_ShortBlock(t *testing.T) {
	_, _, err := Decode(make([]uint16, SlotsPerHandler-1))
	assert.Error(t, err)
}

func TestNameRegisters_FullWidthAndHighBytes(t *testing.T) {
	assert.Equal(t, "0123456789ABCDEF", ModelFromRegisters(NameRegisters("0123456789ABCDEF")))
	assert.Equal(t, "S?M~", ModelFromRegisters(NameRegisters("S\xe9M~")))
	assert.Equal(t, make([]uint16, SlotModelNameSlots), NameRegisters(""))
}

func TestModelFromRegisters_OddLength(t *testing.T) {
	assert.Equal(t, "ABC", ModelFromRegisters(NameRegisters("ABC")))
}
