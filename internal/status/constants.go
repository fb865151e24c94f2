// internal/status/constants.go
package status

// Service request byte and status block layout.
// These values define the protocol and MUST NOT be configurable.

// ---- SRQ BYTE ----

// SRQPopulationMask covers the site population bits (bit 0 = site 1).
const SRQPopulationMask byte = 0x0F

// SRQJammed is set while the handler is jammed.
const SRQJammed byte = 1 << 4

// SRQAsserted is set on the SRQ that announces a test start.
const SRQAsserted byte = 1 << 6

// SRQReady is set while the handler is ready and not stopped.
const SRQReady byte = 1 << 7

// DefaultSRQMask lets every defined bit through.
const DefaultSRQMask byte = 0xFF

// ---- BLOCK GEOMETRY ----

// SlotsPerHandler is the fixed number of register slots per handler.
const SlotsPerHandler = 20

// ---- SLOT INDICES ----

// SlotSRQ holds the last SRQ byte (without the asserted bit).
const SlotSRQ = 0

// SlotPopulationLow holds site population bits 0-15.
const SlotPopulationLow = 1

// SlotPopulationHigh holds site population bits 16-31.
const SlotPopulationHigh = 2

// SlotHandlerStatus holds one of the Handler* status codes.
const SlotHandlerStatus = 3

// SlotTestedDevices holds the tested device count, saturating at 65535.
const SlotTestedDevices = 4

// SlotLotComplete is 1 once the lot is complete.
const SlotLotComplete = 5

// ---- RESERVED RANGE ----

// Slots 6-11 are reserved for future use.
const SlotReservedStart = 6
const SlotReservedEnd = 11

// ---- MODEL NAME ----

// SlotModelNameStart is the first slot used for the model name.
// The model name is always placed at the END of the status block.
const SlotModelNameStart = 12

// SlotModelNameSlots is the number of slots reserved for the model name.
const SlotModelNameSlots = 8

// SlotModelNameEnd is the last slot used for the model name (inclusive).
const SlotModelNameEnd = SlotModelNameStart + SlotModelNameSlots - 1

// ---- LIMITS ----

// ModelNameMaxChars is the maximum number of ASCII characters stored for the model name.
const ModelNameMaxChars = 16

// ---- HANDLER STATUS CODES ----

// HandlerStopped: not handling devices.
const HandlerStopped uint16 = 0

// HandlerHandling: loading devices into sites.
const HandlerHandling uint16 = 1

// HandlerWaiting: devices loaded, waiting for bin data.
const HandlerWaiting uint16 = 2

// HandlerJammed: operator raised a jam.
const HandlerJammed uint16 = 3
