package bmx280

import "time"

const (
	// I2CAddr is the default address, SDO pulled low. Pimoroni and most
	// breakout boards use it; boards with SDO high answer at 0x77.
	I2CAddr uint16 = 0x76

	chipIDBMP280 byte = 0x58
	chipIDBME280 byte = 0x60
)

// BMx280 registers
const (
	regCalibTP uint8 = 0x88 // dig_T1..dig_P9, 24 bytes, little-endian
	regDigH1   uint8 = 0xA1
	regDigH2   uint8 = 0xE1 // dig_H2..dig_H6, 7 bytes

	regChipID    uint8 = 0xD0
	regSoftReset uint8 = 0xE0

	regCtrlHum      uint8 = 0xF2
	regStatus       uint8 = 0xF3
	regControl      uint8 = 0xF4
	regConfig       uint8 = 0xF5
	regPressureData uint8 = 0xF7
	regTempData     uint8 = 0xFA
	regHumidityData uint8 = 0xFD

	softResetCmd byte = 0xB6
)

// Power mode bits, control register 0xF4 bits 1:0.
const (
	powerSleep  byte = 0b00
	powerForced byte = 0b01
	powerNormal byte = 0b11
)

// Read-modify-write clear masks. Everything outside a field must survive a
// setter untouched.
const (
	ctrlModeClearMask   byte = 0b1111_1100 // power mode, bits 1:0
	cfgFilterClearMask  byte = 0b1110_0011 // IIR filter, bits 4:2
	cfgStandbyClearMask byte = 0b0001_1111 // standby time, bits 7:5
)

// Oversampling is the per-quantity oversampling setting. SamplingOff skips
// the quantity entirely: no measurement, no bus transaction, NaN result.
type Oversampling uint8

const (
	SamplingOff Oversampling = iota
	Sampling1x
	Sampling2x
	Sampling4x
	Sampling8x
	Sampling16x
)

// samplingBits maps an Oversampling to its osrs register field value. The
// mapping is explicit so an out-of-range value fails validation instead of
// leaking into the register.
var samplingBits = [...]byte{
	SamplingOff: 0b000,
	Sampling1x:  0b001,
	Sampling2x:  0b010,
	Sampling4x:  0b011,
	Sampling8x:  0b100,
	Sampling16x: 0b101,
}

// measCost is the measurement-cycle cost per oversampling level. A forced
// read waits for the sum over the enabled quantities.
var measCost = [...]time.Duration{
	SamplingOff: 0,
	Sampling1x:  7 * time.Millisecond,
	Sampling2x:  9 * time.Millisecond,
	Sampling4x:  14 * time.Millisecond,
	Sampling8x:  23 * time.Millisecond,
	Sampling16x: 44 * time.Millisecond,
}

// Mode selects how the device samples.
//
// Continuous commands the Normal power mode: the device free-runs
// measurements at the configured standby interval. Manual commands Sleep;
// every Read then triggers a forced one-shot measurement and waits for it.
type Mode uint8

const (
	Continuous Mode = iota
	Manual
)

// Filter is the IIR filter coefficient, config register bits 4:2.
type Filter uint8

const (
	FilterOff Filter = iota
	Filter2
	Filter4
	Filter8
	Filter16
)

var filterBits = [...]byte{
	FilterOff: 0b000,
	Filter2:   0b001,
	Filter4:   0b010,
	Filter8:   0b011,
	Filter16:  0b100,
}

// Standby is the idle interval between samples in Continuous mode, config
// register bits 7:5.
type Standby uint8

const (
	Standby500us Standby = iota
	Standby63ms
	Standby125ms
	Standby250ms
	Standby500ms
	Standby1s
	Standby2s
	Standby4s
)

var standbyBits = [...]byte{
	Standby500us: 0b000,
	Standby63ms:  0b001,
	Standby125ms: 0b010,
	Standby250ms: 0b011,
	Standby500ms: 0b100,
	Standby1s:    0b101,
	Standby2s:    0b110,
	Standby4s:    0b111,
}
