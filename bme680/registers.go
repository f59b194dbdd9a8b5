package bme680

import "time"

const (
	// I2CAddr is the default address; boards with SDO high answer at 0x77.
	I2CAddr uint16 = 0x76

	chipID byte = 0x61 // BME680 and BME688 share it
)

// BME68x registers
const (
	regMeasStatus uint8 = 0x1D
	regPressData  uint8 = 0x1F // pressure, temperature and humidity burst
	regGasData    uint8 = 0x2A

	regResHeat0 uint8 = 0x5A
	regGasWait0 uint8 = 0x64

	regCtrlGas0 uint8 = 0x70
	regCtrlGas1 uint8 = 0x71
	regCtrlHum  uint8 = 0x72
	regControl  uint8 = 0x74
	regConfig   uint8 = 0x75

	regCalTPG uint8 = 0x8A // 23 bytes
	regCalHG  uint8 = 0xE1 // 14 bytes, humidity + gas heater constants

	regResHeatVal   uint8 = 0x00
	regResHeatRange uint8 = 0x02

	regChipID    uint8 = 0xD0
	regSoftReset uint8 = 0xE0

	softResetCmd byte = 0xB6
)

// Power mode bits, control register 0x74 bits 1:0. The BME680 has no
// free-running mode: it sleeps, measures once when forced, then sleeps
// again.
const (
	powerSleep  byte = 0b00
	powerForced byte = 0b01
)

const (
	ctrlModeClearMask  byte = 0b1111_1100
	cfgFilterClearMask byte = 0b1110_0011

	runGas       byte = 1 << 4 // ctrl_gas_1
	heaterOff    byte = 1 << 3 // ctrl_gas_0
	gasValid     byte = 1 << 5 // gas_r_lsb
	heaterStable byte = 1 << 4 // gas_r_lsb

	statusNewData    byte = 1 << 7 // meas_status_0
	statusGasRunning byte = 1 << 6
	statusMeasuring  byte = 1 << 5
)

// Oversampling is the per-quantity oversampling setting; SamplingOff skips
// the quantity.
type Oversampling uint8

const (
	SamplingOff Oversampling = iota
	Sampling1x
	Sampling2x
	Sampling4x
	Sampling8x
	Sampling16x
)

var samplingBits = [...]byte{
	SamplingOff: 0b000,
	Sampling1x:  0b001,
	Sampling2x:  0b010,
	Sampling4x:  0b011,
	Sampling8x:  0b100,
	Sampling16x: 0b101,
}

var measCost = [...]time.Duration{
	SamplingOff: 0,
	Sampling1x:  7 * time.Millisecond,
	Sampling2x:  9 * time.Millisecond,
	Sampling4x:  14 * time.Millisecond,
	Sampling8x:  23 * time.Millisecond,
	Sampling16x: 44 * time.Millisecond,
}

// Filter is the IIR filter coefficient, config register bits 4:2.
type Filter uint8

const (
	Coeff0 Filter = iota
	Coeff1
	Coeff3
	Coeff7
	Coeff15
	Coeff31
	Coeff63
	Coeff127
)

var filterBits = [...]byte{
	Coeff0:   0b000,
	Coeff1:   0b001,
	Coeff3:   0b010,
	Coeff7:   0b011,
	Coeff15:  0b100,
	Coeff31:  0b101,
	Coeff63:  0b110,
	Coeff127: 0b111,
}

// encodeGasWait packs a heater-on time into the gas_wait_0 format: a 6-bit
// millisecond count with a 1/4/16/64 multiplier in the top 2 bits.
func encodeGasWait(d time.Duration) byte {
	ms := int64(d / time.Millisecond)
	if ms >= 0xFC0 {
		return 0xFF
	}
	var factor int64
	for ms > 0x3F {
		ms /= 4
		factor++
	}
	return byte(ms + factor*64)
}
