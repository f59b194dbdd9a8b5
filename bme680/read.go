package bme680

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Measurement is one compensated reading. Disabled or unmeasurable
// quantities report NaN instead of being omitted.
type Measurement struct {
	Temperature   float64 // °C
	Pressure      float64 // hPa
	Humidity      float64 // %RH
	GasResistance float64 // Ω, NaN when gas is disabled or the heater was unstable
}

type waitFunc func(time.Duration) error

// Read triggers a forced measurement cycle and blocks until the result is
// ready.
func (d *Dev) Read() (Measurement, error) {
	return d.read(func(wait time.Duration) error {
		time.Sleep(wait)
		return nil
	})
}

// ReadContext is Read with a cooperative wait: cancelling ctx abandons the
// wait and returns ctx.Err(). The forced cycle already running on the
// device cannot be recalled; pacing a retry is the caller's responsibility.
func (d *Dev) ReadContext(ctx context.Context) (Measurement, error) {
	return d.read(func(wait time.Duration) error {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	})
}

func (d *Dev) read(wait waitFunc) (Measurement, error) {
	dur := d.MeasurementDuration()
	if err := d.writePower(powerForced); err != nil {
		return Measurement{}, err
	}
	d.log.Debug().Dur("wait", dur).Msg("forced measurement triggered")
	if err := wait(dur); err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		Temperature:   math.NaN(),
		Pressure:      math.NaN(),
		Humidity:      math.NaN(),
		GasResistance: math.NaN(),
	}
	if d.opts.Temperature == SamplingOff {
		// Everything downstream needs t_fine.
		return m, nil
	}

	// Pressure 0x1F..0x21, temperature 0x22..0x24, humidity 0x25..0x26,
	// read in a single pass.
	var buf [8]byte
	if err := d.readReg(regPressData, buf[:]); err != nil {
		return Measurement{}, errors.Wrap(err, "bme680: reading samples")
	}
	rawP := (int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])) >> 4
	rawT := (int32(buf[3])<<16 | int32(buf[4])<<8 | int32(buf[5])) >> 4
	rawH := int32(buf[6])<<8 | int32(buf[7])

	var tFine int32
	m.Temperature, tFine = d.cal.compensateTemperature(rawT)
	if d.opts.Pressure != SamplingOff {
		m.Pressure = d.cal.compensatePressure(rawP, tFine)
	}
	if d.opts.Humidity != SamplingOff {
		m.Humidity = d.cal.compensateHumidity(rawH, tFine)
	}

	if d.opts.Gas {
		var g [2]byte
		if err := d.readReg(regGasData, g[:]); err != nil {
			return Measurement{}, errors.Wrap(err, "bme680: reading gas resistance")
		}
		if g[1]&gasValid != 0 && g[1]&heaterStable != 0 {
			rawG := uint16(g[0])<<2 | uint16(g[1])>>6
			m.GasResistance = compensateGas(rawG, g[1]&0x0F)
		}
	}
	return m, nil
}
