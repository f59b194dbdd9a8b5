package bmx280

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Measurement is one compensated reading. A quantity whose oversampling is
// SamplingOff reports NaN instead of being omitted.
type Measurement struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    float64 // %RH, always NaN on a BMP280
}

type waitFunc func(time.Duration) error

// Read performs one measurement cycle.
//
// In Manual mode it triggers a forced measurement and sleeps for
// MeasurementDuration before reading the result; in Continuous mode it reads
// whatever the free-running device last produced.
func (d *Dev) Read() (Measurement, error) {
	return d.read(func(wait time.Duration) error {
		time.Sleep(wait)
		return nil
	})
}

// ReadContext is Read with a cooperative wait: cancelling ctx abandons the
// wait and returns ctx.Err(). A forced measurement already triggered cannot
// be recalled from the host side, so a Read issued before that hardware
// cycle completes may observe a stale sample; pacing after a cancel is the
// caller's responsibility.
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

// read is the one measurement cycle implementation shared by both wait
// strategies. A bus failure aborts the whole cycle, never returning a
// partial result.
func (d *Dev) read(wait waitFunc) (Measurement, error) {
	if d.opts.Mode == Manual {
		dur := d.MeasurementDuration()
		if err := d.writePower(powerForced); err != nil {
			return Measurement{}, err
		}
		d.log.Debug().Dur("wait", dur).Msg("forced measurement triggered")
		if err := wait(dur); err != nil {
			return Measurement{}, err
		}
	}

	m := Measurement{
		Temperature: math.NaN(),
		Pressure:    math.NaN(),
		Humidity:    math.NaN(),
	}
	if d.opts.Temperature == SamplingOff {
		// Pressure and humidity compensation need t_fine, so there is
		// nothing more to measure without temperature.
		return m, nil
	}

	rawT, err := d.readRaw20(regTempData)
	if err != nil {
		return Measurement{}, errors.Wrap(err, "bmx280: reading temperature")
	}
	var tFine int32
	m.Temperature, tFine = d.cal.compensateTemperature(rawT)

	if d.opts.Pressure != SamplingOff {
		rawP, err := d.readRaw20(regPressureData)
		if err != nil {
			return Measurement{}, errors.Wrap(err, "bmx280: reading pressure")
		}
		m.Pressure = d.cal.compensatePressure(rawP, tFine)
	}
	if d.opts.Humidity != SamplingOff {
		rawH, err := d.readRaw16(regHumidityData)
		if err != nil {
			return Measurement{}, errors.Wrap(err, "bmx280: reading humidity")
		}
		m.Humidity = d.cal.compensateHumidity(rawH, tFine)
	}
	return m, nil
}

// readRaw20 reads a 24-bit big-endian sample register, dropping the 4
// reserved low bits.
func (d *Dev) readRaw20(reg uint8) (int32, error) {
	var b [3]byte
	if err := d.readReg(reg, b[:]); err != nil {
		return 0, err
	}
	return (int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])) >> 4, nil
}

func (d *Dev) readRaw16(reg uint8) (int32, error) {
	var b [2]byte
	if err := d.readReg(reg, b[:]); err != nil {
		return 0, err
	}
	return int32(b[0])<<8 | int32(b[1]), nil
}
