package bmx280

import (
	"context"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

// Raw sample registers holding the datasheet example values: 24-bit
// big-endian, 20-bit magnitude left-aligned.
var (
	rawTempRegs  = []byte{0x7E, 0xED, 0x00} // 519888
	rawPressRegs = []byte{0x65, 0x5A, 0xC0} // 415148
	rawHumRegs   = []byte{0x80, 0xE8}       // 33000
)

// noWait replaces the forced-measurement sleep so manual-mode tests do not
// block, recording what the real wait would have been.
func noWait(rec *time.Duration) waitFunc {
	return func(wait time.Duration) error {
		*rec = wait
		return nil
	}
}

func TestReadManualBMP280(t *testing.T) {
	ops := append(bmp280SetupOps(),
		// Forced one-shot trigger, then the raw reads after the wait.
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x55}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regTempData}, R: rawTempRegs},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regPressureData}, R: rawPressRegs},
	)
	b := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d, err := NewWithOpts(b, DefaultOpts)
	if err != nil {
		t.Fatalf("NewWithOpts: %v", err)
	}

	var waited time.Duration
	m, err := d.read(noWait(&waited))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if waited != 53*time.Millisecond {
		t.Fatalf("wait: got %v want 53ms", waited)
	}
	if math.Abs(m.Temperature-25.08) > 0.01 {
		t.Fatalf("temperature: got %v want 25.08", m.Temperature)
	}
	if math.Abs(m.Pressure-1006.5325) > 0.001 {
		t.Fatalf("pressure: got %v want 1006.5325", m.Pressure)
	}
	if !math.IsNaN(m.Humidity) {
		t.Fatalf("humidity: got %v want NaN on a BMP280", m.Humidity)
	}
	closeBus(t, b)
}

func TestReadContextContinuous(t *testing.T) {
	// In Continuous mode there is no forced trigger and no wait, just the
	// three raw reads of whatever the free-running device last produced.
	d, b := newBME280(t,
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x57}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regTempData}, R: rawTempRegs},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regPressureData}, R: rawPressRegs},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regHumidityData}, R: rawHumRegs},
	)
	if err := d.SetMode(Continuous); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	m, err := d.ReadContext(context.Background())
	if err != nil {
		t.Fatalf("ReadContext: %v", err)
	}
	if math.Abs(m.Temperature-25.08) > 0.01 {
		t.Fatalf("temperature: got %v want 25.08", m.Temperature)
	}
	if math.Abs(m.Pressure-1006.5325) > 0.001 {
		t.Fatalf("pressure: got %v want 1006.5325", m.Pressure)
	}
	if math.Abs(m.Humidity-64.171875) > 0.0001 {
		t.Fatalf("humidity: got %v want 64.171875", m.Humidity)
	}
	closeBus(t, b)
}

func TestReadContextCancelled(t *testing.T) {
	// The forced trigger still happens, but the wait is abandoned and no
	// raw register is touched.
	d, b := newBME280(t,
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x55}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.ReadContext(ctx); err != context.Canceled {
		t.Fatalf("got %v want context.Canceled", err)
	}
	closeBus(t, b)
}

func TestReadSkippedQuantities(t *testing.T) {
	// With pressure and humidity skipped only the temperature register is
	// touched; Playback.Close fails the test on any extra transaction.
	d, b := newBME280(t,
		i2ctest.IO{Addr: I2CAddr, W: []byte{regCtrlHum, 0x00}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x20}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x20}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x23}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regTempData}, R: rawTempRegs},
	)
	if err := d.SetSampling(Sampling1x, SamplingOff, SamplingOff); err != nil {
		t.Fatalf("SetSampling: %v", err)
	}
	if err := d.SetMode(Continuous); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	m, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if math.Abs(m.Temperature-25.08) > 0.01 {
		t.Fatalf("temperature: got %v want 25.08", m.Temperature)
	}
	if !math.IsNaN(m.Pressure) || !math.IsNaN(m.Humidity) {
		t.Fatalf("skipped quantities: got %+v want NaN slots", m)
	}
	closeBus(t, b)
}

func TestReadAllSkipped(t *testing.T) {
	// Temperature off means no t_fine, so the whole result is NaN and the
	// forced trigger is the only traffic.
	d, b := newBME280(t,
		i2ctest.IO{Addr: I2CAddr, W: []byte{regCtrlHum, 0x00}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x00}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x00}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x01}},
	)
	if err := d.SetSampling(SamplingOff, SamplingOff, SamplingOff); err != nil {
		t.Fatalf("SetSampling: %v", err)
	}

	m, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !math.IsNaN(m.Temperature) || !math.IsNaN(m.Pressure) || !math.IsNaN(m.Humidity) {
		t.Fatalf("got %+v want all NaN", m)
	}
	closeBus(t, b)
}

func TestReadBusFailureNoPartialResult(t *testing.T) {
	// The pressure read fails mid-cycle: the error must propagate and the
	// result must be the zero value, not a partial measurement carrying the
	// already-compensated temperature.
	d, b := newBME280(t,
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl}, R: []byte{0x54}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regControl, 0x57}},
		i2ctest.IO{Addr: I2CAddr, W: []byte{regTempData}, R: rawTempRegs},
	)
	if err := d.SetMode(Continuous); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	m, err := d.Read()
	if err == nil {
		t.Fatal("Read: expected an error")
	}
	if m != (Measurement{}) {
		t.Fatalf("got %+v want the zero value", m)
	}
	closeBus(t, b)
}
