// Driver for the Bosch BME680/BME688 temperature, pressure, humidity and
// gas sensor.
//
// The BME68x has no free-running mode worth the name: it sleeps between
// measurements, so every Read triggers a forced one-shot cycle.
//
// Reference implementation: https://github.com/boschsensortec/BME68x_SensorAPI
//
// Datasheet: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme688-ds000.pdf
package bme680

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	ErrUnsupportedDevice = errors.New("bme680: unexpected chip ID")
	ErrInvalidSampling   = errors.New("bme680: invalid oversampling value")
	ErrInvalidFilter     = errors.New("bme680: invalid filter coefficient")
)

// Opts configures the device at construction time.
type Opts struct {
	Address     uint16
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter

	// Gas enables the gas resistance measurement: the heater plate is
	// driven to HeaterTemp for HeaterDuration at the end of each cycle.
	Gas            bool
	HeaterTemp     int // °C
	HeaterDuration time.Duration
}

// DefaultOpts matches Bosch's suggested indoor air quality settings.
var DefaultOpts = Opts{
	Address:        I2CAddr,
	Temperature:    Sampling8x,
	Pressure:       Sampling4x,
	Humidity:       Sampling2x,
	Filter:         Coeff3,
	Gas:            true,
	HeaterTemp:     320,
	HeaterDuration: 150 * time.Millisecond,
}

// Dev is a handle to a BME680 or BME688.
//
// A Dev is not safe for concurrent use; callers sharing one across
// goroutines must serialize access themselves.
type Dev struct {
	d    *i2c.Dev
	bus  i2c.BusCloser
	log  zerolog.Logger
	cal  calibration
	opts Opts
}

// New opens the first available I²C bus and configures the device found at
// the default address with DefaultOpts.
func New() (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, err
	}

	dev, err := NewWithOpts(bus, DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, err
	}
	dev.bus = bus
	return dev, nil
}

// NewWithOpts configures the device behind an already opened bus: chip-ID
// check, calibration load, then the full configuration in opts.
func NewWithOpts(bus i2c.Bus, opts Opts) (*Dev, error) {
	if opts.Address == 0 {
		opts.Address = I2CAddr
	}

	d := &Dev{
		d:    &i2c.Dev{Addr: opts.Address, Bus: bus},
		opts: opts,
	}
	d.log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	d.log = d.log.Level(zerolog.InfoLevel)

	id, err := d.read8(regChipID)
	if err != nil {
		return nil, errors.Wrap(err, "bme680: reading chip ID")
	}
	if id != chipID {
		return nil, errors.Wrapf(ErrUnsupportedDevice, "got 0x%02x", id)
	}

	if err := d.loadCalibration(); err != nil {
		return nil, err
	}
	if err := d.setDefaultConfiguration(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Dev) setDefaultConfiguration() error {
	for _, o := range []Oversampling{d.opts.Temperature, d.opts.Pressure, d.opts.Humidity} {
		if int(o) >= len(samplingBits) {
			return ErrInvalidSampling
		}
	}
	if int(d.opts.Filter) >= len(filterBits) {
		return ErrInvalidFilter
	}

	if err := d.writeReg(regCtrlHum, samplingBits[d.opts.Humidity]); err != nil {
		return errors.Wrap(err, "bme680: writing humidity oversampling")
	}
	v, err := d.read8(regControl)
	if err != nil {
		return errors.Wrap(err, "bme680: reading control register")
	}
	v = v&^ctrlModeClearMask | samplingBits[d.opts.Temperature]<<5 | samplingBits[d.opts.Pressure]<<2
	if err := d.writeReg(regControl, v); err != nil {
		return errors.Wrap(err, "bme680: writing oversampling")
	}

	v, err = d.read8(regConfig)
	if err != nil {
		return errors.Wrap(err, "bme680: reading config register")
	}
	if err := d.writeReg(regConfig, v&cfgFilterClearMask|filterBits[d.opts.Filter]<<2); err != nil {
		return errors.Wrap(err, "bme680: writing filter mode")
	}

	if !d.opts.Gas {
		return errors.Wrap(d.writeReg(regCtrlGas0, heaterOff), "bme680: disabling heater")
	}
	if err := d.writeReg(regGasWait0, encodeGasWait(d.opts.HeaterDuration)); err != nil {
		return errors.Wrap(err, "bme680: writing heater duration")
	}
	if err := d.writeReg(regResHeat0, d.cal.resHeat(d.opts.HeaterTemp, 25)); err != nil {
		return errors.Wrap(err, "bme680: writing heater set point")
	}
	return errors.Wrap(d.writeReg(regCtrlGas1, runGas), "bme680: enabling gas measurement")
}

func (d *Dev) EnableDebugging() {
	d.log = d.log.Level(zerolog.DebugLevel)
}

// MeasurementDuration is how long one forced cycle takes: the TPH
// oversampling costs plus the heater-on time when gas is enabled.
func (d *Dev) MeasurementDuration() time.Duration {
	dur := measCost[d.opts.Temperature] + measCost[d.opts.Pressure] + measCost[d.opts.Humidity]
	if d.opts.Gas {
		dur += d.opts.HeaterDuration
	}
	return dur
}

// DeviceStatus mirrors the meas_status_0 register.
type DeviceStatus struct {
	NewData    bool
	GasRunning bool
	Measuring  bool
}

// Status reads the measurement status register on demand.
func (d *Dev) Status() (DeviceStatus, error) {
	v, err := d.read8(regMeasStatus)
	if err != nil {
		return DeviceStatus{}, errors.Wrap(err, "bme680: reading status")
	}
	return DeviceStatus{
		NewData:    v&statusNewData != 0,
		GasRunning: v&statusGasRunning != 0,
		Measuring:  v&statusMeasuring != 0,
	}, nil
}

// Reset performs a soft reset. The device comes back with its power-on
// defaults, so the current configuration is reapplied before returning.
func (d *Dev) Reset() error {
	if err := d.writeReg(regSoftReset, softResetCmd); err != nil {
		return errors.Wrap(err, "bme680: soft reset")
	}
	time.Sleep(2 * time.Millisecond) // t_startup
	return d.setDefaultConfiguration()
}

// Halt puts the device to sleep.
func (d *Dev) Halt() error {
	return d.writePower(powerSleep)
}

// Close puts the device to sleep and, when New opened the bus, closes it.
func (d *Dev) Close() error {
	err := d.Halt()
	if d.bus != nil {
		if cerr := d.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *Dev) writePower(bits byte) error {
	v, err := d.read8(regControl)
	if err != nil {
		return errors.Wrap(err, "bme680: reading control register")
	}
	if err := d.writeReg(regControl, v&ctrlModeClearMask|bits); err != nil {
		return errors.Wrap(err, "bme680: writing power mode")
	}
	return nil
}

func (d *Dev) readReg(reg uint8, b []byte) error {
	return d.d.Tx([]byte{reg}, b)
}

func (d *Dev) read8(reg uint8) (byte, error) {
	var b [1]byte
	if err := d.d.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) writeReg(reg uint8, v byte) error {
	return d.d.Tx([]byte{reg, v}, nil)
}
