// Driver for the Bosch BMP280 and BME280 pressure, temperature and humidity
// sensors.
//
// Reference implementation: https://github.com/boschsensortec/BME280_SensorAPI
//
// Datasheet: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme280-ds002.pdf
package bmx280

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
	ErrUnsupportedDevice = errors.New("bmx280: unexpected chip ID")
	ErrInvalidMode       = errors.New("bmx280: invalid operation mode")
	ErrInvalidSampling   = errors.New("bmx280: invalid oversampling value")
	ErrInvalidFilter     = errors.New("bmx280: invalid filter coefficient")
	ErrInvalidStandby    = errors.New("bmx280: invalid standby time")
)

// Opts configures the device at construction time.
type Opts struct {
	Address     uint16
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling // ignored on a BMP280
	Filter      Filter
	Standby     Standby // only relevant in Continuous mode
	Mode        Mode
}

// DefaultOpts is tuned for weather monitoring on an Enviro+ style board.
var DefaultOpts = Opts{
	Address:     I2CAddr,
	Temperature: Sampling2x,
	Pressure:    Sampling16x,
	Humidity:    Sampling1x,
	Filter:      FilterOff,
	Standby:     Standby125ms,
	Mode:        Manual,
}

// Dev is a handle to a BMP280 or BME280.
//
// A Dev is not safe for concurrent use; callers sharing one across
// goroutines must serialize access themselves.
type Dev struct {
	d     *i2c.Dev
	bus   i2c.BusCloser // set when New opened the bus itself
	log   zerolog.Logger
	isBME bool
	cal   calibration
	opts  Opts
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

// NewWithOpts configures the device behind an already opened bus.
//
// It verifies the chip ID, loads the factory calibration and applies the
// whole configuration in opts, leaving the device in opts.Mode.
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
		return nil, errors.Wrap(err, "bmx280: reading chip ID")
	}
	switch id {
	case chipIDBMP280:
		d.isBME = false
	case chipIDBME280:
		d.isBME = true
	default:
		return nil, errors.Wrapf(ErrUnsupportedDevice, "got 0x%02x", id)
	}
	d.log.Debug().Uint8("id", id).Bool("humidity", d.isBME).Msg("chip detected")

	if err := d.loadCalibration(); err != nil {
		return nil, err
	}

	if !d.isBME {
		// The BMP280 has no humidity hardware.
		d.opts.Humidity = SamplingOff
	}
	if err := d.setDefaultConfiguration(); err != nil {
		return nil, err
	}

	return d, nil
}

// setDefaultConfiguration pushes the full Opts to the device so no register
// is left in an undefined state, finishing with the operation mode.
func (d *Dev) setDefaultConfiguration() error {
	if err := d.SetSampling(d.opts.Temperature, d.opts.Pressure, d.opts.Humidity); err != nil {
		return err
	}
	if err := d.SetFilter(d.opts.Filter); err != nil {
		return err
	}
	if err := d.SetStandbyTime(d.opts.Standby); err != nil {
		return err
	}
	return d.SetMode(d.opts.Mode)
}

func (d *Dev) EnableDebugging() {
	d.log = d.log.Level(zerolog.DebugLevel)
}

// Mode returns the current operation mode.
func (d *Dev) Mode() Mode {
	return d.opts.Mode
}

// SetMode switches between Continuous free-running sampling and Manual
// one-shot sampling. Continuous commands the Normal power mode, Manual
// commands Sleep; the in-memory mode changes only after the power-mode write
// succeeded.
func (d *Dev) SetMode(m Mode) error {
	if m != Continuous && m != Manual {
		return ErrInvalidMode
	}
	bits := powerNormal
	if m == Manual {
		bits = powerSleep
	}
	if err := d.writePower(bits); err != nil {
		return err
	}
	d.opts.Mode = m
	return nil
}

// writePower sets the power mode bits of the control register, preserving
// the oversampling bits around them.
func (d *Dev) writePower(bits byte) error {
	v, err := d.read8(regControl)
	if err != nil {
		return errors.Wrap(err, "bmx280: reading control register")
	}
	if err := d.writeReg(regControl, v&ctrlModeClearMask|bits); err != nil {
		return errors.Wrap(err, "bmx280: writing power mode")
	}
	return nil
}

// SetSampling reconfigures the per-quantity oversampling. SamplingOff skips
// the quantity entirely. Humidity must be SamplingOff on a BMP280.
func (d *Dev) SetSampling(temp, press, hum Oversampling) error {
	for _, o := range []Oversampling{temp, press, hum} {
		if int(o) >= len(samplingBits) {
			return ErrInvalidSampling
		}
	}
	if !d.isBME && hum != SamplingOff {
		return ErrInvalidSampling
	}

	if d.isBME {
		// A ctrl_hum write only latches on the next ctrl_meas write,
		// so it has to go first.
		if err := d.writeReg(regCtrlHum, samplingBits[hum]); err != nil {
			return errors.Wrap(err, "bmx280: writing humidity oversampling")
		}
	}
	v, err := d.read8(regControl)
	if err != nil {
		return errors.Wrap(err, "bmx280: reading control register")
	}
	v = v&^ctrlModeClearMask | samplingBits[temp]<<5 | samplingBits[press]<<2
	if err := d.writeReg(regControl, v); err != nil {
		return errors.Wrap(err, "bmx280: writing oversampling")
	}
	d.opts.Temperature, d.opts.Pressure, d.opts.Humidity = temp, press, hum
	return nil
}

// SetFilter sets the IIR filter coefficient, preserving the standby and SPI
// bits of the config register.
func (d *Dev) SetFilter(f Filter) error {
	if int(f) >= len(filterBits) {
		return ErrInvalidFilter
	}
	v, err := d.read8(regConfig)
	if err != nil {
		return errors.Wrap(err, "bmx280: reading config register")
	}
	if err := d.writeReg(regConfig, v&cfgFilterClearMask|filterBits[f]<<2); err != nil {
		return errors.Wrap(err, "bmx280: writing filter mode")
	}
	d.opts.Filter = f
	return nil
}

// SetStandbyTime sets the idle interval between samples in Continuous mode,
// preserving the filter and SPI bits of the config register.
func (d *Dev) SetStandbyTime(s Standby) error {
	if int(s) >= len(standbyBits) {
		return ErrInvalidStandby
	}
	v, err := d.read8(regConfig)
	if err != nil {
		return errors.Wrap(err, "bmx280: reading config register")
	}
	if err := d.writeReg(regConfig, v&cfgStandbyClearMask|standbyBits[s]<<5); err != nil {
		return errors.Wrap(err, "bmx280: writing standby time")
	}
	d.opts.Standby = s
	return nil
}

// MeasurementDuration is how long one forced measurement cycle takes with
// the current oversampling settings. Skipped quantities cost nothing.
func (d *Dev) MeasurementDuration() time.Duration {
	return measCost[d.opts.Temperature] + measCost[d.opts.Pressure] + measCost[d.opts.Humidity]
}

// DeviceStatus mirrors the status register.
type DeviceStatus struct {
	Measuring     bool // a conversion is running
	ImageUpdating bool // NVM data is being copied to registers
}

// Status reads the status register. It is read on demand, never polled by
// the driver itself.
func (d *Dev) Status() (DeviceStatus, error) {
	v, err := d.read8(regStatus)
	if err != nil {
		return DeviceStatus{}, errors.Wrap(err, "bmx280: reading status")
	}
	return DeviceStatus{
		Measuring:     v&(1<<3) != 0,
		ImageUpdating: v&1 != 0,
	}, nil
}

// Reset performs a soft reset. The device comes back with its power-on
// defaults, so the current configuration is reapplied before returning and
// the next Read behaves as before the reset.
func (d *Dev) Reset() error {
	if err := d.writeReg(regSoftReset, softResetCmd); err != nil {
		return errors.Wrap(err, "bmx280: soft reset")
	}
	time.Sleep(2 * time.Millisecond) // t_startup
	return d.setDefaultConfiguration()
}

// Halt puts the device to sleep.
func (d *Dev) Halt() error {
	return d.SetMode(Manual)
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
