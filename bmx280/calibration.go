package bmx280

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// calibration holds the per-unit compensation constants burned into device
// NVM at manufacture time. Loaded once during New, read-only afterwards.
type calibration struct {
	t regT
	p regP
	h regH
}

// regT holds the temperature compensation constants.
type regT struct {
	T1 uint16
	T2 int16
	T3 int16
}

// regP holds the pressure compensation constants.
type regP struct {
	P1                             uint16
	P2, P3, P4, P5, P6, P7, P8, P9 int16
}

// regH holds the humidity compensation constants (BME280 only).
type regH struct {
	H1 uint8
	H2 int16
	H3 uint8
	H4 int16
	H5 int16
	H6 int8
}

func (d *Dev) loadCalibration() error {
	var buf [24]byte
	if err := d.readReg(regCalibTP, buf[:]); err != nil {
		return errors.Wrap(err, "bmx280: reading calibration")
	}
	rd := bytes.NewReader(buf[:])
	if err := binary.Read(rd, binary.LittleEndian, &d.cal.t); err != nil {
		return err
	}
	if err := binary.Read(rd, binary.LittleEndian, &d.cal.p); err != nil {
		return err
	}

	if !d.isBME {
		return nil
	}

	// dig_H1 sits apart from the rest, and dig_H4/dig_H5 share a nibble.
	var hbuf [7]byte
	if err := d.readReg(regDigH1, hbuf[:1]); err != nil {
		return errors.Wrap(err, "bmx280: reading humidity calibration")
	}
	d.cal.h.H1 = hbuf[0]

	if err := d.readReg(regDigH2, hbuf[:7]); err != nil {
		return errors.Wrap(err, "bmx280: reading humidity calibration")
	}
	d.cal.h.H2 = int16(hbuf[1])<<8 | int16(hbuf[0])
	d.cal.h.H3 = hbuf[2]
	d.cal.h.H4 = int16(hbuf[3])<<4 | int16(hbuf[4]&0x0F)
	d.cal.h.H5 = int16(hbuf[5])<<4 | int16(hbuf[4])>>4
	d.cal.h.H6 = int8(hbuf[6])

	return nil
}
