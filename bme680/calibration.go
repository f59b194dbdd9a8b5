package bme680

import "github.com/pkg/errors"

// calibration holds the BME68x compensation constants. The coefficient
// layout is the datasheet's: temperature t1 lives in the humidity block, and
// a few pressure constants sit swapped or padded in the TPG block.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int8

	p1                 uint16
	p2, p4, p5, p8, p9 int16
	p3, p6, p7         int8
	p10                uint8

	h1, h2         uint16
	h3, h4, h5, h7 int8
	h6             uint8

	gh1, gh3  int8
	gh2       int16
	heatRange uint8
	heatVal   int8
}

func (d *Dev) loadCalibration() error {
	var tph [23]byte
	if err := d.readReg(regCalTPG, tph[:]); err != nil {
		return errors.Wrap(err, "bme680: reading calibration")
	}
	var hg [14]byte
	if err := d.readReg(regCalHG, hg[:]); err != nil {
		return errors.Wrap(err, "bme680: reading calibration")
	}

	c := &d.cal
	c.t1 = uint16(hg[8]) | uint16(hg[9])<<8
	c.t2 = int16(tph[0]) | int16(tph[1])<<8
	c.t3 = int8(tph[2])

	c.p1 = uint16(tph[4]) | uint16(tph[5])<<8
	c.p2 = int16(tph[6]) | int16(tph[7])<<8
	c.p3 = int8(tph[8])
	c.p4 = int16(tph[10]) | int16(tph[11])<<8
	c.p5 = int16(tph[12]) | int16(tph[13])<<8
	c.p6 = int8(tph[15])
	c.p7 = int8(tph[14])
	c.p8 = int16(tph[18]) | int16(tph[19])<<8
	c.p9 = int16(tph[20]) | int16(tph[21])<<8
	c.p10 = tph[22]

	// h1 and h2 share the nibbles of hg[1].
	c.h1 = uint16(hg[1])&0xF | uint16(hg[2])<<4
	c.h2 = uint16(hg[1])>>4 | uint16(hg[0])<<4
	c.h3 = int8(hg[3])
	c.h4 = int8(hg[4])
	c.h5 = int8(hg[5])
	c.h6 = hg[6]
	c.h7 = int8(hg[7])

	c.gh2 = int16(hg[10]) | int16(hg[11])<<8
	c.gh1 = int8(hg[12])
	c.gh3 = int8(hg[13])

	v, err := d.read8(regResHeatVal)
	if err != nil {
		return errors.Wrap(err, "bme680: reading heater calibration")
	}
	c.heatVal = int8(v)

	v, err = d.read8(regResHeatRange)
	if err != nil {
		return errors.Wrap(err, "bme680: reading heater calibration")
	}
	c.heatRange = (v >> 4) & 0x3

	return nil
}
