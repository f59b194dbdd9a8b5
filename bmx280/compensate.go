package bmx280

// Fixed-point compensation ported from the Bosch reference implementation:
// https://github.com/boschsensortec/BME280_SensorAPI
//
// All arithmetic is integer with explicit shifts so the rounding matches the
// reference bit for bit; floats only appear in the final unit conversion.

// compensateTemperature converts a raw 20-bit temperature sample to degrees
// Celsius. It also returns t_fine, the intermediate the pressure and
// humidity formulas depend on, so callers thread it explicitly instead of
// relying on call order through shared state.
func (c *calibration) compensateTemperature(raw int32) (float64, int32) {
	t1 := int32(c.t.T1)
	var1 := (((raw >> 3) - (t1 << 1)) * int32(c.t.T2)) >> 11
	var2 := (((((raw >> 4) - t1) * ((raw >> 4) - t1)) >> 12) * int32(c.t.T3)) >> 14
	tFine := var1 + var2
	return float64(tFine) / 5120.0, tFine
}

// compensatePressure converts a raw 20-bit pressure sample to hPa using the
// 64-bit Q24.8 formula and the t_fine value from compensateTemperature.
func (c *calibration) compensatePressure(raw int32, tFine int32) float64 {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.p.P6)
	var2 += (var1 * int64(c.p.P5)) << 17
	var2 += int64(c.p.P4) << 35
	var1 = ((var1 * var1 * int64(c.p.P3)) >> 8) + ((var1 * int64(c.p.P2)) << 12)
	var1 = ((int64(1) << 47) + var1) * int64(c.p.P1) >> 33
	if var1 == 0 {
		// Datasheet workaround to avoid a division by zero.
		return 0
	}
	p := int64(1048576 - raw)
	p = ((p<<31 - var2) * 3125) / var1
	var1 = (int64(c.p.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.p.P7) << 4)
	// p is Pa in Q24.8; /256 to Pa, /100 to hPa.
	return float64(p) / 256 / 100
}

// compensateHumidity converts a raw 16-bit humidity sample to %RH, clamped
// to [0, 100].
func (c *calibration) compensateHumidity(raw int32, tFine int32) float64 {
	v := tFine - 76800
	v = (((raw<<14 - int32(c.h.H4)<<20 - int32(c.h.H5)*v + 16384) >> 15) *
		(((((((v*int32(c.h.H6))>>10)*(((v*int32(c.h.H3))>>11)+32768))>>10)+2097152)*int32(c.h.H2) + 8192) >> 14))
	v -= ((((v >> 15) * (v >> 15)) >> 7) * int32(c.h.H1)) >> 4
	if v < 0 {
		v = 0
	}
	if v > 419430400 {
		v = 419430400
	}
	return float64(v>>12) / 1024.0
}
