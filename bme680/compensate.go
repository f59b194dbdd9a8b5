package bme680

// Compensation per the Bosch BME68x reference implementation:
// https://github.com/boschsensortec/BME68x_SensorAPI

// compensateTemperature converts a raw 20-bit temperature sample to degrees
// Celsius, also returning t_fine for the pressure and humidity formulas.
func (c *calibration) compensateTemperature(raw int32) (float64, int32) {
	var1 := (int64(raw) >> 3) - (int64(c.t1) << 1)
	var2 := (var1 * int64(c.t2)) >> 11
	var3 := ((var1 >> 1) * (var1 >> 1)) >> 12
	var3 = (var3 * (int64(c.t3) << 4)) >> 14
	tFine := int32(var2 + var3)
	return float64((int64(tFine)*5+128)>>8) / 100, tFine
}

// compensatePressure converts a raw 20-bit pressure sample to hPa. The 68x
// reference implements this branch in floating point.
func (c *calibration) compensatePressure(raw int32, tFine int32) float64 {
	var1 := float64(tFine)/2.0 - 64000.0
	var2 := var1 * var1 * (float64(c.p6) / 131072.0)
	var2 += var1 * float64(c.p5) * 2.0
	var2 = var2/4.0 + float64(c.p4)*65536.0
	var1 = ((float64(c.p3)*var1*var1)/16384.0 + float64(c.p2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(c.p1)
	if int32(var1) == 0 {
		// Reference workaround to avoid a division by zero.
		return 0
	}
	p := 1048576.0 - float64(raw)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = float64(c.p9) * p * p / 2147483648.0
	var2 = p * (float64(c.p8) / 32768.0)
	var3 := (p / 256.0) * (p / 256.0) * (p / 256.0) * (float64(c.p10) / 131072.0)
	p += (var1 + var2 + var3 + float64(c.p7)*128.0) / 16.0
	return p / 100 // Pa to hPa
}

// compensateHumidity converts a raw 16-bit humidity sample to %RH, clamped
// to [0, 100].
func (c *calibration) compensateHumidity(raw int32, tFine int32) float64 {
	tempScaled := (tFine*5 + 128) >> 8
	var1 := (raw - int32(c.h1)*16) - ((tempScaled * int32(c.h3) / 100) >> 1)
	var2 := (int32(c.h2) * (tempScaled*int32(c.h4)/100 +
		((tempScaled*(tempScaled*int32(c.h5)/100))>>6)/100 + (1 << 14))) >> 10
	var3 := var1 * var2
	var4 := (int32(c.h6)<<7 + tempScaled*int32(c.h7)/100) >> 4
	var5 := ((var3 >> 14) * (var3 >> 14)) >> 10
	var6 := (var4 * var5) >> 1
	h := (((var3 + var6) >> 10) * 1000) >> 12
	if h > 100000 {
		h = 100000
	} else if h < 0 {
		h = 0
	}
	return float64(h) / 1000
}

// compensateGas converts a raw gas ADC sample and its range setting to a
// heater plate resistance in ohms, using the BME688 high-range formula.
func compensateGas(raw uint16, gasRange uint8) float64 {
	var1 := uint32(262144) >> gasRange
	var2 := (int32(raw)-512)*3 + 4096
	return 1000000.0 * float64(var1) / float64(var2)
}

// resHeat computes the res_heat_0 register value for a target heater plate
// temperature at a given ambient temperature, both in °C.
func (c *calibration) resHeat(target, ambient int) byte {
	if target > 400 {
		target = 400
	}
	var1 := int32(ambient) * int32(c.gh3) / 1000 * 256
	var2 := (int32(c.gh1) + 784) * (((int32(c.gh2)+154009)*int32(target)*5/100 + 3276800) / 10)
	var3 := var1 + var2/2
	var4 := var3 / (int32(c.heatRange) + 4)
	var5 := 131*int32(c.heatVal) + 65536
	x := (var4/var5 - 250) * 34
	return byte((x + 50) / 100)
}
