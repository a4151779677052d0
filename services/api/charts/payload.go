package charts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedPayload is returned when a raw payload is not a JSON object.
var ErrMalformedPayload = errors.New("malformed sensor payload")

// Sensor type tags, compared case-insensitively.
const (
	SensorTemperature = "temperature"
	SensorAirFlow     = "air flow"
	SensorVibration   = "vibration"
	SensorDust        = "dust sensor"
	SensorHumidity    = "humidity"
	SensorPressure    = "pressure"
)

// Numeric field names as bound by chart consumers.
const (
	FieldTemp               = "temp"
	FieldHum                = "hum"
	FieldAirFlow            = "airFlow"
	FieldPressure           = "pressure"
	FieldVibrationX         = "vibrationX"
	FieldVibrationY         = "vibrationY"
	FieldVibrationZ         = "vibrationZ"
	FieldVibrationMagnitude = "vibrationMagnitude"
	FieldDustLevel          = "dustLevel"
)

// NumericFields is every field the aggregator averages, in output order.
var NumericFields = []string{
	FieldTemp,
	FieldHum,
	FieldAirFlow,
	FieldPressure,
	FieldVibrationX,
	FieldVibrationY,
	FieldVibrationZ,
	FieldVibrationMagnitude,
	FieldDustLevel,
}

// Payload is a decoded sensor payload. Each sensor type has its own variant.
type Payload interface {
	fields() map[string]float64
}

// TemperaturePayload holds a temperature sensor reading.
type TemperaturePayload struct {
	Temp, Hum *float64
}

// AirFlowPayload holds an air flow sensor reading.
type AirFlowPayload struct {
	AirFlow, Pressure *float64
}

// VibrationPayload holds per-axis vibration values.
type VibrationPayload struct {
	X, Y, Z *float64
}

// DustPayload holds a dust sensor reading.
type DustPayload struct {
	DustLevel, Temp, Hum *float64
}

// HumidityPayload holds a humidity sensor reading.
type HumidityPayload struct {
	Hum, Temp *float64
}

// PressurePayload holds a pressure sensor reading.
type PressurePayload struct {
	Pressure *float64
}

// UnknownPayload is used for sensor types without a dedicated variant.
// Values carries every numeric key of the payload but is not charted.
type UnknownPayload struct {
	SensorType string
	Values     map[string]float64
}

// ParsePayload decodes raw as the variant matching sensorType.
func ParsePayload(sensorType, raw string) (Payload, error) {
	// Numbers stay json.Number so an out-of-range value only loses its own field.
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedPayload)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrMalformedPayload)
	}

	switch strings.ToLower(strings.TrimSpace(sensorType)) {
	case SensorTemperature:
		return TemperaturePayload{
			Temp: number(obj, "temp", "temperature"),
			Hum:  number(obj, "hum", "humidity"),
		}, nil
	case SensorAirFlow:
		return AirFlowPayload{
			AirFlow:  number(obj, "air_flow_lpm"),
			Pressure: number(obj, "air_pressure_hpa"),
		}, nil
	case SensorVibration:
		return VibrationPayload{
			X: number(obj, "vibration_x"),
			Y: number(obj, "vibration_y"),
			Z: number(obj, "vibration_z"),
		}, nil
	case SensorDust:
		return DustPayload{
			DustLevel: number(obj, "dust_level_ug_m3"),
			Temp:      number(obj, "temperature"),
			Hum:       number(obj, "humidity"),
		}, nil
	case SensorHumidity:
		return HumidityPayload{
			Hum:  number(obj, "hum"),
			Temp: number(obj, "temp"),
		}, nil
	case SensorPressure:
		return PressurePayload{
			Pressure: number(obj, "air_pressure_hpa"),
		}, nil
	}

	values := make(map[string]float64, len(obj))
	for k := range obj {
		if v := number(obj, k); v != nil {
			values[k] = *v
		}
	}
	return UnknownPayload{SensorType: sensorType, Values: values}, nil
}

// number returns the first of keys holding a finite number. Numeric strings
// are accepted since some devices quote their readings. Values that overflow
// float64 count as absent.
func number(obj map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		var v float64
		switch raw := obj[k].(type) {
		case json.Number:
			f, err := strconv.ParseFloat(raw.String(), 64)
			if err != nil {
				continue
			}
			v = f
		case float64:
			v = raw
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				continue
			}
			v = f
		default:
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		return &v
	}
	return nil
}

func put(m map[string]float64, name string, v *float64) {
	if v != nil {
		m[name] = *v
	}
}

func (p TemperaturePayload) fields() map[string]float64 {
	m := make(map[string]float64, 2)
	put(m, FieldTemp, p.Temp)
	put(m, FieldHum, p.Hum)
	return m
}

func (p AirFlowPayload) fields() map[string]float64 {
	m := make(map[string]float64, 2)
	put(m, FieldAirFlow, p.AirFlow)
	put(m, FieldPressure, p.Pressure)
	return m
}

// Magnitude is the euclidean norm of the three axes, missing axes counting as 0.
func (p VibrationPayload) Magnitude() float64 {
	var sum float64
	for _, v := range []*float64{p.X, p.Y, p.Z} {
		if v != nil {
			sum += *v * *v
		}
	}
	return math.Sqrt(sum)
}

func (p VibrationPayload) fields() map[string]float64 {
	m := make(map[string]float64, 4)
	put(m, FieldVibrationX, p.X)
	put(m, FieldVibrationY, p.Y)
	put(m, FieldVibrationZ, p.Z)
	mag := roundTo(p.Magnitude(), 3)
	m[FieldVibrationMagnitude] = mag
	return m
}

func (p DustPayload) fields() map[string]float64 {
	m := make(map[string]float64, 3)
	put(m, FieldDustLevel, p.DustLevel)
	put(m, FieldTemp, p.Temp)
	put(m, FieldHum, p.Hum)
	return m
}

func (p HumidityPayload) fields() map[string]float64 {
	m := make(map[string]float64, 2)
	put(m, FieldHum, p.Hum)
	put(m, FieldTemp, p.Temp)
	return m
}

func (p PressurePayload) fields() map[string]float64 {
	m := make(map[string]float64, 1)
	put(m, FieldPressure, p.Pressure)
	return m
}

func (p UnknownPayload) fields() map[string]float64 {
	return map[string]float64{}
}

// roundTo rounds half away from zero. The nudge absorbs binary representation
// error so that 1.115 rounds to 1.12.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale+math.Copysign(1e-9, v)) / scale
}
