package models

import (
	"fmt"
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
)

// GeoPoint представляет географическую точку
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate проверяет корректность координат
func (p GeoPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Longitude)
	}
	return nil
}

// DistanceTo вычисляет расстояние до другой точки в километрах (формула Haversine)
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	const earthRadius = 6371 // км

	lat1Rad := p.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - p.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Geohash возвращает geohash для точки с заданной точностью
func (p GeoPoint) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(p.Latitude, p.Longitude, uint(precision))
}

// Position представляет один сырой телеметрический пинг устройства.
// Опциональные поля телеметрии моделируются указателями: nil означает,
// что устройство не передало значение.
type Position struct {
	DeviceID     string    `json:"device_id"`
	RecordedAt   time.Time `json:"recorded_at"` // UTC
	Point        GeoPoint  `json:"point"`
	SpeedKph     *float64  `json:"speed_kph,omitempty"`
	CourseDeg    *float64  `json:"course_deg,omitempty"`
	IgnitionOn   *bool     `json:"ignition_on,omitempty"`
	FuelPercent  *float64  `json:"fuel_percent,omitempty"` // 0-100
	OdometerKm   *float64  `json:"odometer_km,omitempty"`
	TemperatureC *float64  `json:"temperature_c,omitempty"`
}

// Speed возвращает скорость пинга, отсутствующая скорость трактуется как 0
func (p *Position) Speed() float64 {
	if p.SpeedKph == nil {
		return 0
	}
	return *p.SpeedKph
}

// IgnitionKnownOff сообщает, что зажигание явно выключено
func (p *Position) IgnitionKnownOff() bool {
	return p.IgnitionOn != nil && !*p.IgnitionOn
}

// HasFuel сообщает, несет ли пинг уровень топлива
func (p *Position) HasFuel() bool {
	return p.FuelPercent != nil
}

// Validate проверяет корректность пинга
func (p *Position) Validate() error {
	if p.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if p.RecordedAt.IsZero() {
		return fmt.Errorf("recorded_at is required")
	}
	if err := p.Point.Validate(); err != nil {
		return err
	}
	if p.FuelPercent != nil && (*p.FuelPercent < 0 || *p.FuelPercent > 100) {
		return fmt.Errorf("invalid fuel percent: %f", *p.FuelPercent)
	}
	if p.SpeedKph != nil && *p.SpeedKph < 0 {
		return fmt.Errorf("invalid speed: %f", *p.SpeedKph)
	}
	return nil
}

// TotalDistanceKm суммирует haversine-расстояния между последовательными пингами
func TotalDistanceKm(positions []Position) float64 {
	total := 0.0
	for i := 1; i < len(positions); i++ {
		total += positions[i-1].Point.DistanceTo(positions[i].Point)
	}
	return total
}

// OdometerDeltaKm возвращает дельту одометра между первым и последним пингом,
// несущим одометр. Вторым значением возвращает false, если дельта недоступна
// или одометр убывает (замена устройства, сброс).
func OdometerDeltaKm(positions []Position) (float64, bool) {
	var first, last *float64
	for i := range positions {
		if positions[i].OdometerKm == nil {
			continue
		}
		if first == nil {
			first = positions[i].OdometerKm
		}
		last = positions[i].OdometerKm
	}
	if first == nil || last == nil || first == last {
		return 0, false
	}
	if *last < *first {
		return 0, false
	}
	return *last - *first, true
}
