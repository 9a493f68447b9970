package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/telematics-backend/internal/models"
)

func ping(offsetSec int, speedKph float64) models.Position {
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	return models.Position{
		DeviceID:   "dev-1",
		RecordedAt: base.Add(time.Duration(offsetSec) * time.Second),
		Point:      models.GeoPoint{Latitude: 55.75, Longitude: 37.61},
		SpeedKph:   &speedKph,
	}
}

func pingNoSpeed(offsetSec int) models.Position {
	p := ping(offsetSec, 0)
	p.SpeedKph = nil
	return p
}

func TestGapFilter_EmptyAndSingleInput(t *testing.T) {
	f := NewGapFilter(nil, nil)

	result := f.Filter(nil)
	assert.Equal(t, 0, result.OriginalCount)
	assert.Empty(t, result.Positions)

	single := []models.Position{ping(0, 30)}
	result = f.Filter(single)
	assert.Equal(t, 1, result.OriginalCount)
	assert.Equal(t, 0, result.DroppedCount)
	assert.Len(t, result.Positions, 1)
}

func TestGapFilter_AdaptiveGap(t *testing.T) {
	// 8 стоящих пингов каждые 10с + 2 движущихся через 3с
	positions := []models.Position{
		ping(0, 0), ping(10, 0), ping(20, 0), ping(30, 0),
		ping(40, 0), ping(50, 0), ping(60, 0), ping(70, 0),
		ping(73, 40), ping(76, 40),
	}

	f := NewGapFilter(DefaultGapFilterConfig(), nil)
	result := f.Filter(positions)

	// Стоянка: приняты t=0,20,40,60 (интервал 20с); движение: принят t=73
	// (13с от последнего принятого), t=76 отброшен (3с < 5с)
	require.Len(t, result.Positions, 5)
	offsets := make([]int, 0, len(result.Positions))
	base := positions[0].RecordedAt
	for _, p := range result.Positions {
		offsets = append(offsets, int(p.RecordedAt.Sub(base).Seconds()))
	}
	assert.Equal(t, []int{0, 20, 40, 60, 73}, offsets)
	assert.Equal(t, 5, result.DroppedCount)
	assert.Equal(t, 1, result.Statistics.DroppedMoving)
	assert.Equal(t, 4, result.Statistics.DroppedStopped)
	assert.Equal(t, 40.0, result.Statistics.MaxSpeedKph)
}

func TestGapFilter_Idempotence(t *testing.T) {
	positions := []models.Position{
		ping(0, 0), ping(3, 45), ping(7, 50), ping(11, 48),
		ping(15, 2), ping(25, 0), ping(50, 0), ping(55, 60),
	}

	f := NewGapFilter(DefaultGapFilterConfig(), nil)
	once := f.Filter(positions)
	twice := f.Filter(once.Positions)

	assert.Equal(t, once.Positions, twice.Positions)
	assert.Equal(t, 0, twice.DroppedCount)
}

func TestGapFilter_MissingSpeedUsesStoppedGap(t *testing.T) {
	// Пинги без скорости каждые 10с: должен примениться порог стоянки (20с)
	positions := []models.Position{
		pingNoSpeed(0), pingNoSpeed(10), pingNoSpeed(20), pingNoSpeed(30),
	}

	f := NewGapFilter(DefaultGapFilterConfig(), nil)
	result := f.Filter(positions)

	require.Len(t, result.Positions, 2)
	assert.Equal(t, 2, result.Statistics.DroppedStopped)
}

func TestGapFilter_DuplicateTimestamps(t *testing.T) {
	positions := []models.Position{
		ping(0, 0), ping(0, 0), ping(0, 0), ping(30, 0),
	}

	f := NewGapFilter(DefaultGapFilterConfig(), nil)
	result := f.Filter(positions)

	require.Len(t, result.Positions, 2)
	assert.Equal(t, 2, result.Statistics.ZeroGapPairs)
}

func TestGapFilter_FirstPingAlwaysAccepted(t *testing.T) {
	positions := []models.Position{ping(0, 120), ping(1, 120)}

	f := NewGapFilter(DefaultGapFilterConfig(), nil)
	result := f.Filter(positions)

	require.NotEmpty(t, result.Positions)
	assert.Equal(t, positions[0].RecordedAt, result.Positions[0].RecordedAt)
}
