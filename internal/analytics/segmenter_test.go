package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/telematics-backend/internal/models"
)

var testDay = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

// sample строит пинг со смещением в секундах от начала тестовых суток
func sample(offsetSec int, speedKph float64, lat, lon float64) models.Position {
	return models.Position{
		DeviceID:   "dev-1",
		RecordedAt: testDay.Add(time.Duration(offsetSec) * time.Second),
		Point:      models.GeoPoint{Latitude: lat, Longitude: lon},
		SpeedKph:   &speedKph,
	}
}

// движущаяся колонна сэмплов: каждые 10с, скорость 40 км/ч, смещение по долготе
func drivingRun(fromSec, toSec int) []models.Position {
	var out []models.Position
	for s := fromSec; s <= toSec; s += 10 {
		out = append(out, sample(s, 40, 55.75, 37.61+float64(s)*0.00002))
	}
	return out
}

// стоящая колонна сэмплов: каждые 30с, скорость 0, одна точка
func stoppedRun(fromSec, toSec int) []models.Position {
	var out []models.Position
	for s := fromSec; s <= toSec; s += 30 {
		out = append(out, sample(s, 0, 55.75, 37.61))
	}
	return out
}

func assertTilesDay(t *testing.T, segments []models.Segment) {
	t.Helper()
	require.NotEmpty(t, segments)

	dayStart := testDay
	dayEnd := testDay.AddDate(0, 0, 1)

	assert.True(t, segments[0].StartAt.Equal(dayStart), "first segment must start at day start")
	assert.True(t, segments[len(segments)-1].EndAt.Equal(dayEnd), "last segment must end at day end")

	var total int64
	for i, seg := range segments {
		total += seg.DurationSec
		if i > 0 {
			assert.True(t, seg.StartAt.Equal(segments[i-1].EndAt),
				"segment %d must start where segment %d ends", i, i-1)
		}
	}
	assert.Equal(t, int64(24*3600), total, "segment durations must sum to 24 hours")
}

func TestTripSegmenter_EmptyDay(t *testing.T) {
	s := NewTripSegmenter(nil, nil)

	segments := s.Segment(nil, testDay)

	require.Len(t, segments, 1)
	assert.Equal(t, models.SegmentStop, segments[0].Type)
	assert.Equal(t, 0, segments[0].SampleCount)
	assert.Equal(t, int64(24*3600), segments[0].DurationSec)
	assertTilesDay(t, segments)
}

func TestTripSegmenter_DriveThenStop(t *testing.T) {
	// Движение 08:00-08:30, затем стоянка до 09:00
	var positions []models.Position
	positions = append(positions, drivingRun(8*3600, 8*3600+30*60)...)
	positions = append(positions, stoppedRun(8*3600+30*60+10, 9*3600)...)

	s := NewTripSegmenter(nil, nil)
	segments := s.Segment(positions, testDay)

	assertTilesDay(t, segments)

	var drives, stops []models.Segment
	for _, seg := range segments {
		if seg.Type == models.SegmentDrive {
			drives = append(drives, seg)
		} else {
			stops = append(stops, seg)
		}
	}

	require.Len(t, drives, 1)
	assert.Positive(t, drives[0].DistanceKm)
	require.NotNil(t, drives[0].AvgSpeedKph)
	assert.InDelta(t, 40.0, *drives[0].AvgSpeedKph, 1.0)
	require.NotNil(t, drives[0].MaxSpeedKph)
	assert.Equal(t, 40.0, *drives[0].MaxSpeedKph)

	// Тишина до 08:00 и после 09:00 представлена Stop-сегментами без сэмплов
	assert.Equal(t, 0, segments[0].SampleCount)
	assert.Equal(t, models.SegmentStop, segments[0].Type)
	assert.Equal(t, 0, segments[len(segments)-1].SampleCount)
}

func TestTripSegmenter_ShortStopDoesNotSplitDrive(t *testing.T) {
	// Остановка на 60с короче минимальной длительности (120с): сегмент
	// движения не должен разрываться
	var positions []models.Position
	positions = append(positions, drivingRun(8*3600, 8*3600+300)...)
	positions = append(positions, sample(8*3600+330, 0, 55.75, 37.62))
	positions = append(positions, sample(8*3600+360, 0, 55.75, 37.62))
	positions = append(positions, drivingRun(8*3600+390, 8*3600+700)...)

	s := NewTripSegmenter(nil, nil)
	segments := s.Segment(positions, testDay)

	assertTilesDay(t, segments)

	driveCount := 0
	for _, seg := range segments {
		if seg.Type == models.SegmentDrive {
			driveCount++
		}
	}
	assert.Equal(t, 1, driveCount, "short stop must not split the drive segment")
}

func TestTripSegmenter_SustainedStopSplits(t *testing.T) {
	// Стоянка 10 минут: движение должно закрыться на первом стоячем сэмпле
	var positions []models.Position
	positions = append(positions, drivingRun(8*3600, 8*3600+300)...)
	positions = append(positions, stoppedRun(8*3600+310, 8*3600+910)...)
	positions = append(positions, drivingRun(8*3600+920, 8*3600+1200)...)

	s := NewTripSegmenter(nil, nil)
	segments := s.Segment(positions, testDay)

	assertTilesDay(t, segments)

	var types []models.SegmentType
	for _, seg := range segments {
		if seg.SampleCount > 0 {
			types = append(types, seg.Type)
		}
	}
	assert.Equal(t, []models.SegmentType{
		models.SegmentDrive, models.SegmentStop, models.SegmentDrive,
	}, types)
}

func TestTripSegmenter_IgnitionOffForcesStop(t *testing.T) {
	off := false
	var positions []models.Position
	positions = append(positions, drivingRun(8*3600, 8*3600+300)...)
	// Скорость остается высокой (дрейф GPS), но зажигание выключено
	for s := 8*3600 + 310; s <= 8*3600+610; s += 30 {
		p := sample(s, 20, 55.75, 37.62)
		p.IgnitionOn = &off
		positions = append(positions, p)
	}

	seg := NewTripSegmenter(nil, nil)
	segments := seg.Segment(positions, testDay)

	assertTilesDay(t, segments)

	hasStopWithSamples := false
	for _, s := range segments {
		if s.Type == models.SegmentStop && s.SampleCount > 0 {
			hasStopWithSamples = true
		}
	}
	assert.True(t, hasStopWithSamples, "ignition off must force a stop segment")
}

func TestTripSegmenter_OfflineGapBecomesSilentStop(t *testing.T) {
	// Телеметрия пропадает на 2 часа посреди дня
	var positions []models.Position
	positions = append(positions, drivingRun(8*3600, 8*3600+600)...)
	positions = append(positions, drivingRun(11*3600, 11*3600+600)...)

	s := NewTripSegmenter(nil, nil)
	segments := s.Segment(positions, testDay)

	assertTilesDay(t, segments)

	foundSilent := false
	for _, seg := range segments {
		if seg.SampleCount == 0 && seg.DurationSec > 10000 && seg.DurationSec < 10500 {
			foundSilent = true
			assert.Equal(t, models.SegmentStop, seg.Type)
		}
	}
	assert.True(t, foundSilent, "offline gap must become a silent stop segment")
}

func TestTripSegmenter_OdometerPreferredForDistance(t *testing.T) {
	positions := drivingRun(8*3600, 8*3600+600)
	for i := range positions {
		odo := 1000.0 + float64(i)*0.2
		positions[i].OdometerKm = &odo
	}

	s := NewTripSegmenter(nil, nil)
	segments := s.Segment(positions, testDay)

	assertTilesDay(t, segments)

	for _, seg := range segments {
		if seg.Type == models.SegmentDrive {
			expected := 0.2 * float64(len(positions)-1)
			assert.InDelta(t, expected, seg.DistanceKm, 0.001)
		}
	}
}
