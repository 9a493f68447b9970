package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/telematics-backend/internal/models"
)

func TestMileageAggregator_DenseBuckets(t *testing.T) {
	a := NewMileageAggregator(nil, nil)
	start := testDay
	end := testDay.AddDate(0, 0, 1)

	buckets := a.Aggregate(nil, start, end, models.PeriodHour)

	require.Len(t, buckets, 24)
	for i, b := range buckets {
		assert.Equal(t, start.Add(time.Duration(i)*time.Hour), b.PeriodStart)
		assert.Equal(t, 0.0, b.DistanceKm)
		assert.Equal(t, 0, b.SampleCount)
	}
}

func TestMileageAggregator_HourBucketsSumToDay(t *testing.T) {
	// Движение с 08:00 до 10:30: плечи на границах часов не должны теряться
	positions := drivingRun(8*3600, 10*3600+30*60)

	a := NewMileageAggregator(nil, nil)
	start := testDay
	end := testDay.AddDate(0, 0, 1)

	hours := a.Aggregate(positions, start, end, models.PeriodHour)
	days := a.Aggregate(positions, start, end, models.PeriodDay)

	require.Len(t, days, 1)
	require.Len(t, hours, 24)

	var hourSum float64
	for _, b := range hours {
		hourSum += b.GpsDistanceKm
	}
	assert.InDelta(t, days[0].GpsDistanceKm, hourSum, 1e-9,
		"hour buckets must sum exactly to the day bucket")
	assert.Positive(t, hourSum)
}

func TestMileageAggregator_DayBucketsSumToMonth(t *testing.T) {
	var positions []models.Position
	for d := 0; d < 5; d++ {
		day := drivingRun(8*3600, 9*3600)
		for i := range day {
			day[i].RecordedAt = day[i].RecordedAt.AddDate(0, 0, d)
		}
		positions = append(positions, day...)
	}

	a := NewMileageAggregator(nil, nil)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	days := a.Aggregate(positions, start, end, models.PeriodDay)
	months := a.Aggregate(positions, start, end, models.PeriodMonth)

	require.Len(t, months, 1)
	require.Len(t, days, 30)

	var daySum float64
	for _, b := range days {
		daySum += b.GpsDistanceKm
	}
	assert.InDelta(t, months[0].GpsDistanceKm, daySum, 1e-9)
}

func TestMileageAggregator_OdometerReconciliation(t *testing.T) {
	positions := drivingRun(8*3600, 9*3600)
	// Одометр дает 20 км, GPS существенно меньше: предпочитается одометр,
	// GPS-значение остается для диагностики
	for i := range positions {
		odo := 5000.0 + float64(i)*20.0/float64(len(positions)-1)
		positions[i].OdometerKm = &odo
	}

	a := NewMileageAggregator(DefaultMileageConfig(), nil)
	buckets := a.Aggregate(positions, testDay, testDay.AddDate(0, 0, 1), models.PeriodDay)

	require.Len(t, buckets, 1)
	b := buckets[0]
	require.NotNil(t, b.OdometerDeltaKm)
	assert.InDelta(t, 20.0, *b.OdometerDeltaKm, 0.001)
	assert.InDelta(t, 20.0, b.DistanceKm, 0.001)
	assert.Less(t, b.GpsDistanceKm, 20.0)
	assert.Positive(t, b.GpsDistanceKm)
}

func TestMileageAggregator_DecreasingOdometerIgnored(t *testing.T) {
	positions := drivingRun(8*3600, 9*3600)
	for i := range positions {
		odo := 5000.0 - float64(i) // сброс/замена устройства
		positions[i].OdometerKm = &odo
	}

	a := NewMileageAggregator(nil, nil)
	buckets := a.Aggregate(positions, testDay, testDay.AddDate(0, 0, 1), models.PeriodDay)

	require.Len(t, buckets, 1)
	assert.Nil(t, buckets[0].OdometerDeltaKm)
	assert.Equal(t, buckets[0].GpsDistanceKm, buckets[0].DistanceKm)
}

func TestMileageAggregator_EmptyRange(t *testing.T) {
	a := NewMileageAggregator(nil, nil)
	assert.Empty(t, a.Aggregate(nil, testDay, testDay, models.PeriodDay))
	assert.Empty(t, a.Aggregate(nil, testDay.AddDate(0, 0, 1), testDay, models.PeriodHour))
}
