package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlab/telematics-backend/internal/models"
)

func TestDrivingAnalyzer_DetectHarshBraking(t *testing.T) {
	// 60 -> 0 км/ч за 4 секунды = 15 км/ч/с замедления
	positions := []models.Position{
		sample(0, 60, 55.75, 37.61),
		sample(4, 0, 55.75, 37.611),
	}

	a := NewDrivingAnalyzer(nil, nil)
	events := a.DetectEvents(positions)

	require.Len(t, events, 1)
	assert.Equal(t, models.DrivingEventHarshBraking, events[0].Type)
	assert.InDelta(t, 3.0, events[0].Severity, 0.001)
}

func TestDrivingAnalyzer_DetectHarshAcceleration(t *testing.T) {
	// 0 -> 55 км/ч за 5 секунд = 11 км/ч/с разгона
	positions := []models.Position{
		sample(0, 0, 55.75, 37.61),
		sample(5, 55, 55.75, 37.611),
	}

	a := NewDrivingAnalyzer(nil, nil)
	events := a.DetectEvents(positions)

	require.Len(t, events, 1)
	assert.Equal(t, models.DrivingEventHarshAcceleration, events[0].Type)
}

func TestDrivingAnalyzer_DetectSpeeding(t *testing.T) {
	positions := []models.Position{
		sample(0, 100, 55.75, 37.61),
		sample(10, 125, 55.75, 37.62),
	}

	a := NewDrivingAnalyzer(nil, nil)
	events := a.DetectEvents(positions)

	require.Len(t, events, 1)
	assert.Equal(t, models.DrivingEventSpeeding, events[0].Type)
	assert.InDelta(t, 15.0, events[0].Severity, 0.001)
}

func TestDrivingAnalyzer_LargeGapIgnored(t *testing.T) {
	// Дельта 60 км/ч через 10 минут недостоверна
	positions := []models.Position{
		sample(0, 60, 55.75, 37.61),
		sample(600, 0, 55.75, 37.65),
	}

	a := NewDrivingAnalyzer(nil, nil)
	assert.Empty(t, a.DetectEvents(positions))
}

func TestDrivingAnalyzer_ScoreNoEvents(t *testing.T) {
	a := NewDrivingAnalyzer(nil, nil)
	score := a.Score(nil)

	assert.Equal(t, 100.0, score.Score)
	assert.Equal(t, 0, score.TotalEvents)
	assert.Len(t, score.EventCounts, 3)
}

func TestDrivingAnalyzer_ScoreBounds(t *testing.T) {
	// Лавина событий не должна вывести оценку за пределы [0,100]
	var events []models.DrivingEvent
	for i := 0; i < 500; i++ {
		events = append(events, models.DrivingEvent{
			Type:      models.DrivingEventHarshBraking,
			Timestamp: testDay.Add(time.Duration(i) * time.Minute),
			SpeedKph:  80,
		})
	}

	a := NewDrivingAnalyzer(nil, nil)
	score := a.Score(events)

	assert.GreaterOrEqual(t, score.Score, 0.0)
	assert.LessOrEqual(t, score.Score, 100.0)
	assert.Equal(t, 500, score.TotalEvents)
}

func TestDrivingAnalyzer_DiminishingPenalty(t *testing.T) {
	a := NewDrivingAnalyzer(nil, nil)

	one := a.Score([]models.DrivingEvent{
		{Type: models.DrivingEventHarshBraking, Timestamp: testDay},
	})
	two := a.Score([]models.DrivingEvent{
		{Type: models.DrivingEventHarshBraking, Timestamp: testDay},
		{Type: models.DrivingEventHarshBraking, Timestamp: testDay.Add(time.Minute)},
	})

	firstPenalty := 100 - one.Score
	secondPenalty := one.Score - two.Score
	assert.Less(t, secondPenalty, firstPenalty,
		"repeat events in a category must cost less than the first")
	assert.Positive(t, secondPenalty)
}

func TestDrivingAnalyzer_ScoreDailyIndependent(t *testing.T) {
	// День 1 с событиями, день 2 чистый: оценки независимы
	events := []models.DrivingEvent{
		{Type: models.DrivingEventSpeeding, Timestamp: testDay.Add(10 * time.Hour)},
		{Type: models.DrivingEventSpeeding, Timestamp: testDay.Add(11 * time.Hour)},
	}

	a := NewDrivingAnalyzer(nil, nil)
	daily := a.ScoreDaily(events, testDay, testDay.AddDate(0, 0, 2))

	require.Len(t, daily, 2)
	assert.Less(t, daily[0].Score, 100.0)
	assert.Equal(t, 2, daily[0].TotalEvents)
	assert.Equal(t, 100.0, daily[1].Score)
	assert.Equal(t, 0, daily[1].TotalEvents)
}
