package validator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"krishi-web/internal/models"

	"github.com/stretchr/testify/assert"
)

func knownPool() []models.HierarchyRecord {
	return []models.HierarchyRecord{
		{DistrictName: "Raipur", Level4Name: "Abhanpur", Level5Name: "Gobra", Level6Code: "12", VillageName: "Kendri", VillageCode: "RP1001"},
		{DistrictName: "Raipur", Level4Name: "Abhanpur", Level5Name: "Gobra", Level6Code: "12", VillageName: "Kendri Khurd", VillageCode: "RP1002"},
		{DistrictName: "Raipur", Level4Name: "Arang", Level5Name: "Mandir Hasod", Level6Code: "7", VillageName: "Chandkhuri", VillageCode: "RP2001"},
		{DistrictName: "Durg", Level4Name: "Patan", Level5Name: "Jamgaon", Level6Code: "3", VillageName: "Selud", VillageCode: "DG3001"},
	}
}

func TestSuggestFromSimilarRecords(t *testing.T) {
	s := NewCorrectionSuggester()
	invalid := models.HierarchyRecord{DistrictName: "Raypur", VillageName: "Kendri", VillageCode: "RP1001"}

	got := s.Suggest(invalid, knownPool())

	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"Raipur"}, got.DistrictName[:1])
	assert.Equal(t, "Abhanpur", got.Level4Name[0])
	assert.Equal(t, "Gobra", got.Level5Name[0])
	assert.Equal(t, "12", got.Level6Code[0])
	assert.InDelta(t, float64(got.SimilarCount)/10, got.Confidence, 1e-9)
	assert.Greater(t, got.SimilarCount, 0)
}

func TestSuggestFallsBackToMostFrequent(t *testing.T) {
	s := NewCorrectionSuggester()
	invalid := models.HierarchyRecord{VillageName: "zzzzzzzzzzzzzzzz", VillageCode: "QQQQQQQQQQQQ"}

	got := s.Suggest(invalid, knownPool())

	assert.True(t, got.Fallback)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, []string{"Raipur", "Durg"}, got.DistrictName)
	assert.Equal(t, []string{"Abhanpur", "Arang", "Patan"}, got.Level4Name)
	assert.Equal(t, "12", got.Level6Code[0])
}

func TestSuggestLimitsAndConfidenceCap(t *testing.T) {
	s := NewCorrectionSuggester()
	var pool []models.HierarchyRecord
	for i := 0; i < 12; i++ {
		pool = append(pool, models.HierarchyRecord{
			DistrictName: fmt.Sprintf("D%d", i),
			Level4Name:   fmt.Sprintf("T%d", i),
			Level5Name:   fmt.Sprintf("R%d", i),
			Level6Code:   fmt.Sprintf("%d", i),
			VillageName:  "Kendri",
			VillageCode:  fmt.Sprintf("RP10%02d", i),
		})
	}

	got := s.Suggest(models.HierarchyRecord{VillageName: "Kendri", VillageCode: "RP1000"}, pool)

	assert.Len(t, got.DistrictName, 3)
	assert.Len(t, got.Level4Name, 5)
	assert.Len(t, got.Level5Name, 5)
	assert.Len(t, got.Level6Code, 3)
	assert.Equal(t, []string{"D0", "D1", "D2"}, got.DistrictName)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestSuggestEmptyPool(t *testing.T) {
	got := NewCorrectionSuggester().Suggest(models.HierarchyRecord{VillageName: "x"}, nil)

	assert.True(t, got.Fallback)
	assert.Empty(t, got.DistrictName)
	assert.Zero(t, got.Confidence)
}

func TestResultCacheClearOn(t *testing.T) {
	cache := NewResultCache()
	cache.Put("k", RecordResult{IsValid: true})
	assert.Equal(t, 1, cache.Len())

	tick := make(chan time.Time)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		cache.ClearOn(ctx, tick)
		close(done)
	}()

	tick <- time.Now()
	cancel()
	<-done

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("k")
	assert.False(t, ok)
}
