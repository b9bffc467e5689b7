package service

import (
	"context"
	"errors"
	"testing"

	"krishi-web/internal/models"
	"krishi-web/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHierarchySource struct {
	records  []models.HierarchyRecord
	err      error
	district string
	calls    int
}

func (f *fakeHierarchySource) ListHierarchyRecords(ctx context.Context, districtName string) ([]models.HierarchyRecord, error) {
	f.calls++
	f.district = districtName
	return f.records, f.err
}

func knownPool() []models.HierarchyRecord {
	return []models.HierarchyRecord{
		{DistrictName: "Raipur", Level4Name: "Abhanpur", Level5Name: "Gobra Navapara", Level6Code: "12", VillageName: "Kendri", VillageCode: "RP1001"},
		{DistrictName: "Raipur", Level4Name: "Arang", Level5Name: "Mandir Hasod", Level6Code: "7", VillageName: "Chandkhuri", VillageCode: "AR9957"},
	}
}

func TestHierarchyService_SuggestLoadsPoolFromStore(t *testing.T) {
	source := &fakeHierarchySource{records: knownPool()}
	svc := NewHierarchyService(source, nil, testLogger())

	got, err := svc.Suggest(context.Background(), models.HierarchyRecord{VillageName: "Kendri", VillageCode: "RP1002"}, nil, "Raipur")

	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, "Raipur", source.district)
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"Abhanpur"}, got.Level4Name)
}

func TestHierarchyService_SuggestUsesGivenPool(t *testing.T) {
	source := &fakeHierarchySource{err: errors.New("unused")}
	svc := NewHierarchyService(source, nil, testLogger())

	_, err := svc.Suggest(context.Background(), models.HierarchyRecord{VillageName: "Kendri"}, knownPool(), "")

	require.NoError(t, err)
	assert.Zero(t, source.calls)
}

func TestHierarchyService_SuggestStoreFailure(t *testing.T) {
	boom := errors.New("timeout")
	svc := NewHierarchyService(&fakeHierarchySource{err: boom}, nil, testLogger())

	_, err := svc.Suggest(context.Background(), models.HierarchyRecord{}, nil, "Raipur")
	assert.ErrorIs(t, err, boom)
}

func TestHierarchyService_Validate(t *testing.T) {
	svc := NewHierarchyService(nil, nil, testLogger())
	records := append(knownPool(), models.HierarchyRecord{DistrictName: "Raipur", VillageName: "X", VillageCode: "RP1001"})

	opts := validator.DefaultBatchOptions()
	opts.ExpectedDistrict = "Raipur"
	report := svc.Validate(records, opts)

	assert.Equal(t, 3, report.TotalRecords)
	assert.Len(t, report.ValidRecords, 2)
	assert.Len(t, report.InvalidRecords, 1)
	require.NotNil(t, report.Consistency)
	assert.Len(t, report.Consistency.Duplicates, 1)
	require.NotNil(t, report.District)
	assert.True(t, report.District.IsValid)
}

func TestHierarchyRecordsFromRows(t *testing.T) {
	rows := []models.ImportRow{validRow()}

	got := HierarchyRecordsFromRows(rows)

	require.Len(t, got, 1)
	assert.Equal(t, models.HierarchyRecord{
		DistrictName: "Raipur",
		Level4Name:   "Abhanpur",
		Level5Name:   "Gobra Navapara",
		Level6Code:   "12",
		VillageName:  "Kendri",
		VillageCode:  "RP1001",
	}, got[0])
}
