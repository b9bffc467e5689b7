package service

import (
	"strings"

	"krishi-web/internal/models"
	"krishi-web/internal/validator"
)

// masterIndex answers the lookups row validation needs without rescanning
// the master tables for every row.
type masterIndex struct {
	districts       map[string]models.District
	crops           map[string][]models.Crop
	tehsilsDistrict map[int64]map[string]bool
}

func newMasterIndex(m *models.MasterData) *masterIndex {
	idx := &masterIndex{
		districts:       make(map[string]models.District, len(m.Districts)),
		crops:           make(map[string][]models.Crop, len(m.Crops)),
		tehsilsDistrict: make(map[int64]map[string]bool),
	}

	for _, d := range m.Districts {
		idx.districts[validator.NormalizeName(d.Name)] = d
		if d.NameHi != "" {
			idx.districts[validator.NormalizeName(d.NameHi)] = d
		}
	}
	for _, c := range m.Crops {
		code := strings.TrimSpace(c.Code)
		idx.crops[code] = append(idx.crops[code], c)
	}
	for _, t := range m.Hierarchy.Tehsils {
		if idx.tehsilsDistrict[t.DistrictID] == nil {
			idx.tehsilsDistrict[t.DistrictID] = make(map[string]bool)
		}
		idx.tehsilsDistrict[t.DistrictID][validator.NormalizeName(t.Name)] = true
	}

	return idx
}

// district matches case-insensitively on the trimmed name.
func (idx *masterIndex) district(name string) (models.District, bool) {
	d, ok := idx.districts[validator.NormalizeName(name)]
	return d, ok
}

// crop requires an exact code match within the given season.
func (idx *masterIndex) crop(code, season string) (models.Crop, bool) {
	for _, c := range idx.crops[strings.TrimSpace(code)] {
		if strings.EqualFold(strings.TrimSpace(c.Season), strings.TrimSpace(season)) {
			return c, true
		}
	}
	return models.Crop{}, false
}

func (idx *masterIndex) tehsilInDistrict(tehsil string, districtID int64) bool {
	return idx.tehsilsDistrict[districtID][validator.NormalizeName(tehsil)]
}
