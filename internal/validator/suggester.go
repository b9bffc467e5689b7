package validator

import (
	"math"
	"sort"
	"strings"

	"krishi-web/internal/models"
)

const (
	maxDistrictSuggestions = 3
	maxLevel4Suggestions   = 5
	maxLevel5Suggestions   = 5
	maxLevel6Suggestions   = 3
)

type Suggestions struct {
	DistrictName []string `json:"district_name"`
	Level4Name   []string `json:"level4_name"`
	Level5Name   []string `json:"level5_name"`
	Level6Code   []string `json:"level6_code"`
	Confidence   float64  `json:"confidence"`
	SimilarCount int      `json:"similar_count"`
	Fallback     bool     `json:"fallback"`
}

// CorrectionSuggester proposes hierarchy values for a record that failed
// validation, based on known-good records with a similar village.
type CorrectionSuggester struct {
	Threshold  float64
	NameWeight float64
	CodeWeight float64
}

func NewCorrectionSuggester() *CorrectionSuggester {
	return &CorrectionSuggester{
		Threshold:  0.3,
		NameWeight: 0.4,
		CodeWeight: 0.6,
	}
}

// Score is the weighted village name/code similarity of two records.
func (s *CorrectionSuggester) Score(a, b models.HierarchyRecord) float64 {
	name := Similarity(NormalizeName(a.VillageName), NormalizeName(b.VillageName))
	code := Similarity(NormalizeName(a.VillageCode), NormalizeName(b.VillageCode))
	return s.NameWeight*name + s.CodeWeight*code
}

// Suggest never fails: with no similar record it falls back to the most
// frequent values of the whole pool, with zero confidence.
func (s *CorrectionSuggester) Suggest(invalid models.HierarchyRecord, known []models.HierarchyRecord) Suggestions {
	var similar []models.HierarchyRecord
	for _, r := range known {
		if s.Score(invalid, r) > s.Threshold {
			similar = append(similar, r)
		}
	}

	if len(similar) == 0 {
		return Suggestions{
			DistrictName: mostFrequent(known, FieldDistrictName, maxDistrictSuggestions),
			Level4Name:   mostFrequent(known, FieldLevel4Name, maxLevel4Suggestions),
			Level5Name:   mostFrequent(known, FieldLevel5Name, maxLevel5Suggestions),
			Level6Code:   mostFrequent(known, FieldLevel6Code, maxLevel6Suggestions),
			Fallback:     true,
		}
	}

	return Suggestions{
		DistrictName: distinct(similar, FieldDistrictName, maxDistrictSuggestions),
		Level4Name:   distinct(similar, FieldLevel4Name, maxLevel4Suggestions),
		Level5Name:   distinct(similar, FieldLevel5Name, maxLevel5Suggestions),
		Level6Code:   distinct(similar, FieldLevel6Code, maxLevel6Suggestions),
		Confidence:   math.Min(float64(len(similar))/10.0, 1.0),
		SimilarCount: len(similar),
	}
}

// distinct keeps first-occurrence order.
func distinct(records []models.HierarchyRecord, f Field, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, r := range records {
		v := strings.TrimSpace(f.Of(r))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// mostFrequent orders by count descending, ties by first occurrence.
func mostFrequent(records []models.HierarchyRecord, f Field, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		v := strings.TrimSpace(f.Of(r))
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		return []string{}
	}
	return order
}
