package validator

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"krishi-web/internal/models"
)

const (
	IssueRequired  = "required"
	IssueMinLength = "min_length"
	IssueMaxLength = "max_length"
	IssuePattern   = "pattern"

	IssueInconsistentLevel6 = "inconsistent_level6"
	SeverityWarning         = "warning"
)

const DefaultBatchSize = 100

// Issue is a single rule violation on one field.
type Issue struct {
	Field   string `json:"field"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

type RecordResult struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// RecordIssue is an Issue tagged with the record it belongs to.
type RecordIssue struct {
	Index       int    `json:"index"`
	VillageCode string `json:"village_code"`
	Issue
}

type InvalidRecord struct {
	Index  int                    `json:"index"`
	Record models.HierarchyRecord `json:"record"`
	Errors []Issue                `json:"errors"`
}

// DuplicateGroup reports one village code collision: the first record seen
// with the code and the record that repeated it.
type DuplicateGroup struct {
	VillageCode string                   `json:"village_code"`
	Indexes     []int                    `json:"indexes"`
	Records     []models.HierarchyRecord `json:"records"`
}

type ConsistencyIssue struct {
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	DistrictName string   `json:"district_name"`
	Level4Name   string   `json:"level4_name"`
	Level5Name   string   `json:"level5_name"`
	Level6Codes  []string `json:"level6_codes"`
	Message      string   `json:"message"`
}

type ConsistencyReport struct {
	IsConsistent      bool               `json:"is_consistent"`
	Duplicates        []DuplicateGroup   `json:"duplicates"`
	ConsistencyErrors []ConsistencyIssue `json:"consistency_errors"`
	TotalRecords      int                `json:"total_records"`
	UniqueVillages    int                `json:"unique_villages"`
}

type DistrictMismatch struct {
	Index    int                    `json:"index"`
	Record   models.HierarchyRecord `json:"record"`
	Expected string                 `json:"expected"`
	Actual   string                 `json:"actual"`
}

type DistrictReport struct {
	IsValid            bool                     `json:"is_valid"`
	ExpectedDistrict   string                   `json:"expected_district"`
	ValidRecords       []models.HierarchyRecord `json:"valid_records"`
	DistrictMismatches []DistrictMismatch       `json:"district_mismatches"`
	TotalRecords       int                      `json:"total_records"`
	ValidCount         int                      `json:"valid_count"`
	MismatchCount      int                      `json:"mismatch_count"`
}

// BatchOptions controls BatchValidate. Use DefaultBatchOptions as the base.
type BatchOptions struct {
	ExpectedDistrict string
	CheckConsistency bool
	UseCache         bool
	BatchSize        int
	// Yield is slept between chunks so long batches do not hog the caller.
	Yield time.Duration
	// Progress receives the processed percentage after every chunk.
	Progress func(percent int)
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		CheckConsistency: true,
		UseCache:         true,
		BatchSize:        DefaultBatchSize,
	}
}

type BatchReport struct {
	TotalRecords   int                      `json:"total_records"`
	ValidRecords   []models.HierarchyRecord `json:"valid_records"`
	InvalidRecords []InvalidRecord          `json:"invalid_records"`
	Errors         []RecordIssue            `json:"errors"`
	Warnings       []RecordIssue            `json:"warnings"`
	Consistency    *ConsistencyReport       `json:"consistency,omitempty"`
	District       *DistrictReport          `json:"district,omitempty"`
	Chunks         int                      `json:"chunks"`
	CacheHits      int                      `json:"cache_hits"`
	Elapsed        time.Duration            `json:"-"`
	ElapsedMillis  int64                    `json:"elapsed_ms"`
}

// RecordValidator applies a RuleSet to hierarchy records.
type RecordValidator struct {
	rules RuleSet
	cache *ResultCache
}

// NewRecordValidator builds a validator. A nil cache gets a private one.
func NewRecordValidator(rules RuleSet, cache *ResultCache) *RecordValidator {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	if cache == nil {
		cache = NewResultCache()
	}
	return &RecordValidator{rules: rules, cache: cache}
}

func (v *RecordValidator) Cache() *ResultCache {
	return v.cache
}

// ValidateRecord checks every ruled field. A failed required check skips the
// remaining checks for that field only; the other fields are still checked.
func (v *RecordValidator) ValidateRecord(record models.HierarchyRecord) RecordResult {
	result := RecordResult{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	for _, rule := range v.rules {
		name := rule.Field.String()
		value := strings.TrimSpace(rule.Field.Of(record))

		if value == "" {
			if rule.Required {
				result.Errors = append(result.Errors, Issue{
					Field:   name,
					Type:    IssueRequired,
					Message: fmt.Sprintf("%s आवश्यक है", name),
				})
			}
			continue
		}

		length := utf8.RuneCountInString(value)
		if rule.MinLength > 0 && length < rule.MinLength {
			result.Errors = append(result.Errors, Issue{
				Field:   name,
				Type:    IssueMinLength,
				Message: fmt.Sprintf("%s कम से कम %d अक्षर का होना चाहिए", name, rule.MinLength),
				Value:   value,
			})
		}
		if rule.MaxLength > 0 && length > rule.MaxLength {
			result.Warnings = append(result.Warnings, Issue{
				Field:   name,
				Type:    IssueMaxLength,
				Message: fmt.Sprintf("%s %d अक्षर से अधिक है", name, rule.MaxLength),
				Value:   value,
			})
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
			result.Errors = append(result.Errors, Issue{
				Field:   name,
				Type:    IssuePattern,
				Message: rule.Message,
				Value:   value,
			})
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateConsistency looks across the set for repeated village codes and for
// (district, tehsil, RI) groups that disagree on their halka code.
func (v *RecordValidator) ValidateConsistency(records []models.HierarchyRecord) ConsistencyReport {
	report := ConsistencyReport{
		Duplicates:        []DuplicateGroup{},
		ConsistencyErrors: []ConsistencyIssue{},
		TotalRecords:      len(records),
	}

	firstSeen := make(map[string]int)
	for i, r := range records {
		code := strings.TrimSpace(r.VillageCode)
		if code == "" {
			continue
		}
		if j, ok := firstSeen[code]; ok {
			report.Duplicates = append(report.Duplicates, DuplicateGroup{
				VillageCode: code,
				Indexes:     []int{j, i},
				Records:     []models.HierarchyRecord{records[j], r},
			})
			continue
		}
		firstSeen[code] = i
	}
	report.UniqueVillages = len(firstSeen)

	type groupKey struct{ district, level4, level5 string }
	var order []groupKey
	codes := make(map[groupKey][]string)
	for _, r := range records {
		key := groupKey{
			district: strings.TrimSpace(r.DistrictName),
			level4:   strings.TrimSpace(r.Level4Name),
			level5:   strings.TrimSpace(r.Level5Name),
		}
		if _, ok := codes[key]; !ok {
			order = append(order, key)
			codes[key] = []string{}
		}
		code := strings.TrimSpace(r.Level6Code)
		if code != "" && !contains(codes[key], code) {
			codes[key] = append(codes[key], code)
		}
	}
	for _, key := range order {
		if len(codes[key]) <= 1 {
			continue
		}
		report.ConsistencyErrors = append(report.ConsistencyErrors, ConsistencyIssue{
			Type:         IssueInconsistentLevel6,
			Severity:     SeverityWarning,
			DistrictName: key.district,
			Level4Name:   key.level4,
			Level5Name:   key.level5,
			Level6Codes:  codes[key],
			Message: fmt.Sprintf("%s / %s / %s में एक से अधिक हल्का नंबर: %s",
				key.district, key.level4, key.level5, strings.Join(codes[key], ", ")),
		})
	}

	report.IsConsistent = len(report.Duplicates) == 0 && len(report.ConsistencyErrors) == 0
	return report
}

// ValidateAgainstExpectedDistrict splits records by whether they belong to
// expected. Mismatches are reported, never treated as failures.
func (v *RecordValidator) ValidateAgainstExpectedDistrict(records []models.HierarchyRecord, expected string) DistrictReport {
	expected = strings.TrimSpace(expected)
	report := DistrictReport{
		ExpectedDistrict:   expected,
		ValidRecords:       []models.HierarchyRecord{},
		DistrictMismatches: []DistrictMismatch{},
		TotalRecords:       len(records),
	}

	for i, r := range records {
		actual := strings.TrimSpace(r.DistrictName)
		if actual == expected {
			report.ValidRecords = append(report.ValidRecords, r)
			continue
		}
		report.DistrictMismatches = append(report.DistrictMismatches, DistrictMismatch{
			Index:    i,
			Record:   r,
			Expected: expected,
			Actual:   actual,
		})
	}

	report.ValidCount = len(report.ValidRecords)
	report.MismatchCount = len(report.DistrictMismatches)
	report.IsValid = report.MismatchCount == 0
	return report
}

// BatchValidate validates records chunk by chunk, reporting progress after
// each chunk and yielding between chunks.
func (v *RecordValidator) BatchValidate(records []models.HierarchyRecord, opts BatchOptions) BatchReport {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	report := BatchReport{
		TotalRecords:   len(records),
		ValidRecords:   []models.HierarchyRecord{},
		InvalidRecords: []InvalidRecord{},
		Errors:         []RecordIssue{},
		Warnings:       []RecordIssue{},
	}

	for offset := 0; offset < len(records); offset += opts.BatchSize {
		end := offset + opts.BatchSize
		if end > len(records) {
			end = len(records)
		}

		for i := offset; i < end; i++ {
			record := records[i]
			result, hit := v.validateCached(record, opts.UseCache)
			if hit {
				report.CacheHits++
			}

			for _, issue := range result.Errors {
				report.Errors = append(report.Errors, RecordIssue{Index: i, VillageCode: record.VillageCode, Issue: issue})
			}
			for _, issue := range result.Warnings {
				report.Warnings = append(report.Warnings, RecordIssue{Index: i, VillageCode: record.VillageCode, Issue: issue})
			}

			if result.IsValid {
				report.ValidRecords = append(report.ValidRecords, record)
			} else {
				report.InvalidRecords = append(report.InvalidRecords, InvalidRecord{Index: i, Record: record, Errors: result.Errors})
			}
		}
		report.Chunks++

		if opts.Progress != nil {
			opts.Progress(end * 100 / len(records))
		}

		if end < len(records) {
			runtime.Gosched()
			if opts.Yield > 0 {
				time.Sleep(opts.Yield)
			}
		}
	}

	if opts.CheckConsistency {
		consistency := v.ValidateConsistency(records)
		report.Consistency = &consistency
	}
	if strings.TrimSpace(opts.ExpectedDistrict) != "" {
		district := v.ValidateAgainstExpectedDistrict(records, opts.ExpectedDistrict)
		report.District = &district
	}

	report.Elapsed = time.Since(start)
	report.ElapsedMillis = report.Elapsed.Milliseconds()
	return report
}

func (v *RecordValidator) validateCached(record models.HierarchyRecord, useCache bool) (RecordResult, bool) {
	if !useCache {
		return v.ValidateRecord(record), false
	}

	key := CacheKey(record)
	if cached, ok := v.cache.Get(key); ok {
		return cached, true
	}
	result := v.ValidateRecord(record)
	v.cache.Put(key, result)
	return result, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
