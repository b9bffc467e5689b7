package validator

import (
	"regexp"

	"krishi-web/internal/models"
)

// Field identifies a HierarchyRecord attribute covered by a rule.
type Field int

const (
	FieldDistrictName Field = iota
	FieldLevel4Name
	FieldLevel5Name
	FieldLevel6Code
	FieldVillageName
	FieldVillageCode
)

var fieldNames = map[Field]string{
	FieldDistrictName: "district_name",
	FieldLevel4Name:   "level4_name",
	FieldLevel5Name:   "level5_name",
	FieldLevel6Code:   "level6_code",
	FieldVillageName:  "village_name",
	FieldVillageCode:  "village_code",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// Of returns the value of f on r.
func (f Field) Of(r models.HierarchyRecord) string {
	switch f {
	case FieldDistrictName:
		return r.DistrictName
	case FieldLevel4Name:
		return r.Level4Name
	case FieldLevel5Name:
		return r.Level5Name
	case FieldLevel6Code:
		return r.Level6Code
	case FieldVillageName:
		return r.VillageName
	case FieldVillageCode:
		return r.VillageCode
	}
	return ""
}

// Rule describes the constraints on a single field. Zero lengths disable the
// corresponding check.
type Rule struct {
	Field     Field
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Message   string
}

// RuleSet is evaluated in order.
type RuleSet []Rule

// DefaultRuleSet is the location hierarchy rule table.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		{
			Field:     FieldDistrictName,
			Required:  true,
			MinLength: 2,
			MaxLength: 50,
			Pattern:   regexp.MustCompile(`^[\p{L}\p{M}\s]+$`),
			Message:   "जिले का नाम केवल अक्षर और रिक्त स्थान हो सकता है",
		},
		{
			Field:     FieldLevel4Name,
			Required:  true,
			MinLength: 2,
			MaxLength: 100,
			Message:   "तहसील का नाम आवश्यक है",
		},
		{
			Field:     FieldLevel5Name,
			Required:  true,
			MinLength: 2,
			MaxLength: 100,
			Message:   "रा.नि.मं. का नाम आवश्यक है",
		},
		{
			Field:     FieldLevel6Code,
			Required:  false,
			MaxLength: 20,
			Message:   "पटवारी हल्का नंबर",
		},
		{
			Field:     FieldVillageName,
			Required:  true,
			MinLength: 2,
			MaxLength: 100,
			Message:   "ग्राम का नाम आवश्यक है",
		},
		{
			Field:     FieldVillageCode,
			Required:  true,
			MaxLength: 20,
			Pattern:   regexp.MustCompile(`^[A-Za-z0-9]+$`),
			Message:   "ग्राम कोड केवल अक्षर और अंक हो सकता है",
		},
	}
}
