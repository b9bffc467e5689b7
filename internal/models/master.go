package models

// District is a row of the districts master table.
type District struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	NameHi string `db:"name_hi" json:"name_hi"`
}

// Crop is a row of crop_master. Codes are unique per season only.
type Crop struct {
	ID     int64  `db:"id" json:"id"`
	Code   string `db:"crop_code" json:"code"`
	Name   string `db:"crop_name" json:"name"`
	Season string `db:"season" json:"season"`
}

type Tehsil struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	DistrictID int64  `db:"district_id" json:"district_id"`
}

// RevenueInspector is a revenue-inspector circle (level 5).
type RevenueInspector struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	TehsilID int64  `db:"tehsil_id" json:"tehsil_id"`
}

type Village struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Code       string `db:"village_code" json:"code"`
	HalkaCode  string `db:"halka_code" json:"halka_code"`
	RICircleID int64  `db:"ri_circle_id" json:"ri_circle_id"`
}

// Hierarchy groups the location tables loaded for one import.
type Hierarchy struct {
	Tehsils           []Tehsil           `json:"tehsils"`
	RevenueInspectors []RevenueInspector `json:"revenue_inspectors"`
	Villages          []Village          `json:"villages"`
}

// MasterData is the read-only reference snapshot an import validates against.
// It is loaded once per import session and never mutated afterwards.
type MasterData struct {
	Districts []District `json:"districts"`
	Crops     []Crop     `json:"crops"`
	Hierarchy Hierarchy  `json:"hierarchy"`
}

// HierarchyRecord is one village with its full administrative path:
// district → tehsil (level 4) → RI circle (level 5) → halka (level 6) → village.
type HierarchyRecord struct {
	DistrictName string `db:"district_name" json:"district_name"`
	Level4Name   string `db:"level4_name" json:"level4_name"`
	Level5Name   string `db:"level5_name" json:"level5_name"`
	Level6Code   string `db:"level6_code" json:"level6_code"`
	VillageName  string `db:"village_name" json:"village_name"`
	VillageCode  string `db:"village_code" json:"village_code"`
}
