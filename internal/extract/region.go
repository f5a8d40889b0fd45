// Package extract post-processes hosted extraction results: mapping report
// locations onto pricing regions and writing result tables to CSV or XLSX.
package extract

import "strings"

// Region groupings for the wholesale price tables. Locations not listed map
// to an empty region and are kept in the output unmapped.
var regionSets = map[string][]string{
	"South China":              {"East Guangdong", "Shenzhen", "Guangzhou", "Zhuhai", "Western Guangdong", "Guangxi", "Hainan"},
	"East China":               {"Jiangsu", "Shanghai", "Zhejiang", "Fujian"},
	"North China":              {"North-East", "South-East", "Shandong"},
	"Northeast China":          {"Dalian*", "West Liaoning**", "Hei Longjiang***"},
	"Rim China Domestic Index": {"South China", "East China"},
}

var locationToRegion = func() map[string]string {
	m := make(map[string]string)
	for region, locations := range regionSets {
		for _, loc := range locations {
			m[loc] = region
		}
	}
	return m
}()

// MapRegion returns the pricing region for a report location, or "" when the
// location is unknown.
func MapRegion(location string) string {
	return locationToRegion[strings.TrimSpace(location)]
}

// Row is one extracted price table row.
type Row struct {
	Region     string
	Location   string
	Price      string
	PostPrices string
}

// Rows converts raw extraction records into rows with regions assigned.
// Record keys match the extraction agent's schema.
func Rows(records []map[string]any) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		location := stringField(r, "Location")
		rows = append(rows, Row{
			Region:     MapRegion(location),
			Location:   location,
			Price:      stringField(r, "Price"),
			PostPrices: stringField(r, "Post Prices"),
		})
	}
	return rows
}

func stringField(r map[string]any, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
