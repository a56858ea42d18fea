package epw

import (
	"fmt"
	"strconv"
	"strings"
)

// Header block names, in file order.
const (
	BlockLocation          = "LOCATION"
	BlockDesignConditions  = "DESIGN CONDITIONS"
	BlockTypicalPeriods    = "TYPICAL/EXTREME PERIODS"
	BlockGroundTemps       = "GROUND TEMPERATURES"
	BlockHolidays          = "HOLIDAYS/DAYLIGHT SAVINGS"
	BlockComments1         = "COMMENTS 1"
	BlockComments2         = "COMMENTS 2"
	BlockDataPeriods       = "DATA PERIODS"
	placeholderWMO         = "XXX"
	locationFieldCount     = 9
	locationLatitudeIndex  = 5
	locationLongitudeIndex = 6
	locationTimeZoneIndex  = 7
	locationElevationIndex = 8
)

// BlockOrder lists the header blocks every file carries.
var BlockOrder = []string{
	BlockLocation, BlockDesignConditions, BlockTypicalPeriods, BlockGroundTemps,
	BlockHolidays, BlockComments1, BlockComments2, BlockDataPeriods,
}

var (
	designConditions = []string{
		"1", "Climate Design Data 2009 ASHRAE Handbook", "", "Heating", "1", "3.8", "4.9", "-3.7", "2.8", "10.7",
		"-1.2", "3.4", "11.2", "12.9", "12.1", "11.6", "12.2", "2.2", "150", "Cooling", "8", "8.5", "28.3", "17.2",
		"25.7", "16.7", "23.6", "16.2", "18.6", "25.7", "17.8", "23.9", "17", "22.4", "5.9", "310", "16.1", "11.5",
		"19.9", "15.3", "10.9", "19.2", "14.7", "10.4", "18.7", "52.4", "25.8", "49.8", "23.8", "47.6", "22.4",
		"2038", "Extremes", "12.8", "11.5", "10.6", "22.3", "1.8", "34.6", "1.5", "2.3", "0.8", "36.2", "-0.1",
		"37.5", "-0.9", "38.8", "-1.9", "40.5",
	}
	typicalPeriods = []string{
		"6",
		"Summer - Week Nearest Max Temperature For Period", "Extreme", "8/ 1", "8/ 7",
		"Summer - Week Nearest Average Temperature For Period", "Typical", "9/ 5", "9/11",
		"Winter - Week Nearest Min Temperature For Period", "Extreme", "2/ 1", "2/ 7",
		"Winter - Week Nearest Average Temperature For Period", "Typical", "2/15", "2/21",
		"Autumn - Week Nearest Average Temperature For Period", "Typical", "12/ 6", "12/12",
		"Spring - Week Nearest Average Temperature For Period", "Typical", "5/29", "6/ 4",
	}
	groundTemperatures = []string{
		"3",
		".5", "", "", "", "10.86", "10.57", "11.08", "11.88", "13.97", "15.58", "16.67", "17.00", "16.44", "15.19", "13.51", "11.96",
		"2", "", "", "", "11.92", "11.41", "11.51", "11.93", "13.33", "14.60", "15.61", "16.15", "16.03", "15.32", "14.17", "12.95",
		"4", "", "", "", "12.79", "12.27", "12.15", "12.31", "13.10", "13.96", "14.74", "15.28", "15.41", "15.10", "14.42", "13.60",
	}
	holidays    = []string{"No", "0", "0", "0"}
	comments2   = []string{"https://es.aap.cornell.edu/", "https://github.com/kastnerp/NREL-PSB3-2-EPW"}
	dataPeriods = []string{"1", "1", "Data", "Sunday", " 1/ 1", "12/31"}
)

// Location is the parameterized part of the header.
type Location struct {
	City      string
	State     string
	Country   string
	Source    string
	WMO       string
	Latitude  float64
	Longitude float64
	TimeZone  float64
	Elevation float64
}

// Block is one header line: a name and its fields.
type Block struct {
	Name   string
	Fields []string
}

// Header is the ordered list of header blocks.
type Header struct {
	Blocks []Block
}

// NewHeader builds the standard header for loc. Only LOCATION and COMMENTS 1
// vary between files; the other blocks are fixed boilerplate.
func NewHeader(loc Location) Header {
	wmo := loc.WMO
	if wmo == "" {
		wmo = placeholderWMO
	}
	return Header{Blocks: []Block{
		{Name: BlockLocation, Fields: []string{
			clean(loc.City), clean(loc.State), clean(loc.Country), clean(loc.Source), clean(wmo),
			strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
			strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
			strconv.FormatFloat(loc.TimeZone, 'f', -1, 64),
			strconv.FormatFloat(loc.Elevation, 'f', -1, 64),
		}},
		{Name: BlockDesignConditions, Fields: copyFields(designConditions)},
		{Name: BlockTypicalPeriods, Fields: copyFields(typicalPeriods)},
		{Name: BlockGroundTemps, Fields: copyFields(groundTemperatures)},
		{Name: BlockHolidays, Fields: copyFields(holidays)},
		{Name: BlockComments1, Fields: []string{clean(loc.Source)}},
		{Name: BlockComments2, Fields: copyFields(comments2)},
		{Name: BlockDataPeriods, Fields: copyFields(dataPeriods)},
	}}
}

// Block returns the named block.
func (h Header) Block(name string) (Block, bool) {
	for _, b := range h.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// Location parses the LOCATION block.
func (h Header) Location() (Location, error) {
	b, ok := h.Block(BlockLocation)
	if !ok {
		return Location{}, fmt.Errorf("epw: header has no %s block", BlockLocation)
	}
	if len(b.Fields) != locationFieldCount {
		return Location{}, fmt.Errorf("epw: %s block has %d fields, want %d", BlockLocation, len(b.Fields), locationFieldCount)
	}
	loc := Location{City: b.Fields[0], State: b.Fields[1], Country: b.Fields[2], Source: b.Fields[3], WMO: b.Fields[4]}
	numbers := []struct {
		dst   *float64
		index int
	}{
		{&loc.Latitude, locationLatitudeIndex},
		{&loc.Longitude, locationLongitudeIndex},
		{&loc.TimeZone, locationTimeZoneIndex},
		{&loc.Elevation, locationElevationIndex},
	}
	for _, n := range numbers {
		v, err := strconv.ParseFloat(strings.TrimSpace(b.Fields[n.index]), 64)
		if err != nil {
			return Location{}, fmt.Errorf("epw: %s field %d: %w", BlockLocation, n.index+1, err)
		}
		*n.dst = v
	}
	return loc, nil
}

func isBlockName(name string) bool {
	for _, n := range BlockOrder {
		if n == name {
			return true
		}
	}
	return false
}

// clean keeps free text from breaking the comma-separated layout.
func clean(s string) string {
	return strings.NewReplacer(",", ";", "\n", " ", "\r", " ").Replace(s)
}

func copyFields(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
