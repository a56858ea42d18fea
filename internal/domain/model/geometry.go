package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Geometry is a WKT string (POINT, MULTIPOINT, POLYGON or MULTIPOLYGON)
// naming the area of interest. It is passed to the provider verbatim.
type Geometry string

var (
	wktPattern    = regexp.MustCompile(`^(?i)(POINT|MULTIPOINT|POLYGON|MULTIPOLYGON)\s*(\(.*\))$`)
	wktBodyTokens = regexp.MustCompile(`^[0-9eE+\-.,()\s]+$`)
)

// ParseGeometry performs a syntactic check of a WKT string: a known type
// keyword, balanced parentheses, numeric coordinate pairs.
func ParseGeometry(wkt string) (Geometry, error) {
	s := strings.TrimSpace(wkt)
	m := wktPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("unsupported or malformed WKT geometry %q", wkt)
	}
	kind, body := strings.ToUpper(m[1]), m[2]
	if !wktBodyTokens.MatchString(body) {
		return "", fmt.Errorf("WKT geometry %q contains non-numeric coordinates", wkt)
	}

	depth := 0
	for _, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("WKT geometry %q has unbalanced parentheses", wkt)
			}
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("WKT geometry %q has unbalanced parentheses", wkt)
	}

	coords := strings.FieldsFunc(body, func(r rune) bool { return r == '(' || r == ')' || r == ',' })
	if len(coords) == 0 {
		return "", fmt.Errorf("WKT geometry %q has no coordinates", wkt)
	}
	for _, c := range coords {
		parts := strings.Fields(c)
		if len(parts) != 2 {
			return "", fmt.Errorf("WKT geometry %q: coordinate %q is not an x y pair", wkt, strings.TrimSpace(c))
		}
		for _, p := range parts {
			if _, err := strconv.ParseFloat(p, 64); err != nil {
				return "", fmt.Errorf("WKT geometry %q: invalid number %q", wkt, p)
			}
		}
	}
	if kind == "POINT" && len(coords) != 1 {
		return "", fmt.Errorf("WKT POINT %q must have exactly one coordinate", wkt)
	}
	if (kind == "POLYGON" || kind == "MULTIPOLYGON") && len(coords) < 4 {
		return "", fmt.Errorf("WKT %s %q needs at least four coordinates", kind, wkt)
	}
	return Geometry(s), nil
}

// String returns the WKT text.
func (g Geometry) String() string { return string(g) }
