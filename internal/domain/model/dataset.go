// Package model holds the domain types passed between the conversion steps.
package model

import (
	"sort"
	"strings"
)

// Dataset pairs a user-facing dataset token with the provider-side collection name.
type Dataset struct {
	Token string
	Name  string
}

// datasets is the closed table of supported collections.
var datasets = map[string]string{
	"CONUS":      "nsrdb-GOES-conus-v4-0-0",
	"full-disc":  "nsrdb-GOES-full-disc-v4-0-0",
	"TMY":        "nsrdb-GOES-tmy-v4-0-0",
	"aggregated": "nsrdb-GOES-aggregated-v4-0-0",
}

// LookupDataset resolves a token. Tokens are matched exactly first and then
// case-insensitively, so "conus" and "CONUS" both work.
func LookupDataset(token string) (Dataset, bool) {
	if name, ok := datasets[token]; ok {
		return Dataset{Token: token, Name: name}, true
	}
	for t, name := range datasets {
		if strings.EqualFold(t, token) {
			return Dataset{Token: t, Name: name}, true
		}
	}
	return Dataset{}, false
}

// Datasets returns the full table ordered by token.
func Datasets() []Dataset {
	out := make([]Dataset, 0, len(datasets))
	for t, name := range datasets {
		out = append(out, Dataset{Token: t, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Token) < strings.ToLower(out[j].Token) })
	return out
}
