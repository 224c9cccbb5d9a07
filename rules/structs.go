package rules

import "regexp"

const FileName = "rules.yml"

type Rules struct {
	Filters map[int64]*Filter
	Reports Reports
}

// Filter gates a source chat's messages before token extraction.
// Include and Exclude are regexps, compiled case-insensitively on load.
type Filter struct {
	Include string
	Exclude string

	include *regexp.Regexp
	exclude *regexp.Regexp
}

type Reports struct {
	For      []int64
	Template string
}
