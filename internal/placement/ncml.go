// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package placement

import (
	"strings"
)

// FillTemplate substitutes the dataset id and destination directory into an
// NCML aggregation template. Slots are written positionally: "{}" or "{:s}"
// take the next argument, "{0}" and "{1}" (optionally with ":s") pick one.
// "{{" and "}}" are literal braces. Anything else is copied through.
func FillTemplate(tmpl, datasetID, destination string) string {
	args := []string{datasetID, destination}
	next := 0

	var b strings.Builder
	b.Grow(len(tmpl) + len(datasetID) + len(destination))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String()
			}
			field := tmpl[i+1 : i+end]
			if v, ok := slotValue(field, args, &next); ok {
				b.WriteString(v)
			} else {
				b.WriteString(tmpl[i : i+end+1])
			}
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func slotValue(field string, args []string, next *int) (string, bool) {
	name := strings.TrimSuffix(field, ":s")
	switch name {
	case "":
		if *next >= len(args) {
			return "", false
		}
		v := args[*next]
		*next++
		return v, true
	case "0":
		return args[0], true
	case "1":
		return args[1], true
	}
	return "", false
}
