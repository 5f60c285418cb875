package swapi

import "strconv"

// Normalize converts a raw API record into a Character.
//
// Species is the first species reference, or "" when there is none. Height is
// only set when the raw value is a non-empty string of ASCII digits; "unknown",
// "" or "1.5" leave HasHeight false. Appearances is the number of film references.
func Normalize(raw RawCharacter) Character {
	c := Character{
		Name:        raw.Name,
		Appearances: len(raw.Films),
	}

	if len(raw.Species) > 0 {
		c.Species = raw.Species[0]
	}

	if isDigits(raw.Height) {
		if h, err := strconv.Atoi(raw.Height); err == nil {
			c.Height = h
			c.HasHeight = true
		}
	}

	return c
}

// NormalizeAll normalizes every record, preserving order.
func NormalizeAll(raws []RawCharacter) []Character {
	out := make([]Character, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
