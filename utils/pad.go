package utils

import "strconv"

// PadNumber left-pads number with zeros to width digits. Wider numbers are
// returned unchanged.
func PadNumber(width, number int) string {
	s := strconv.Itoa(number)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
