package generator

import (
	"errors"
	"strconv"
	"strings"
)

const maxNHSAttempts = 100

var errNHSExhausted = errors.New("could not produce a valid nhs number")

// NHSNumber returns a ten digit number whose last digit is the modulus 11
// check digit of the first nine. Prefixes yielding a check digit of 10 are
// invalid and redrawn.
func (r *Rand) NHSNumber() (string, error) {
	for attempt := 0; attempt < maxNHSAttempts; attempt++ {
		var b strings.Builder
		total := 0
		for i := 0; i < 9; i++ {
			d := r.IntN(10)
			total += (10 - i) * d
			b.WriteByte(byte('0' + d))
		}
		check := 11 - total%11
		if check == 10 {
			continue
		}
		if check == 11 {
			check = 0
		}
		b.WriteString(strconv.Itoa(check))
		return b.String(), nil
	}
	return "", errNHSExhausted
}

// ValidNHSNumber reports whether s is ten digits with a correct check digit.
func ValidNHSNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 10; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i < 9 {
			total += (10 - i) * int(s[i]-'0')
		}
	}
	check := 11 - total%11
	if check == 11 {
		check = 0
	}
	return check != 10 && check == int(s[9]-'0')
}
