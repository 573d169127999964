package signage

import "regexp"

// Mainland mobile number: 11 digits, leading 1, second digit 3-9.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidPhone reports whether the string is an acceptable account identity.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
