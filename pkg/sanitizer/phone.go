package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var supportedRegions = []string{
	"IN",
	"US",
}

// NormalizePhone parses a contact number against the supported regions and
// returns it in E.164 form, or empty when it parses nowhere.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}
