package order

import "strings"

// Placeholders written into an order's shipping address when checkout let a
// field through empty, e.g. from a guest or social-login profile.
const (
	PlaceholderFirstName  = "Customer"
	PlaceholderLastName   = "NA"
	PlaceholderPhone      = "0000000000"
	PlaceholderLine1      = "Address not provided"
	PlaceholderCity       = "Unknown"
	PlaceholderState      = "Unknown"
	PlaceholderPostalCode = "000000"
	PlaceholderCountry    = "India"
)

// NormalizeAddress fills missing required fields with placeholders and
// reports which fields were filled.
func NormalizeAddress(a Address) (Address, []string) {
	var filled []string
	fill := func(field *string, name, placeholder string) {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = placeholder
			filled = append(filled, name)
		}
	}

	fill(&a.FirstName, "firstName", PlaceholderFirstName)
	fill(&a.LastName, "lastName", PlaceholderLastName)
	fill(&a.Phone, "phone", PlaceholderPhone)
	fill(&a.Line1, "address1", PlaceholderLine1)
	fill(&a.City, "city", PlaceholderCity)
	fill(&a.State, "state", PlaceholderState)
	fill(&a.PostalCode, "postalCode", PlaceholderPostalCode)
	fill(&a.Country, "country", PlaceholderCountry)
	return a, filled
}
