// Package normalizer turns raw ingestion payloads (CSV rows, search results)
// into contact records.
package normalizer

import (
	"strings"

	"github.com/sells-group/intent-engine/internal/model"
)

// fieldAliases maps normalized CSV header names onto contact fields.
// Headers are lowercased and trimmed before lookup; unmapped columns are
// ignored.
var fieldAliases = map[string]string{
	"first_name":    "first_name",
	"firstname":     "first_name",
	"fname":         "first_name",
	"last_name":     "last_name",
	"lastname":      "last_name",
	"lname":         "last_name",
	"email":         "email",
	"email_address": "email",
	"phone":         "phone",
	"phone_number":  "phone",
	"mobile":        "phone",
	"company":       "company",
	"company_name":  "company",
	"business":      "company",
	"industry":      "industry",
	"sector":        "industry",
	"location":      "location",
	"address":       "location",
	"city":          "city",
	"state":         "state",
	"province":      "state",
	"country":       "country",
}

// setField assigns a value to the named contact field.
func setField(c *model.Contact, field, value string) {
	switch field {
	case "first_name":
		c.FirstName = value
	case "last_name":
		c.LastName = value
	case "email":
		c.Email = value
	case "phone":
		c.Phone = value
	case "company":
		c.Company = value
	case "industry":
		c.Industry = value
	case "location":
		c.Location = value
	case "city":
		c.City = value
	case "state":
		c.State = value
	case "country":
		c.Country = value
	}
}

// contactFromRow maps a header-keyed CSV row onto a contact. Values are
// trimmed; empty values and unknown columns contribute nothing.
func contactFromRow(row map[string]string) model.Contact {
	var c model.Contact
	for col, val := range row {
		field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(col))]
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		setField(&c, field, val)
	}
	return c
}

// usable reports whether a row carries enough identity to be worth storing:
// at least one of email, phone or company.
func usable(c model.Contact) bool {
	return c.Email != "" || c.Phone != "" || c.Company != ""
}
