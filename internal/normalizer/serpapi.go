package normalizer

import (
	"regexp"
	"strings"

	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/pkg/serpapi"
)

// locationPattern matches "City Name, ST" fragments in free text.
var locationPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),\s*([A-Z]{2})\b`)

// organicIndustryKeywords are trade terms scanned for in the search query to
// infer an industry for organic results.
var organicIndustryKeywords = []string{
	"plumber", "plumbing", "lawyer", "attorney", "roofer", "roofing",
	"contractor", "electrician", "hvac", "dentist", "doctor", "restaurant",
	"mechanic", "auto repair", "real estate", "agent", "broker", "insurance",
	"accountant", "marketing", "cleaning", "landscaping", "painter", "painting",
}

// localIndustryLabels maps query keywords onto industry labels for local
// results, which deserve friendlier names than the raw keyword.
var localIndustryLabels = []struct {
	keyword string
	label   string
}{
	{"plumber", "Plumbing"}, {"plumbing", "Plumbing"},
	{"lawyer", "Legal Services"}, {"attorney", "Legal Services"},
	{"roofer", "Roofing"}, {"roofing", "Roofing"},
	{"contractor", "Construction"},
	{"electrician", "Electrical Services"},
	{"hvac", "HVAC Services"},
	{"dentist", "Dental"}, {"doctor", "Medical"},
	{"restaurant", "Restaurant"},
	{"mechanic", "Auto Repair"}, {"auto repair", "Auto Repair"},
	{"real estate", "Real Estate"},
	{"insurance", "Insurance"},
	{"accountant", "Accounting"},
	{"marketing", "Marketing"},
	{"cleaning", "Cleaning Services"},
	{"landscaping", "Landscaping"},
	{"painter", "Painting"}, {"painting", "Painting"},
}

// ContactFromOrganic builds a contact from an organic search result. The
// company is the title segment before the first "-" (or "|") separator; the
// industry is inferred from the query and the city/state pair is extracted
// from the snippet and title text.
func ContactFromOrganic(res serpapi.OrganicResult, query string) model.Contact {
	company := res.Title
	if idx := strings.Index(res.Title, "-"); idx >= 0 {
		company = strings.TrimSpace(res.Title[:idx])
	} else if idx := strings.Index(res.Title, "|"); idx >= 0 {
		company = strings.TrimSpace(res.Title[:idx])
	}

	var industry string
	queryLower := strings.ToLower(query)
	for _, keyword := range organicIndustryKeywords {
		if strings.Contains(queryLower, keyword) {
			industry = capitalize(keyword)
			// plumber -> plumbing
			if strings.HasSuffix(industry, "er") {
				industry = industry[:len(industry)-2] + "ing"
			}
			break
		}
	}

	var location, city, state string
	if m := locationPattern.FindStringSubmatch(res.Snippet + " " + res.Title); m != nil {
		city = m[1]
		state = m[2]
		location = city + ", " + state
	}

	return model.Contact{
		Company:  company,
		Industry: industry,
		Location: location,
		City:     city,
		State:    state,
		Source:   model.SourceSerpAPI,
		RawData: map[string]any{
			"title":        res.Title,
			"snippet":      res.Snippet,
			"link":         res.Link,
			"search_query": query,
		},
	}
}

// ContactFromLocal builds a contact from a local (maps) result. Local
// results carry richer structure: a business name, address and often a phone
// number and category.
func ContactFromLocal(res serpapi.LocalResult, query, searchLocation string) model.Contact {
	var industry string
	if res.Type != "" {
		industry = res.Type
		if idx := strings.Index(res.Type, ","); idx >= 0 {
			industry = strings.TrimSpace(res.Type[:idx])
		}
	} else {
		queryLower := strings.ToLower(query)
		for _, entry := range localIndustryLabels {
			if strings.Contains(queryLower, entry.keyword) {
				industry = entry.label
				break
			}
		}
	}

	var city, state string
	if res.Address != "" {
		parts := strings.Split(res.Address, ",")
		if len(parts) >= 2 {
			city = strings.TrimSpace(parts[len(parts)-2])
			stateZip := strings.Fields(strings.TrimSpace(parts[len(parts)-1]))
			if len(stateZip) > 0 {
				state = stateZip[0]
			}
		}
	}

	return model.Contact{
		Company:  res.Title,
		Phone:    res.Phone,
		Email:    res.Email,
		Industry: industry,
		Location: res.Address,
		City:     city,
		State:    state,
		Source:   model.SourceSerpAPI,
		RawData: map[string]any{
			"title":           res.Title,
			"address":         res.Address,
			"phone":           res.Phone,
			"email":           res.Email,
			"website":         res.Website,
			"type":            res.Type,
			"rating":          res.Rating,
			"reviews":         res.Reviews,
			"search_query":    query,
			"search_location": searchLocation,
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
