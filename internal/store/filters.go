package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/intent-engine/internal/model"
)

// placeholderFunc returns the next SQL placeholder ("$1", "$2", … for
// Postgres; "?" for SQLite).
type placeholderFunc func() string

func dollarPlaceholders() placeholderFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}
}

func questionPlaceholders() placeholderFunc {
	return func() string { return "?" }
}

// filterClause renders audience filter predicates as SQL conditions against
// the contacts table. All supplied predicates combine with AND; omitted
// predicates contribute nothing. Substring matches are case-insensitive.
// The intent level predicate compares against the contact's latest score.
func filterClause(f model.AudienceFilters, ph placeholderFunc) (string, []any) {
	var conds []string
	var args []any

	substr := func(col, val string) {
		if val == "" {
			return
		}
		conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE '%%' || LOWER(%s) || '%%'", col, ph()))
		args = append(args, val)
	}

	substr("contacts.industry", f.Industry)
	substr("contacts.location", f.Location)
	substr("contacts.city", f.City)
	substr("contacts.state", f.State)
	substr("contacts.country", f.Country)

	if f.IntentLevel != "" {
		conds = append(conds, fmt.Sprintf(
			`(SELECT s.score FROM intent_scores s WHERE s.contact_id = contacts.id
			  ORDER BY s.calculated_at DESC, s.id DESC LIMIT 1) = UPPER(%s)`, ph()))
		args = append(args, f.IntentLevel)
	}

	if f.DateFrom != nil {
		conds = append(conds, fmt.Sprintf("contacts.created_at >= %s", ph()))
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		conds = append(conds, fmt.Sprintf("contacts.created_at <= %s", ph()))
		args = append(args, *f.DateTo)
	}

	if f.SearchQuery != "" {
		// One placeholder per column so the clause works for both
		// positional ($N) and anonymous (?) placeholder styles.
		cols := []string{"contacts.first_name", "contacts.last_name", "contacts.email", "contacts.company"}
		parts := make([]string, 0, len(cols))
		for _, col := range cols {
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE '%%' || LOWER(%s) || '%%'", col, ph()))
			args = append(args, f.SearchQuery)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conds, " AND "), args
}
