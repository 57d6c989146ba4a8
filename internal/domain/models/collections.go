package models

import "fmt"

// Kind enumerates the per-section ledger collections.
type Kind string

const (
	KindProducts Kind = "products"
	KindRM       Kind = "rm"
	KindPM       Kind = "pm"
)

// Fixed collections.
const (
	SectionsCollection   = "sections"
	UsersCollection      = "users"
	RecipeInfoCollection = "recipe_info"
	PeriodJobsCollection = "period_jobs"
)

// LedgerKinds lists the kinds in the order bulk period operations visit them.
var LedgerKinds = []Kind{KindProducts, KindRM, KindPM}

// MaterialKinds lists the material kinds.
var MaterialKinds = []Kind{KindRM, KindPM}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProducts, KindRM, KindPM:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// IsMaterial reports whether k is rm or pm.
func (k Kind) IsMaterial() bool {
	return k == KindRM || k == KindPM
}

// BaseCollection returns "<section>_<kind>".
func BaseCollection(section string, kind Kind) string {
	return fmt.Sprintf("%s_%s", section, kind)
}

// PeriodCollection returns "<section>_<kind>_period_<periodKey>".
func PeriodCollection(section string, kind Kind, periodKey string) string {
	return fmt.Sprintf("%s_%s_period_%s", section, kind, periodKey)
}
