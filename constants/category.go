package constants

import (
	"strings"
)

// Category is the canonical expense category code stored on transactions
// and used as the middle segment of receipt storage paths.
type Category string

const (
	CellPhoneService        Category = "CELL_PHONE_SERVICE"
	HomeOffice              Category = "HOME_OFFICE"
	Internet                Category = "INTERNET"
	Meals                   Category = "MEALS"
	OfficeEquipment         Category = "OFFICE_EQUIPMENT"
	OfficeSupplies          Category = "OFFICE_SUPPLIES"
	ProfessionalDevelopment Category = "PROFESSIONAL_DEVELOPMENT"
	SoftwareSubscription    Category = "SOFTWARE_SUBSCRIPTION"
	TravelExpenses          Category = "TRAVEL_EXPENSES"
	Other                   Category = "OTHER"
)

var allCategories = []Category{
	CellPhoneService,
	HomeOffice,
	Internet,
	Meals,
	OfficeEquipment,
	OfficeSupplies,
	ProfessionalDevelopment,
	SoftwareSubscription,
	TravelExpenses,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label (from the LLM or the UI) onto a
// canonical category code. Unknown labels fall back to Other.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"cell phone":   CellPhoneService,
		"mobile plan":  CellPhoneService,
		"groceries":    Meals,
		"restaurant":   Meals,
		"saas":         SoftwareSubscription,
		"subscription": SoftwareSubscription,
		"uber":         TravelExpenses,
		"lyft":         TravelExpenses,
		"airline":      TravelExpenses,
		"hotel":        TravelExpenses,
		"taxi":         TravelExpenses,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// match against category codes, tolerating spaces for underscores
	squashed := strings.ReplaceAll(normalized, " ", "_")
	for _, cat := range allCategories {
		if squashed == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
