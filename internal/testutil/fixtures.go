package testutil

import "github.com/nicefood/prodtrack/internal/domain/models"

// FixtureMaterial creates a test material with sensible defaults.
func FixtureMaterial(overrides ...func(*models.Material)) models.Material {
	m := models.NewMaterial("Flour", "kg", 100)
	m.Closing = 100

	for _, override := range overrides {
		override(&m)
	}

	return m
}

// FixtureProduct creates a test product with a small recipe.
func FixtureProduct(overrides ...func(*models.Product)) models.Product {
	p := models.NewProduct("Choco Biscuit", models.Info{
		models.InfoNetWeight:            50.0,
		models.InfoTotalPacketPerCarton: 24.0,
	})
	p.RM = []models.BOMItem{{ID: "rm-flour", Unit: "kg", Qty: 10}}
	p.CartonRM = []models.BOMItem{{ID: "rm-flour", Unit: "kg", Qty: 0.5}}
	p.PM = []models.BOMItem{{ID: "pm-foil", Unit: "pcs", Qty: 100}}
	p.CartonPM = []models.BOMItem{{ID: "pm-foil", Unit: "pcs", Qty: 24}}

	for _, override := range overrides {
		override(&p)
	}

	return p
}

// FixtureUser creates a test user holding the given periods.
func FixtureUser(username string, periods ...string) models.User {
	current := ""
	if len(periods) > 0 {
		current = periods[len(periods)-1]
	}
	if periods == nil {
		periods = []string{}
	}
	return models.User{
		Name:          "Test " + username,
		Username:      username,
		Password:      "secret",
		Role:          models.RoleUser,
		Section:       "biscuit",
		CurrentPeriod: current,
		Periods:       periods,
	}
}

// WithReceived sets a received entry on a material day buffer.
func WithReceived(day int, qty float64) func(*models.Material) {
	return func(m *models.Material) { setDay(m.ReceivedDays, day, qty) }
}

// WithConsumed sets a consumption entry on a material day buffer.
func WithConsumed(day int, qty float64) func(*models.Material) {
	return func(m *models.Material) { setDay(m.ConsumptionDays, day, qty) }
}

func setDay(days []models.DayQty, day int, qty float64) {
	for i := range days {
		if days[i].Date == day {
			days[i].Qty = qty
			return
		}
	}
}
