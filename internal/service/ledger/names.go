package ledger

import "github.com/nicefood/prodtrack/internal/domain/models"

// UnknownMaterial labels recipe ids that match no material record.
const UnknownMaterial = "Unknown Material"

// RecipeLine joins a recipe entry with its material name.
type RecipeLine struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	BatchQty  float64 `json:"batch_qty"`
	CartonQty float64 `json:"carton_qty"`
}

// RecipeLines resolves the rm or pm lists of p against materials and returns
// one line per material id, sorted by name.
func RecipeLines(p models.Product, kind models.Kind, materials []models.Material) []RecipeLine {
	batch, carton, err := p.BOM(kind)
	if err != nil {
		return nil
	}

	names := make(map[string]string, len(materials))
	for _, m := range materials {
		names[m.ID] = m.Name
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return UnknownMaterial
	}

	index := map[string]int{}
	var lines []RecipeLine
	for _, it := range *batch {
		index[it.ID] = len(lines)
		lines = append(lines, RecipeLine{ID: it.ID, Name: nameOf(it.ID), Unit: it.Unit, BatchQty: it.Qty})
	}
	for _, it := range *carton {
		if i, ok := index[it.ID]; ok {
			lines[i].CartonQty = it.Qty
			continue
		}
		index[it.ID] = len(lines)
		lines = append(lines, RecipeLine{ID: it.ID, Name: nameOf(it.ID), Unit: it.Unit, CartonQty: it.Qty})
	}

	SortByName(lines, func(l RecipeLine) string { return l.Name })
	return lines
}
