package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DaysInBuffer is the fixed size of every per-day array, independent of month length.
const DaysInBuffer = 31

// Units accepted for materials.
var MaterialUnits = []string{"kg", "pcs", "rim", "ltr", "gm", "ml"}

// DayQty is one calendar-day entry of a day array.
type DayQty struct {
	Date int     `json:"date" bson:"date"`
	Qty  float64 `json:"qty" bson:"qty"`
}

// NewDayBuffer returns entries for days 1..31 with zero quantity.
func NewDayBuffer() []DayQty {
	days := make([]DayQty, DaysInBuffer)
	for i := range days {
		days[i] = DayQty{Date: i + 1}
	}
	return days
}

// QtyOn returns the quantity recorded for day, or 0.
func QtyOn(days []DayQty, day int) float64 {
	for _, d := range days {
		if d.Date == day {
			return d.Qty
		}
	}
	return 0
}

// SumBefore totals all entries dated strictly before day.
func SumBefore(days []DayQty, day int) float64 {
	var total float64
	for _, d := range days {
		if d.Date < day {
			total += d.Qty
		}
	}
	return total
}

// Material is a raw or packaging material ledger record.
type Material struct {
	ID               string   `json:"id,omitempty" bson:"-"`
	Name             string   `json:"name" bson:"name"`
	Unit             string   `json:"unit" bson:"unit"`
	Opening          float64  `json:"opening" bson:"opening"`
	ReceivedDays     []DayQty `json:"recieved_days" bson:"recieved_days"`
	ReceivedTotal    float64  `json:"recieved_total" bson:"recieved_total"`
	ConsumptionDays  []DayQty `json:"consumption_days" bson:"consumption_days"`
	ConsumptionTotal float64  `json:"consumption_total" bson:"consumption_total"`
	Closing          float64  `json:"closing" bson:"closing"`
}

// NewMaterial builds a freshly registered material with zeroed day buffers.
func NewMaterial(name, unit string, opening float64) Material {
	return Material{
		Name:            strings.TrimSpace(name),
		Unit:            unit,
		Opening:         opening,
		ReceivedDays:    NewDayBuffer(),
		ConsumptionDays: NewDayBuffer(),
	}
}

// BOMItem is one bill-of-materials line: per-batch (or per-carton) quantity of a material.
type BOMItem struct {
	ID   string  `json:"id" bson:"id"`
	Unit string  `json:"unit" bson:"unit"`
	Qty  float64 `json:"qty" bson:"qty"`
}

// Info is the free-form product attribute map shared from the section template.
type Info map[string]any

// Number returns the numeric value of key; values may be stored as numbers or numeric strings.
func (i Info) Number(key string) (float64, bool) {
	switch v := i[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Product is a recipe ledger record.
type Product struct {
	ID       string    `json:"id,omitempty" bson:"-"`
	Name     string    `json:"name" bson:"name"`
	Batch    []DayQty  `json:"batch" bson:"batch"`
	Carton   []DayQty  `json:"carton" bson:"carton"`
	RM       []BOMItem `json:"rm" bson:"rm"`
	CartonRM []BOMItem `json:"carton_rm" bson:"carton_rm"`
	PM       []BOMItem `json:"pm" bson:"pm"`
	CartonPM []BOMItem `json:"carton_pm" bson:"carton_pm"`
	Info     Info      `json:"info" bson:"info"`
}

// NewProduct builds a product with empty BOM lists and zeroed day buffers.
func NewProduct(name string, info Info) Product {
	copied := make(Info, len(info))
	for k, v := range info {
		copied[k] = v
	}
	return Product{
		Name:     strings.TrimSpace(name),
		Batch:    NewDayBuffer(),
		Carton:   NewDayBuffer(),
		RM:       []BOMItem{},
		CartonRM: []BOMItem{},
		PM:       []BOMItem{},
		CartonPM: []BOMItem{},
		Info:     copied,
	}
}

// BOM returns the batch and carton lists for a material kind.
func (p *Product) BOM(kind Kind) (batch, carton *[]BOMItem, err error) {
	switch kind {
	case KindRM:
		return &p.RM, &p.CartonRM, nil
	case KindPM:
		return &p.PM, &p.CartonPM, nil
	default:
		return nil, nil, fmt.Errorf("kind %q has no bill of materials", kind)
	}
}

// BOMFields returns the four bill-of-materials fields as a partial update.
func (p Product) BOMFields() map[string]any {
	return map[string]any{
		"rm":        bomList(p.RM),
		"carton_rm": bomList(p.CartonRM),
		"pm":        bomList(p.PM),
		"carton_pm": bomList(p.CartonPM),
	}
}

func bomList(items []BOMItem) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{"id": it.ID, "unit": it.Unit, "qty": it.Qty})
	}
	return out
}
