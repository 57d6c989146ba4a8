package consumption

import "github.com/nicefood/prodtrack/internal/domain/models"

// MaterialFigures are the unrounded as-of-day figures of a material.
type MaterialFigures struct {
	Opening  float64
	Received float64
	Consumed float64
	Stock    float64
}

// MaterialRow is one rm or pm line of a daily report. String fields carry the display-rounded values.
type MaterialRow struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Opening  string          `json:"opening"`
	Received string          `json:"recieved_total"`
	Consumed string          `json:"consumption_total"`
	Stock    string          `json:"stock"`
	Raw      MaterialFigures `json:"-"`
}

// ProductFigures are the unrounded same-day figures of a product.
type ProductFigures struct {
	CartonWeightKg float64
	OutputKg       float64
}

// ProductRow is one product line of a daily report.
type ProductRow struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	CartonWeight string         `json:"carton_weight"`
	Batch        float64        `json:"batch"`
	Carton       float64        `json:"carton"`
	Output       string         `json:"output"`
	Raw          ProductFigures `json:"-"`
}

// AggregateMaterial computes the running figures of m as of day. The opening
// carries every received and consumed entry dated before day.
func AggregateMaterial(m models.Material, day int) MaterialRow {
	received := models.QtyOn(m.ReceivedDays, day)
	consumed := models.QtyOn(m.ConsumptionDays, day)

	opening := m.Opening
	if day > 1 {
		opening += models.SumBefore(m.ReceivedDays, day) - models.SumBefore(m.ConsumptionDays, day)
	}
	stock := opening + received - consumed

	return MaterialRow{
		ID:       m.ID,
		Name:     m.Name,
		Unit:     m.Unit,
		Opening:  models.FormatDisplay(opening),
		Received: models.FormatDisplay(received),
		Consumed: models.FormatDisplay(consumed),
		Stock:    models.FormatDisplay(stock),
		Raw:      MaterialFigures{Opening: opening, Received: received, Consumed: consumed, Stock: stock},
	}
}

// AggregateProduct computes the same-day production figures of p. A missing
// or zero packet count per carton counts as one packet.
func AggregateProduct(p models.Product, day int) ProductRow {
	batch := models.QtyOn(p.Batch, day)
	carton := models.QtyOn(p.Carton, day)

	netWeight, _ := p.Info.Number(models.InfoNetWeight)
	packets, ok := p.Info.Number(models.InfoTotalPacketPerCarton)
	if !ok || packets == 0 {
		packets = 1
	}
	cartonGrams := netWeight * packets
	output := carton * cartonGrams / 1000

	return ProductRow{
		ID:           p.ID,
		Name:         p.Name,
		CartonWeight: models.FormatFixed2(cartonGrams / 1000),
		Batch:        batch,
		Carton:       carton,
		Output:       models.FormatDisplay(output),
		Raw:          ProductFigures{CartonWeightKg: cartonGrams / 1000, OutputKg: output},
	}
}
