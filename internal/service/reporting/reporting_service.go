package reporting

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// Content types of rendered files.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// DefaultCompanyName heads every rendered document unless configured otherwise.
const DefaultCompanyName = "S&B Nice Nice Food Valley Ltd."

// Recipe is a product with its bill of materials resolved to material names.
type Recipe struct {
	Section string
	Product models.Product
	RM      []ledger.RecipeLine
	PM      []ledger.RecipeLine
}

// Service renders daily reports and recipes as workbooks, PDFs and short text summaries.
type Service struct {
	company string
	now     func() time.Time
	logger  *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(company string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(company) == "" {
		company = DefaultCompanyName
	}
	return &Service{company: company, now: time.Now, logger: logger}
}

// Summary renders a daily report as a short message for WhatsApp delivery.
func (s *Service) Summary(r consumption.Report) string {
	title := fmt.Sprintf("%s Section - Daily Consumption %s", sectionTitle(r.Section), dayPeriod(r))

	products := activeProducts(r.Products)
	rm := movedMaterials(r.RM)
	pm := movedMaterials(r.PM)
	if len(products) == 0 && len(rm) == 0 && len(pm) == 0 {
		return fmt.Sprintf("*%s*\n%s: no production or consumption recorded.", s.company, title)
	}

	var cartons, outputKg float64
	for _, p := range products {
		cartons += p.Carton
		outputKg += p.Raw.OutputKg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s\n", s.company, title)
	fmt.Fprintf(&b, "Products: %d active, %s cartons, %s kg output\n", len(products), models.FormatDisplay(cartons), models.FormatDisplay(outputKg))
	fmt.Fprintf(&b, "Raw materials consumed: %s\n", consumedList(rm))
	fmt.Fprintf(&b, "Packaging consumed: %s", consumedList(pm))
	return b.String()
}

// DailyFilename names a rendered daily report.
func DailyFilename(r consumption.Report, ext string) string {
	return fmt.Sprintf("Daily_Report_%s_%02d_%s.%s", sectionTitle(r.Section), r.Day, r.PeriodKey, ext)
}

// RecipeFilename names a rendered recipe.
func RecipeFilename(rec Recipe, ext string) string {
	name := strings.Join(strings.Fields(rec.Product.Name), "_")
	return fmt.Sprintf("Recipe_%s_%s.%s", name, sectionTitle(rec.Section), ext)
}

// CodesFilename names the code export workbook of a section.
func CodesFilename(section string) string {
	return section + "_products_materials.xlsx"
}

func sectionTitle(section string) string {
	return models.FormatFieldName(section)
}

func dayPeriod(r consumption.Report) string {
	return fmt.Sprintf("%02d %s", r.Day, r.PeriodDisplay)
}

// activeProducts keeps products with any batch or carton output on the day.
func activeProducts(rows []consumption.ProductRow) []consumption.ProductRow {
	var out []consumption.ProductRow
	for _, p := range rows {
		if p.Batch > 0 || p.Carton > 0 {
			out = append(out, p)
		}
	}
	return out
}

// movedMaterials keeps materials received or consumed on the day.
func movedMaterials(rows []consumption.MaterialRow) []consumption.MaterialRow {
	var out []consumption.MaterialRow
	for _, m := range rows {
		if m.Raw.Received > 0 || m.Raw.Consumed > 0 {
			out = append(out, m)
		}
	}
	return out
}

func consumedList(rows []consumption.MaterialRow) string {
	var parts []string
	for _, m := range rows {
		if m.Raw.Consumed > 0 {
			parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s %s", m.Name, m.Consumed, m.Unit)))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func infoValue(info models.Info, key string) string {
	v := fmt.Sprint(info[key])
	if unit := models.InfoUnit(key); unit != "" {
		v += " " + unit
	}
	return v
}
