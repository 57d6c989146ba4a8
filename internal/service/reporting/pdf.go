package reporting

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
)

type pdfTable struct {
	head   []string
	widths []float64
	aligns []string
}

var (
	productTable  = pdfTable{head: []string{"No", "Product Name", "Carton Weight", "Batch", "Carton", "Output (kg)"}, widths: []float64{15, 80, 25, 25, 25, 25}, aligns: []string{"C", "L", "C", "C", "C", "C"}}
	materialTable = pdfTable{head: []string{"No", "Material Name", "Opening", "Received", "Consumption", "Stock"}, widths: []float64{15, 80, 25, 25, 25, 25}, aligns: []string{"C", "L", "C", "C", "C", "C"}}
	infoTable     = pdfTable{head: []string{"Property", "Value"}, widths: []float64{70, 50}, aligns: []string{"L", "L"}}
	recipeTable   = pdfTable{head: recipeHeaders, widths: []float64{80, 25, 30, 30}, aligns: []string{"L", "C", "C", "C"}}
)

// emptyDayLines is printed when nothing was produced, received or consumed.
var emptyDayLines = []string{
	"No production or consumption data was recorded",
	"for the selected date.",
}

// WriteDailyPDF renders a daily report. Products without batch or carton
// output and materials without movement on the day are left out.
func (s *Service) WriteDailyPDF(w io.Writer, r consumption.Report) error {
	pdf := s.newDocument("Daily Consumption Report")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	s.heading(pdf, tr, []string{
		sectionTitle(r.Section) + " Section",
		"Daily Consumption - " + dayPeriod(r),
	})

	products := activeProducts(r.Products)
	rm := movedMaterials(r.RM)
	pm := movedMaterials(r.PM)

	if len(products) == 0 && len(rm) == 0 && len(pm) == 0 {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 10, "No Data Available", "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range emptyDayLines {
			pdf.CellFormat(0, 5, line, "", 1, "C", false, 0, "")
		}
		return output(pdf, w)
	}

	if len(products) > 0 {
		rows := make([][]string, 0, len(products))
		for i, p := range products {
			rows = append(rows, []string{
				fmt.Sprint(i + 1), p.Name, p.CartonWeight,
				models.FormatDisplay(p.Batch), models.FormatDisplay(p.Carton), p.Output,
			})
		}
		productTable.draw(pdf, tr, "FINISHED PRODUCTS", rows)
	}
	for _, part := range []struct {
		title string
		rows  []consumption.MaterialRow
	}{{"RAW MATERIALS", rm}, {"PACKAGING MATERIALS", pm}} {
		if len(part.rows) == 0 {
			continue
		}
		rows := make([][]string, 0, len(part.rows))
		for i, m := range part.rows {
			rows = append(rows, []string{fmt.Sprint(i + 1), m.Name, m.Opening, m.Received, m.Consumed, m.Stock})
		}
		materialTable.draw(pdf, tr, part.title, rows)
	}

	return output(pdf, w)
}

// WriteRecipePDF renders a recipe sheet.
func (s *Service) WriteRecipePDF(w io.Writer, rec Recipe) error {
	pdf := s.newDocument("Recipe Details")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	s.heading(pdf, tr, []string{
		"Section: " + sectionTitle(rec.Section),
		"Product: " + rec.Product.Name,
	})

	if len(rec.Product.Info) > 0 {
		var rows [][]string
		for _, key := range models.OrderedInfoKeys(rec.Product.Info) {
			rows = append(rows, []string{models.FormatFieldName(key), infoValue(rec.Product.Info, key)})
		}
		infoTable.draw(pdf, tr, "PRODUCT INFORMATION", rows)
	}
	for _, part := range []struct {
		title string
		lines []recipeRow
	}{{"RAW MATERIALS", recipeRows(rec.RM)}, {"PACKAGING MATERIALS", recipeRows(rec.PM)}} {
		if len(part.lines) == 0 {
			continue
		}
		rows := make([][]string, 0, len(part.lines))
		for _, l := range part.lines {
			rows = append(rows, []string{l.name, l.unit, l.batch, l.carton})
		}
		recipeTable.draw(pdf, tr, part.title, rows)
	}

	return output(pdf, w)
}

func (s *Service) newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(s.company, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	generated := s.now().Format("2006-01-02")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(95, 5, "Generated on: "+generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()
	return pdf
}

func (s *Service) heading(pdf *fpdf.Fpdf, tr func(string) string, lines []string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(245, 6, 6)
	pdf.CellFormat(0, 8, tr(s.company), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	for _, line := range lines {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (t pdfTable) draw(pdf *fpdf.Fpdf, tr func(string) string, title string, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")

	pdf.SetFillColor(0, 122, 255)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range t.head {
		pdf.CellFormat(t.widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			pdf.CellFormat(t.widths[i], 6, tr(cell), "1", 0, t.aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
