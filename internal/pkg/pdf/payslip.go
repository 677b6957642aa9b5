// Package pdf renders payslip documents.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Line is one labelled amount on the payslip. Amounts arrive already formatted.
type Line struct {
	Label  string
	Amount string
}

// Payslip is the printable view of a payslip.
type Payslip struct {
	Issuer       string
	EmployeeID   string
	EmployeeName string
	Department   string
	Period       string
	Earnings     []Line
	Deductions   []Line
	GrossSalary  string
	TotalDeduct  string
	NetSalary    string
	Notes        string
	Warnings     []string
	GeneratedAt  time.Time
}

const (
	pageWidth   = 190.0
	labelWidth  = 130.0
	amountWidth = pageWidth - labelWidth
	rowHeight   = 7.0
)

// RenderPayslip writes a single page A4 PDF to w.
func RenderPayslip(w io.Writer, p Payslip) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", p.EmployeeID, p.Period), true)
	pdf.SetCreator(p.Issuer, true)
	pdf.SetCreationDate(p.GeneratedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pageWidth, 10, "Payslip", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth, 6, p.Issuer, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range [][2]string{
		{"Employee", fmt.Sprintf("%s (%s)", p.EmployeeName, p.EmployeeID)},
		{"Department", p.Department},
		{"Period", p.Period},
	} {
		pdf.CellFormat(40, rowHeight, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth-40, rowHeight, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Earnings", p.Earnings)
	total(pdf, "Gross salary", p.GrossSalary)
	pdf.Ln(3)
	section(pdf, "Deductions", p.Deductions)
	total(pdf, "Total deductions", p.TotalDeduct)
	pdf.Ln(3)

	pdf.SetFillColor(230, 236, 245)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(labelWidth, 10, "Net salary", "1", 0, "L", true, 0, "")
	pdf.CellFormat(amountWidth, 10, p.NetSalary, "1", 1, "R", true, 0, "")

	if p.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(pageWidth, 5, "Notes: "+p.Notes, "", "L", false)
	}
	if len(p.Warnings) > 0 {
		pdf.Ln(2)
		pdf.SetTextColor(180, 30, 30)
		pdf.SetFont("Helvetica", "B", 10)
		for _, warning := range p.Warnings {
			pdf.CellFormat(pageWidth, 5, "Warning: "+warning, "", 1, "L", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(pageWidth, 5, "Generated "+p.GeneratedAt.UTC().Format(time.RFC1123), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render payslip pdf: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string, lines []Line) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth, rowHeight, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, l := range lines {
		pdf.CellFormat(labelWidth, rowHeight, l.Label, "", 0, "L", false, 0, "")
		pdf.CellFormat(amountWidth, rowHeight, l.Amount, "", 1, "R", false, 0, "")
	}
}

func total(pdf *gofpdf.Fpdf, label, amount string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelWidth, rowHeight, label, "T", 0, "L", false, 0, "")
	pdf.CellFormat(amountWidth, rowHeight, amount, "T", 1, "R", false, 0, "")
}
