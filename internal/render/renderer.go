// Package render assembles quotation PDFs. Layout is estimate-based: rows
// get a fixed height and pages a fixed content window, which is enough to
// avoid overflow without a true flow engine.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/flaketech/quotebuilder/internal/quotation"
)

const (
	pageWidth  = 297.0
	pageHeight = 420.0

	marginSide    = 15.0
	contentTop    = 65.0
	contentBottom = 75.0

	tableWidth        = pageWidth - 2*marginSide
	tableHeaderHeight = 9.0

	rowHeight   = 42.0
	imagePad    = 2.0
	summaryRowH = 9.0
	// Eight possible summary rows plus breathing room above the table.
	summaryHeight = 8*summaryRowH + 8

	headerFontSize = 12.0
	bodyFontSize   = 11.0
	detailFontSize = 13.0
)

// Assets points at the static artwork. Every path is optional; missing files
// skip their visual element without failing the render.
type Assets struct {
	Header  string
	Footer  string
	Cover   string
	Closure string
}

// Renderer builds PDF bytes from quotation snapshots.
type Renderer struct {
	logger  *slog.Logger
	fetcher *ImageFetcher
	assets  Assets
}

// NewRenderer constructs a Renderer.
func NewRenderer(logger *slog.Logger, assets Assets, imageTimeout time.Duration) *Renderer {
	return &Renderer{
		logger:  logger,
		fetcher: NewImageFetcher(imageTimeout),
		assets:  assets,
	}
}

// FileName returns the download name for a company's quotation PDF.
func FileName(companyName string) string {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = "quotation"
	}
	return name + "_quotation.pdf"
}

// Render produces the complete document: cover, details page, paginated
// line-item table, summary table and closure page. Temp image files are
// removed on success and failure alike.
func (r *Renderer) Render(ctx context.Context, snap quotation.Snapshot) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "quotation-render-*")
	if err != nil {
		return nil, fmt.Errorf("render: temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	pdf := gofpdf.New("P", "mm", "A3", "")
	pdf.SetTitle("Quotation", false)
	pdf.SetMargins(marginSide, contentTop, marginSide)
	pdf.SetAutoPageBreak(false, 0)

	r.fullBleedPage(pdf, r.assets.Cover)
	r.detailsPage(pdf, snap.Details)
	r.productPages(ctx, pdf, snap, tmpDir)
	r.fullBleedPage(pdf, r.assets.Closure)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render: build document: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: output: %w", err)
	}
	return buf.Bytes(), nil
}

// fullBleedPage adds a page fully covered by a single image, skipped when
// the asset is missing.
func (r *Renderer) fullBleedPage(pdf *gofpdf.Fpdf, asset string) {
	if asset == "" {
		return
	}
	if _, err := os.Stat(asset); err != nil {
		r.logger.Warn("render asset missing", slog.String("path", asset))
		return
	}
	pdf.AddPage()
	pdf.ImageOptions(asset, 0, 0, pageWidth, pageHeight, false, gofpdf.ImageOptions{}, 0, "")
}

// contentPage adds a page decorated with header artwork, footer artwork and
// a page number.
func (r *Renderer) contentPage(pdf *gofpdf.Fpdf) {
	pdf.AddPage()

	if r.assets.Header != "" {
		if _, err := os.Stat(r.assets.Header); err == nil {
			info := pdf.RegisterImageOptions(r.assets.Header, gofpdf.ImageOptions{})
			if info != nil && info.Width() > 0 {
				h := pageWidth * info.Height() / info.Width()
				pdf.ImageOptions(r.assets.Header, 0, 0, pageWidth, h, false, gofpdf.ImageOptions{}, 0, "")
			}
		}
	}

	footerH := 0.0
	if r.assets.Footer != "" {
		if _, err := os.Stat(r.assets.Footer); err == nil {
			info := pdf.RegisterImageOptions(r.assets.Footer, gofpdf.ImageOptions{})
			if info != nil && info.Width() > 0 {
				footerH = pageWidth * info.Height() / info.Width()
				pdf.ImageOptions(r.assets.Footer, 0, pageHeight-footerH, pageWidth, footerH, false, gofpdf.ImageOptions{}, 0, "")
			}
		}
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(pageWidth-marginSide-20, pageHeight-footerH-12)
	pdf.CellFormat(20, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	pdf.SetXY(marginSide, contentTop)
}

// detailsPage writes the company/contact block, the terms block and the
// payment block. Optional fields appear only when set.
func (r *Renderer) detailsPage(pdf *gofpdf.Fpdf, d quotation.CompanyDetails) {
	r.contentPage(pdf)

	write := func(label, value string) {
		pdf.SetX(marginSide)
		pdf.SetFont("Helvetica", "B", detailFontSize)
		pdf.CellFormat(58, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", detailFontSize)
		pdf.MultiCell(tableWidth-58, 7, value, "", "L", false)
	}
	gap := func() { pdf.Ln(4) }

	write("Date:", d.CurrentDate)
	write("Valid Till:", d.ValidTill)
	write("Quotation Validity:", d.Validity)
	write("Prepared By:", d.PreparedBy)
	write("Email:", d.PreparedByEmail)
	gap()

	write("Contact Person:", d.ContactPerson)
	write("Company Name:", d.CompanyName)
	if d.Address != "" {
		write("Address:", d.Address)
	}
	write("Cell Phone:", d.ContactPhone)
	if d.ContactEmail != "" {
		write("Contact Email:", d.ContactEmail)
	}
	gap()

	pdf.SetFont("Helvetica", "B", detailFontSize)
	pdf.CellFormat(tableWidth, 8, "Terms and Conditions:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", detailFontSize)
	terms := []string{
		"Warranty: " + d.Warranty,
		fmt.Sprintf("Down payment: %.0f%% of the total invoice", d.DownPaymentPercent),
		"Delivery: " + d.Delivery,
		d.VATNote,
		d.ShippingNote,
	}
	for _, line := range terms {
		pdf.SetX(marginSide)
		pdf.MultiCell(tableWidth, 7, "- "+line, "", "L", false)
	}
	gap()

	pdf.SetFont("Helvetica", "B", detailFontSize)
	pdf.CellFormat(tableWidth, 8, "Payment Info:", "", 1, "L", false, 0, "")
	write("Bank:", d.Bank)
	write("IBAN:", d.IBAN)
	write("Account Number:", d.AccountNumber)
	write("Company:", d.LegalCompany)
	write("Tax ID:", d.TaxID)
	write("Commercial Reg. No:", d.RegNo)
}

type column struct {
	title string
	width float64
	align string
}

func tableColumns(withDiscount bool) []column {
	// The discount column borrows its width from the specs column so both
	// layouts fill the same table width.
	specsWidth := 67.0
	if withDiscount {
		specsWidth = 52
	}
	cols := []column{
		{"Ser.", 10, "C"},
		{"Item", 42, "C"},
		{"Image", 42, "C"},
		{"SKU", 22, "C"},
		{"Specs", specsWidth, "L"},
		{"Qty", 12, "C"},
		{"Unit Price", 24, "C"},
		{"Net Price", 24, "C"},
	}
	if withDiscount {
		cols = append(cols, column{"Discount %", 15, "C"})
	}
	return append(cols, column{"Line Total", 24, "C"})
}

// productPages renders the paginated line-item table and places the summary
// table after the last chunk, or on its own page when it does not fit.
func (r *Renderer) productPages(ctx context.Context, pdf *gofpdf.Fpdf, snap quotation.Snapshot, tmpDir string) {
	// The header row repeats on every table page.
	avail := pageHeight - contentTop - contentBottom - tableHeaderHeight
	chunks := paginate(len(snap.Lines), avail, rowHeight, summaryHeight)
	if len(chunks) == 0 {
		r.contentPage(pdf)
		r.summaryTable(pdf, snap)
		return
	}

	cols := tableColumns(snap.Totals.ItemLevelMode)
	summaryPlaced := false
	for _, c := range chunks {
		r.contentPage(pdf)
		y := r.tableHeader(pdf, cols)
		for i := c.Start; i < c.End; i++ {
			r.productRow(ctx, pdf, cols, snap, i, y, tmpDir)
			y += rowHeight
		}
		if c.SummaryOnPage {
			pdf.SetXY(marginSide, y+6)
			r.summaryTable(pdf, snap)
			summaryPlaced = true
		}
	}
	if !summaryPlaced {
		r.contentPage(pdf)
		r.summaryTable(pdf, snap)
	}
}

func (r *Renderer) tableHeader(pdf *gofpdf.Fpdf, cols []column) float64 {
	y := contentTop
	x := marginSide
	pdf.SetFont("Helvetica", "B", headerFontSize)
	pdf.SetFillColor(120, 120, 120)
	pdf.SetTextColor(245, 245, 245)
	pdf.SetXY(x, y)
	for _, col := range cols {
		pdf.CellFormat(col.width, tableHeaderHeight, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	return y + tableHeaderHeight
}

func (r *Renderer) productRow(ctx context.Context, pdf *gofpdf.Fpdf, cols []column, snap quotation.Snapshot, idx int, y float64, tmpDir string) {
	line := snap.Lines[idx]
	result := snap.Totals.Lines[idx]

	cells := make([]string, 0, len(cols))
	cells = append(cells,
		fmt.Sprintf("%d", idx+1),
		line.Item,
		"", // image cell drawn separately
		strings.ToUpper(line.SKU),
		specsText(line),
		fmt.Sprintf("%d", line.Quantity),
		money(line.UnitPrice),
		money(result.NetUnitPrice),
	)
	if snap.Totals.ItemLevelMode {
		cells = append(cells, fmt.Sprintf("%.0f%%", result.EffectiveDiscount))
	}
	cells = append(cells, money(result.Total))

	pdf.SetFont("Helvetica", "", bodyFontSize)
	x := marginSide
	for i, col := range cols {
		pdf.Rect(x, y, col.width, rowHeight, "D")
		if col.title == "Image" {
			r.imageCell(ctx, pdf, line.ImageURL, x, y, col.width, tmpDir)
		} else {
			pdf.SetXY(x+1.5, y+2)
			pdf.MultiCell(col.width-3, 5, cells[i], "", col.align, false)
		}
		x += col.width
	}
}

// imageCell embeds the fetched product image scaled into the cell box, or a
// text placeholder when the reference is empty or the fetch/decode fails.
func (r *Renderer) imageCell(ctx context.Context, pdf *gofpdf.Fpdf, url string, x, y, w float64, tmpDir string) {
	placeholder := func(text string) {
		pdf.SetXY(x, y+rowHeight/2-3)
		pdf.CellFormat(w, 6, text, "", 0, "C", false, 0, "")
	}
	if strings.TrimSpace(url) == "" {
		placeholder("No Image")
		return
	}

	path, err := r.fetcher.PrepareFile(ctx, url, tmpDir)
	if err != nil {
		r.logger.Warn("product image failed", slog.String("url", url), slog.Any("error", err))
		placeholder("Image Error")
		return
	}

	info := pdf.RegisterImageOptions(path, gofpdf.ImageOptions{})
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		placeholder("Image Error")
		return
	}
	boxW := w - 2*imagePad
	boxH := rowHeight - 2*imagePad
	drawW := boxW
	drawH := boxW * info.Height() / info.Width()
	if drawH > boxH {
		drawH = boxH
		drawW = boxH * info.Width() / info.Height()
	}
	pdf.ImageOptions(path, x+(w-drawW)/2, y+(rowHeight-drawH)/2, drawW, drawH, false, gofpdf.ImageOptions{}, 0, "")
}

// summaryTable writes the totals breakdown. Zero-amount rows are skipped
// apart from the subtotal, total-after-discount and grand total rows.
func (r *Renderer) summaryTable(pdf *gofpdf.Fpdf, snap quotation.Snapshot) {
	t := snap.Totals

	type row struct {
		label  string
		amount string
		bold   bool
	}
	rows := []row{{label: "Total", amount: money(t.Subtotal)}}
	if t.ItemDiscount > 0 {
		rows = append(rows, row{label: "Special Discount", amount: "- " + money(t.ItemDiscount)})
	}
	if t.OverallDiscount > 0 {
		rows = append(rows, row{label: fmt.Sprintf("Overall Discount (%.1f%%)", t.OverallDiscountPercent), amount: "- " + money(t.OverallDiscount)})
	}
	rows = append(rows, row{label: "Total After Discount", amount: money(t.FinalTotal)})
	if t.ShippingFee > 0 {
		rows = append(rows, row{label: "Shipping Fee", amount: money(t.ShippingFee)})
	}
	if t.InstallationFee > 0 {
		rows = append(rows, row{label: "Installation Fee", amount: money(t.InstallationFee)})
	}
	if t.VAT > 0 {
		rows = append(rows, row{label: fmt.Sprintf("VAT (%.0f%%)", t.VATRate*100), amount: money(t.VAT)})
	}
	rows = append(rows, row{label: "Grand Total", amount: money(t.GrandTotal), bold: true})

	labelW := tableWidth - 60
	y := pdf.GetY()
	pdf.SetY(y)
	for _, rw := range rows {
		pdf.SetX(marginSide)
		style := ""
		fill := false
		if rw.bold {
			style = "B"
			fill = true
			pdf.SetFillColor(225, 225, 225)
		}
		pdf.SetFont("Helvetica", style, headerFontSize)
		pdf.CellFormat(labelW, summaryRowH, rw.label, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(60, summaryRowH, rw.amount, "1", 1, "C", fill, 0, "")
	}
}

func specsText(line quotation.LineItem) string {
	var parts []string
	if line.Description != "" {
		parts = append(parts, line.Description)
	}
	if line.Color != "" {
		parts = append(parts, "Color: "+line.Color)
	}
	if line.Dimensions != "" {
		parts = append(parts, "Dimensions: "+line.Dimensions)
	}
	if line.Warranty != "" {
		parts = append(parts, "Warranty: "+line.Warranty)
	}
	return strings.Join(parts, "\n")
}

func money(v float64) string {
	return fmt.Sprintf("%.2f EGP", v)
}
