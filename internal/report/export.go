package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Exporter renders a document into a file format
type Exporter interface {
	ContentType() string
	Extension() string
	Export(doc Document, w io.Writer) error
}

// Render runs the exporter into memory
func Render(e Exporter, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Export(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDFExporter writes A4 documents with the core Helvetica font
type PDFExporter struct {
	Author string
}

func (PDFExporter) ContentType() string { return "application/pdf" }
func (PDFExporter) Extension() string   { return ".pdf" }

// Export implements Exporter
func (e PDFExporter) Export(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title, true)
	if e.Author != "" {
		pdf.SetAuthor(e.Author, true)
	}
	if !doc.StartedAt.IsZero() {
		pdf.SetCreationDate(doc.StartedAt)
	}
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, b := range doc.Blocks() {
		switch b.Style {
		case StyleTitle:
			pdf.SetFont("Helvetica", "B", 18)
			pdf.MultiCell(0, 9, tr(b.Text), "", "L", false)
			pdf.Ln(3)
		case StyleHeading:
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 8, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case StyleLabel:
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(0, 6, tr(b.Text), "", "L", false)
		case StyleBody:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case StyleSpacer:
			pdf.Ln(4)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

// TextExporter writes plain text pages separated by form feeds
type TextExporter struct {
	Width        int
	LinesPerPage int
}

func (TextExporter) ContentType() string { return "text/plain; charset=utf-8" }
func (TextExporter) Extension() string   { return ".txt" }

// Export implements Exporter
func (e TextExporter) Export(doc Document, w io.Writer) error {
	width, lines := e.Width, e.LinesPerPage
	if width <= 0 {
		width = 80
	}
	if lines <= 0 {
		lines = 60
	}

	pages := Paginate(doc.Blocks(), width, lines)
	for i, page := range pages {
		if i > 0 {
			if _, err := io.WriteString(w, "\f\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, strings.Join(page, "\n")+"\n"); err != nil {
			return fmt.Errorf("failed to write text report: %w", err)
		}
	}
	return nil
}
