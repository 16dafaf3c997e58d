package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/stypes"

	"collisio/internal/analysis"
	"collisio/internal/report"
)

const (
	figureWidthIn = 5.5
	bodyPoints    = 11
	tableStyle    = "LightList-Accent1"
)

// WriteDOCX writes r as a Word document.
func WriteDOCX(w io.Writer, r *report.Report) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new docx: %w", err)
	}

	// Figures that cannot be decoded are reported on the cover and in place
	// of the picture, so a section never loses its image without a trace.
	broken := make(map[int]error)
	for _, s := range r.Sections {
		if s.HasFigure() {
			if _, err := figureSize(s.Image); err != nil {
				broken[s.Ordinal] = err
			}
		}
	}

	if err := writeCover(doc, r, broken); err != nil {
		return err
	}

	for _, s := range r.Sections {
		if _, err := doc.AddHeading(s.Heading(), 1); err != nil {
			return fmt.Errorf("section %d heading: %w", s.Ordinal, err)
		}
		if s.HasFigure() {
			if err := broken[s.Ordinal]; err != nil {
				doc.AddParagraph(fmt.Sprintf("[Figure %d could not be embedded: %v]", s.Ordinal, err)).
					Justification(stypes.JustificationCenter)
			} else {
				if err := addFigure(doc, s.Image); err != nil {
					return fmt.Errorf("section %d figure: %w", s.Ordinal, err)
				}
				caption := doc.AddEmptyParagraph()
				caption.Justification(stypes.JustificationCenter)
				caption.AddText(s.Caption()).Italic(true)
			}
		}
		addBody(doc, s.Text())
		if s.Hotspots != nil && s.Hotspots.Len() > 0 {
			if _, err := doc.AddHeading("Accident Hotspots", 2); err != nil {
				return err
			}
			addTable(doc, s.Hotspots)
		}
		doc.AddPageBreak()
	}

	if err := doc.Write(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func writeCover(doc *docx.RootDoc, r *report.Report, broken map[int]error) error {
	title, err := doc.AddHeading(r.Title, 0)
	if err != nil {
		return fmt.Errorf("title: %w", err)
	}
	title.Justification(stypes.JustificationCenter)
	doc.AddParagraph(r.Preparer).Justification(stypes.JustificationCenter)
	generated := doc.AddEmptyParagraph()
	generated.Justification(stypes.JustificationCenter)
	generated.AddText("Generated " + r.GeneratedAt.Format("January 2, 2006 15:04 MST")).Italic(true)

	notes := append([]string(nil), r.Warnings...)
	for _, s := range r.Sections {
		if err := broken[s.Ordinal]; err != nil {
			notes = append(notes, fmt.Sprintf("%s: figure could not be embedded: %v", s.Title, err))
		}
	}
	if len(notes) > 0 {
		if _, err := doc.AddHeading("Notes", 2); err != nil {
			return err
		}
		for _, note := range notes {
			doc.AddEmptyParagraph().AddText("• " + note).Size(bodyPoints)
		}
	}
	doc.AddPageBreak()
	return nil
}

// addBody writes one justified paragraph per line of text.
func addBody(doc *docx.RootDoc, text string) {
	for _, line := range strings.Split(text, "\n") {
		p := doc.AddEmptyParagraph()
		p.Justification(stypes.JustificationBoth)
		p.AddText(line).Size(bodyPoints)
	}
}

// addFigure embeds a PNG centred and 5.5 inches wide. godocx reads pictures
// from disk, so the image goes through a temporary file.
func addFigure(doc *docx.RootDoc, img []byte) error {
	cfg, err := figureSize(img)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "collisio-figure-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	height := figureWidthIn * float64(cfg.Height) / float64(cfg.Width)
	pic, err := doc.AddPicture(f.Name(), units.Inch(figureWidthIn), units.Inch(height))
	if err != nil {
		return err
	}
	pic.Para.Justification(stypes.JustificationCenter)
	return nil
}

func figureSize(img []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return cfg, err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return cfg, fmt.Errorf("empty image")
	}
	return cfg, nil
}

func addTable(doc *docx.RootDoc, t *analysis.FrequencyTable) {
	tbl := doc.AddTable()
	tbl.Style(tableStyle)

	header := tbl.AddRow()
	header.AddCell().AddParagraph(t.RowField)
	for _, c := range t.ColLabels {
		header.AddCell().AddParagraph(c)
	}
	for i, label := range t.RowLabels {
		row := tbl.AddRow()
		row.AddCell().AddParagraph(label)
		for _, n := range t.Counts[i] {
			row.AddCell().AddParagraph(fmt.Sprint(n))
		}
	}
}
