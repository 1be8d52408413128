package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Open reads the .docx file at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Read(f, info.Size())
}

// Read decodes a .docx archive from r.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening docx archive: %w", err)
	}

	var docPart *zip.File
	for _, zf := range zr.File {
		if zf.Name == "word/document.xml" {
			docPart = zf
			break
		}
	}
	if docPart == nil {
		return nil, errors.New("word/document.xml missing from archive")
	}

	rc, err := docPart.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var wire xmlDocument
	if err := xml.NewDecoder(rc).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding document.xml: %w", err)
	}
	return fromWire(wire), nil
}

// Wire structs match elements by local name so any w: prefix binding works.

type xmlDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    xmlBody  `xml:"body"`
}

type xmlBody struct {
	Children []xmlBodyChild `xml:",any"`
}

type xmlBodyChild struct {
	XMLName xml.Name
	Props   *xmlParaProps `xml:"pPr"`
	Runs    []xmlRun      `xml:"r"`
	Rows    []xmlTableRow `xml:"tr"`
}

type xmlParaProps struct {
	Style   *xmlValAttr `xml:"pStyle"`
	Jc      *xmlValAttr `xml:"jc"`
	Indent  *xmlIndent  `xml:"ind"`
	Spacing *xmlSpacing `xml:"spacing"`
}

type xmlValAttr struct {
	Val string `xml:"val,attr"`
}

type xmlIndent struct {
	Left  string `xml:"left,attr"`
	Right string `xml:"right,attr"`
}

type xmlSpacing struct {
	Before string `xml:"before,attr"`
	After  string `xml:"after,attr"`
}

type xmlRun struct {
	Props *xmlRunProps `xml:"rPr"`
	Text  []xmlText    `xml:"t"`
}

type xmlRunProps struct {
	Fonts     *xmlFonts   `xml:"rFonts"`
	Bold      *xmlOnOff   `xml:"b"`
	Italic    *xmlOnOff   `xml:"i"`
	Color     *xmlValAttr `xml:"color"`
	Size      *xmlValAttr `xml:"sz"`
	Underline *xmlValAttr `xml:"u"`
}

type xmlOnOff struct {
	Val string `xml:"val,attr"`
}

type xmlFonts struct {
	ASCII string `xml:"ascii,attr"`
}

type xmlText struct {
	Value string `xml:",chardata"`
}

type xmlTableRow struct {
	Cells []xmlTableCell `xml:"tc"`
}

type xmlTableCell struct {
	Paras []xmlPara `xml:"p"`
}

type xmlPara struct {
	Props *xmlParaProps `xml:"pPr"`
	Runs  []xmlRun      `xml:"r"`
}

func fromWire(wire xmlDocument) *Document {
	doc := New()
	for _, child := range wire.Body.Children {
		switch child.XMLName.Local {
		case "p":
			doc.Body = append(doc.Body, Element{Para: buildParagraph(child.Props, child.Runs)})
		case "tbl":
			doc.Body = append(doc.Body, Element{Tbl: buildTable(child.Rows)})
		}
	}
	return doc
}

func buildParagraph(props *xmlParaProps, runs []xmlRun) *Paragraph {
	p := &Paragraph{}
	if props != nil {
		if props.Style != nil {
			p.Style = props.Style.Val
		}
		if props.Jc != nil {
			p.Alignment = props.Jc.Val
		}
		if props.Indent != nil {
			p.IndentLeft = parseTwips(props.Indent.Left)
			p.IndentRight = parseTwips(props.Indent.Right)
		}
		if props.Spacing != nil {
			p.SpaceBefore = parseTwips(props.Spacing.Before)
			p.SpaceAfter = parseTwips(props.Spacing.After)
		}
	}
	for _, r := range runs {
		p.Runs = append(p.Runs, buildRun(r))
	}
	return p
}

func buildRun(wire xmlRun) Run {
	var texts []string
	for _, t := range wire.Text {
		texts = append(texts, t.Value)
	}
	r := Run{Text: strings.Join(texts, "")}

	props := wire.Props
	if props == nil {
		return r
	}
	r.Bold = onOff(props.Bold)
	r.Italic = onOff(props.Italic)
	r.Underline = props.Underline != nil && props.Underline.Val != "none"
	if props.Size != nil {
		if half, err := strconv.ParseFloat(props.Size.Val, 64); err == nil {
			r.Size = half / 2
		}
	}
	if props.Fonts != nil {
		r.Font = props.Fonts.ASCII
	}
	if props.Color != nil {
		r.Color = props.Color.Val
	}
	return r
}

func buildTable(rows []xmlTableRow) *Table {
	t := &Table{}
	for _, row := range rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			var paras []string
			for _, p := range cell.Paras {
				paras = append(paras, buildParagraph(p.Props, p.Runs).Text())
			}
			cells = append(cells, strings.Join(paras, "\n"))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// onOff reads a toggle property: present with no val (or a truthy val) is on.
func onOff(v *xmlOnOff) bool {
	return v != nil && v.Val != "false" && v.Val != "0"
}

func parseTwips(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
