package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const packageRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

// stylesXML defines Normal plus three heading styles so styled output renders
// in any viewer. Sizes are half-points.
const stylesXML = xmlHeader +
	`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`</w:styles>`

// Save writes the document to a .docx file at path.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write emits the document as a .docx archive.
func (d *Document) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", d.documentXML()},
	}
	for _, part := range parts {
		pw, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(pw, part.body); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (d *Document) documentXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, el := range d.Body {
		switch {
		case el.Para != nil:
			writeParagraph(&b, el.Para)
		case el.Tbl != nil:
			writeTable(&b, el.Tbl)
		}
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func writeParagraph(b *strings.Builder, p *Paragraph) {
	b.WriteString("<w:p>")
	writeParaProps(b, p)
	for _, r := range p.Runs {
		writeRun(b, r)
	}
	b.WriteString("</w:p>")
}

func writeParaProps(b *strings.Builder, p *Paragraph) {
	plain := p.Style == "" && p.Alignment == "" &&
		p.IndentLeft == 0 && p.IndentRight == 0 &&
		p.SpaceBefore == 0 && p.SpaceAfter == 0
	if plain {
		return
	}

	b.WriteString("<w:pPr>")
	if p.Style != "" {
		fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, escape(p.Style))
	}
	if p.SpaceBefore != 0 || p.SpaceAfter != 0 {
		b.WriteString("<w:spacing")
		if p.SpaceBefore != 0 {
			fmt.Fprintf(b, ` w:before="%d"`, p.SpaceBefore)
		}
		if p.SpaceAfter != 0 {
			fmt.Fprintf(b, ` w:after="%d"`, p.SpaceAfter)
		}
		b.WriteString("/>")
	}
	if p.IndentLeft != 0 || p.IndentRight != 0 {
		b.WriteString("<w:ind")
		if p.IndentLeft != 0 {
			fmt.Fprintf(b, ` w:left="%d"`, p.IndentLeft)
		}
		if p.IndentRight != 0 {
			fmt.Fprintf(b, ` w:right="%d"`, p.IndentRight)
		}
		b.WriteString("/>")
	}
	if p.Alignment != "" {
		fmt.Fprintf(b, `<w:jc w:val="%s"/>`, escape(p.Alignment))
	}
	b.WriteString("</w:pPr>")
}

func writeRun(b *strings.Builder, r Run) {
	b.WriteString("<w:r>")
	writeRunProps(b, r)
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escape(r.Text))
	b.WriteString("</w:r>")
}

func writeRunProps(b *strings.Builder, r Run) {
	plain := !r.Bold && !r.Italic && !r.Underline &&
		r.Size == 0 && r.Font == "" && r.Color == ""
	if plain {
		return
	}

	b.WriteString("<w:rPr>")
	if r.Font != "" {
		fmt.Fprintf(b, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, escape(r.Font), escape(r.Font))
	}
	if r.Bold {
		b.WriteString("<w:b/>")
	}
	if r.Italic {
		b.WriteString("<w:i/>")
	}
	if r.Color != "" {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, escape(r.Color))
	}
	if r.Size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, int(math.Round(r.Size*2)))
	}
	if r.Underline {
		b.WriteString(`<w:u w:val="single"/>`)
	}
	b.WriteString("</w:rPr>")
}

var tableBorderEdges = []string{"top", "left", "bottom", "right", "insideH", "insideV"}

func writeTable(b *strings.Builder, t *Table) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, edge := range tableBorderEdges {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, edge)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)

	for _, row := range t.Rows {
		b.WriteString("<w:tr>")
		for _, cell := range row {
			b.WriteString("<w:tc>")
			for _, line := range strings.Split(cell, "\n") {
				b.WriteString("<w:p>")
				if line != "" {
					fmt.Fprintf(b, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, escape(line))
				}
				b.WriteString("</w:p>")
			}
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
