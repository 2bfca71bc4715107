package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
)

// Page geometry in twentieths of a point, and the estimate used to decide
// where DOCX entries must start a new page.
const (
	docxMargin       = 1440
	docxCharsPerLine = 90
	docxLinesA4      = 46
	docxLinesLetter  = 43
	docxHangingTwips = 720
)

type docxParagraph struct {
	Style           string
	Lines           []string
	KeepLines       bool
	PageBreakBefore bool
	Hanging         bool
	Divider         bool
}

type docxData struct {
	Title       string
	Style       string
	GeneratedOn string
	Created     string
	PageWidth   int
	PageHeight  int
	Margin      int
	Hanging     int
	Paragraphs  []docxParagraph
}

var docxTemplates = template.Must(template.New("docx").Funcs(template.FuncMap{"xml": xmlEscape}).Parse(docxTemplateText))

// DOCX renders the request as a WordprocessingML document: a header with
// the style name, a footer with the generation date and page number, the
// file name as a heading, the citation body, and when footnotes exist a
// divider, a references heading and the entries. Entries never split across
// pages and start a new page when the estimate says they would overflow.
func DOCX(req Request, opts Options) (art *Artifact, err error) {
	defer guard(KindDOCX, req, &art, &err)

	doc := buildDocument(req)
	data := docxData{
		Title:       doc.Title,
		Style:       doc.Style,
		GeneratedOn: doc.GeneratedOn,
		Margin:      docxMargin,
		Hanging:     docxHangingTwips,
	}
	if !req.Generated.IsZero() {
		data.Created = req.Generated.UTC().Format("2006-01-02T15:04:05Z")
	}

	capacity := docxLinesA4
	data.PageWidth, data.PageHeight = 11906, 16838
	if pageSize(opts.PageSize) == "Letter" {
		capacity = docxLinesLetter
		data.PageWidth, data.PageHeight = 12240, 15840
	}
	if opts.LinesPerPage > 0 {
		capacity = opts.LinesPerPage
	}

	paras := []docxParagraph{
		{Style: "Title", Lines: []string{doc.Title}},
		{Style: "Subtitle", Lines: []string{doc.Meta}},
	}
	for _, body := range doc.Body {
		paras = append(paras, docxParagraph{Style: "BodyText", Lines: strings.Split(body, "\n")})
	}
	firstEntry := len(paras)
	if len(doc.Entries) > 0 {
		paras = append(paras,
			docxParagraph{Style: "Divider", Lines: []string{""}, Divider: true},
			docxParagraph{Style: "Heading1", Lines: []string{doc.RefsTitle}},
		)
		firstEntry = len(paras)
		for _, entry := range doc.Entries {
			paras = append(paras, docxParagraph{
				Style:     "Reference",
				Lines:     strings.Split(entry, "\n"),
				KeepLines: true,
				Hanging:   doc.Hanging,
			})
		}
	}

	heights := make([]int, len(paras))
	for i, p := range paras {
		heights[i] = estimateLines(strings.Join(p.Lines, "\n"), docxCharsPerLine)
	}
	for i, brk := range Paginate(heights, capacity) {
		if i >= firstEntry && brk {
			paras[i].PageBreakBefore = true
		}
	}
	data.Paragraphs = paras

	out, err := writeDocx(data)
	if err != nil {
		return nil, &Error{Kind: KindDOCX, FileName: req.FileName, Err: err}
	}
	return &Artifact{
		FileName:    FileName(req.FileName, KindDOCX.Ext()),
		ContentType: KindDOCX.ContentType(),
		Data:        out,
	}, nil
}

var docxParts = []struct {
	name     string
	template string
}{
	{"[Content_Types].xml", "content_types"},
	{"_rels/.rels", "rels"},
	{"docProps/core.xml", "core"},
	{"word/_rels/document.xml.rels", "document_rels"},
	{"word/document.xml", "document"},
	{"word/styles.xml", "styles"},
	{"word/header1.xml", "header"},
	{"word/footer1.xml", "footer"},
}

func writeDocx(data docxData) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range docxParts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if err := docxTemplates.ExecuteTemplate(f, part.template, data); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

const docxTemplateText = `
{{- define "content_types" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>
<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>
{{- end -}}

{{- define "rels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>
{{- end -}}

{{- define "core" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>{{xml .Title}}</dc:title>
<dc:subject>{{xml .Style}} citation</dc:subject>
<dc:creator>citation-mcp</dc:creator>
{{- if .Created}}
<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>
{{- end}}
</cp:coreProperties>
{{- end -}}

{{- define "document_rels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rIdHeader" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>
<Relationship Id="rIdFooter" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>
</Relationships>
{{- end -}}

{{- define "document" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
{{- range .Paragraphs}}
<w:p><w:pPr><w:pStyle w:val="{{.Style}}"/>
{{- if .KeepLines}}<w:keepLines/>{{end}}
{{- if .PageBreakBefore}}<w:pageBreakBefore/>{{end}}
{{- if .Divider}}<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="A0A0A0"/></w:pBdr>{{end}}
{{- if .Hanging}}<w:ind w:left="{{$.Hanging}}" w:hanging="{{$.Hanging}}"/>{{end -}}
</w:pPr>
{{- range $i, $line := .Lines}}{{if $i}}<w:r><w:br/></w:r>{{end}}<w:r><w:t xml:space="preserve">{{xml $line}}</w:t></w:r>{{end -}}
</w:p>
{{- end}}
<w:sectPr><w:headerReference w:type="default" r:id="rIdHeader"/><w:footerReference w:type="default" r:id="rIdFooter"/><w:pgSz w:w="{{.PageWidth}}" w:h="{{.PageHeight}}"/><w:pgMar w:top="{{.Margin}}" w:right="{{.Margin}}" w:bottom="{{.Margin}}" w:left="{{.Margin}}" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>
</w:body>
</w:document>
{{- end -}}

{{- define "styles" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman" w:cs="Times New Roman"/><w:sz w:val="24"/></w:rPr></w:rPrDefault><w:pPrDefault><w:pPr><w:spacing w:after="120"/></w:pPr></w:pPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:after="60"/></w:pPr><w:rPr><w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:b/><w:sz w:val="32"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Subtitle"><w:name w:val="Subtitle"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:color w:val="5A5A5A"/><w:sz w:val="20"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="BodyText"><w:name w:val="Body Text"/><w:basedOn w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Divider"><w:name w:val="Divider"/><w:basedOn w:val="Normal"/><w:pPr><w:spacing w:before="240" w:after="240"/></w:pPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Reference"/><w:pPr><w:keepNext/><w:spacing w:before="120" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Reference"><w:name w:val="Reference"/><w:basedOn w:val="Normal"/><w:rPr><w:sz w:val="22"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Header"><w:name w:val="header"/><w:basedOn w:val="Normal"/><w:rPr><w:i/><w:sz w:val="16"/></w:rPr></w:style>
</w:styles>
{{- end -}}

{{- define "header" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:p><w:pPr><w:pStyle w:val="Header"/><w:jc w:val="right"/></w:pPr><w:r><w:t xml:space="preserve">{{xml .Style}} citation</w:t></w:r></w:p>
</w:hdr>
{{- end -}}

{{- define "footer" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:p><w:pPr><w:pStyle w:val="Header"/><w:jc w:val="center"/></w:pPr><w:r><w:t xml:space="preserve">Generated {{xml .GeneratedOn}} · Page </w:t></w:r><w:fldSimple w:instr="PAGE"><w:r><w:t>1</w:t></w:r></w:fldSimple></w:p>
</w:ftr>
{{- end -}}
`
