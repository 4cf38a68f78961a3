package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// docxText returns the run text of a Word document, one paragraph per line.
// Tabs and breaks inside a paragraph become spaces.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not a zip archive: %w", err)
	}
	part := docxDefaultPart
	if ct, err := readPart(zr, docxContentTypes); err == nil {
		var types contentTypes
		if xml.Unmarshal(ct, &types) == nil {
			for _, o := range types.Overrides {
				if o.ContentType == docxMainType {
					part = strings.TrimPrefix(o.PartName, "/")
					break
				}
			}
		}
	}
	body, err := readPart(zr, part)
	if err != nil {
		return "", err
	}
	return paragraphs(body)
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("part %s not found", name)
}

func paragraphs(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				line.WriteByte(' ')
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(line.String())
				out.WriteByte('\n')
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	out.WriteString(line.String())
	return out.String(), nil
}
