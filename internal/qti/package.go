package qti

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mind-engage/tutorgrade/internal/problem"
)

type imsManifest struct {
	XMLName   xml.Name      `xml:"manifest"`
	Xmlns     string        `xml:"xmlns,attr,omitempty"`
	Resources []imsResource `xml:"resources>resource"`
}

type imsResource struct {
	Identifier string    `xml:"identifier,attr"`
	Type       string    `xml:"type,attr"`
	Href       string    `xml:"href,attr"`
	Files      []imsFile `xml:"file"`
}

type imsFile struct {
	Href string `xml:"href,attr"`
}

const maxItemBytes = 4 << 20

// ReadPackage reads every item listed in the package manifest, in manifest order.
func ReadPackage(r io.ReaderAt, size int64) ([]problem.Question, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("qti package: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Clean(f.Name)] = f
	}

	var mf *zip.File
	for _, name := range []string{"imsmanifest.xml", "manifest.xml"} {
		if f, ok := files[name]; ok {
			mf = f
			break
		}
	}
	if mf == nil {
		return nil, errors.New("qti package: imsmanifest.xml not found")
	}
	b, err := readZipFile(mf)
	if err != nil {
		return nil, err
	}
	var m imsManifest
	if err := xml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("qti manifest: %w", err)
	}

	var out []problem.Question
	for _, res := range m.Resources {
		href := path.Clean(res.Href)
		if !strings.HasSuffix(strings.ToLower(href), ".xml") || strings.Contains(strings.ToLower(href), "manifest") {
			continue
		}
		f, ok := files[href]
		if !ok {
			return nil, fmt.Errorf("qti package: %s listed in manifest but missing", href)
		}
		b, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		q, err := ParseItem(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", href, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxItemBytes))
}

// WritePackage writes qs as a QTI 2.1 content package.
func WritePackage(w io.Writer, qs []problem.Question) error {
	zw := zip.NewWriter(w)
	m := imsManifest{Xmlns: "http://www.imsglobal.org/xsd/imscp_v1p1"}
	for _, q := range qs {
		name := safeName(q.ID) + ".xml"
		m.Resources = append(m.Resources, imsResource{
			Identifier: q.ID,
			Type:       "imsqti_item_xmlv2p1",
			Href:       name,
			Files:      []imsFile{{Href: name}},
		})
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		if err := writeItem(fw, q); err != nil {
			return fmt.Errorf("item %s: %w", q.ID, err)
		}
	}
	mw, err := zw.Create("imsmanifest.xml")
	if err != nil {
		return err
	}
	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(mw, xml.Header); err != nil {
		return err
	}
	if _, err := mw.Write(b); err != nil {
		return err
	}
	return zw.Close()
}

func safeName(id string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, id)
	if s == "" {
		return "item"
	}
	return s
}

// PackageBytes is WritePackage into memory.
func PackageBytes(qs []problem.Question) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePackage(&buf, qs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
