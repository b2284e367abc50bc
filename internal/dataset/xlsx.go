package dataset

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(p string) bool { return hasSuffixFold(p, ".xlsx") }

func (xlsxReader) Read(p string, opt ReadOptions) (*Table, error) { return ReadXLSX(p, opt) }

type xlsxWorkbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxWorksheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// ReadXLSX reads one worksheet of an .xlsx workbook. The first row is the
// header. Sheet selection is by ReadOptions.Sheet name, then by
// ReadOptions.SheetIndex (1-based), defaulting to the first sheet.
func ReadXLSX(p string, opt ReadOptions) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRelationships
	if err := decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
	}

	target := ""
	if opt.Sheet != "" {
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			names = append(names, s.Name)
			if strings.EqualFold(s.Name, opt.Sheet) {
				target = targets[s.RID]
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet %q not found in workbook %q (available: %s)",
				opt.Sheet, filepath.Base(p), strings.Join(names, ", "))
		}
	}
	if target == "" {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		for _, s := range wb.Sheets {
			if s.SheetID == idx {
				target = targets[s.RID]
				break
			}
		}
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", idx)
		}
	}

	var shared xlsxSharedStrings
	if err := decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &shared); err != nil {
		return nil, err
	}
	strs := make([]string, len(shared.Items))
	for i, si := range shared.Items {
		if len(si.Runs) == 0 {
			strs[i] = si.T
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		strs[i] = b.String()
	}

	var ws xlsxWorksheet
	if !hasZipFile(&zr.Reader, target) {
		return nil, fmt.Errorf("worksheet %s missing from %s", target, filepath.Base(p))
	}
	if err := decodeZipXML(&zr.Reader, target, &ws); err != nil {
		return nil, err
	}

	t := &Table{Name: filepath.Base(p)}
	for ri, row := range ws.Rows {
		var vals []string
		for ci, c := range row.Cells {
			col := ci
			if c.Ref != "" {
				col = colIndexFromRef(c.Ref)
			}
			if col < 0 {
				continue
			}
			for len(vals) <= col {
				vals = append(vals, "")
			}
			switch c.Type {
			case "s":
				if i, err := strconv.Atoi(strings.TrimSpace(c.Value)); err == nil && i >= 0 && i < len(strs) {
					vals[col] = strs[i]
				}
			case "inlineStr":
				vals[col] = c.Inline.T
			default:
				vals[col] = c.Value
			}
		}
		if ri == 0 {
			for i := range vals {
				vals[i] = strings.TrimSpace(vals[i])
			}
			t.Header = vals
			continue
		}
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			break
		}
		t.Rows = append(t.Rows, normalizeRow(vals, len(t.Header)))
	}
	return t, nil
}

func hasZipFile(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// decodeZipXML unmarshals the named entry into v. A missing entry leaves v
// untouched.
func decodeZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := xml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return nil
}

// colIndexFromRef maps a cell reference such as "C12" to its 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

// normalizeRelPath turns a workbook relationship target into a zip entry
// name. Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative
// to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return path.Clean(rel)
	}
	return path.Join("xl", rel)
}
