package dataset

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Reader loads a file into a Table.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt ReadOptions) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no registered reader handles the file.
var ErrUnsupported = errors.New("unsupported table format")

// ReadOptions controls how tables are read and how their numbers are parsed.
type ReadOptions struct {
	// Delimiter for CSV. If 0, chosen from the extension (',' or '\t').
	Delimiter rune
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used otherwise.
	Sheet      string
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	Number  NumberFormat
}

// ReadTable selects a reader based on the file name and reads the table.
func ReadTable(path string, opt ReadOptions) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func hasSuffixFold(name string, suffixes ...string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}
