package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestReadCSV_HeaderAndPadding(t *testing.T) {
	path := writeFile(t, "t.csv",
		"\ufeffEntity, Code ,Year,Value",
		"Chad,TCD,2021,1.5",
		"Niger,NER,2021",
		`"Korea, South",KOR,2021,"2,5"`,
	)
	tb, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Entity", "Code", "Year", "Value"}, tb.Header)
	require.Len(t, tb.Rows, 3)
	assert.Equal(t, []string{"Niger", "NER", "2021", ""}, tb.Rows[1], "short row is padded")
	assert.Equal(t, "Korea, South", tb.Rows[2][0])
}

func TestReadCSV_TSVAndDelimiterOption(t *testing.T) {
	tsv := writeFile(t, "t.tsv", "a\tb", "1\t2")
	tb, err := ReadTable(tsv, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, tb.Header, 2)
	assert.Equal(t, "2", tb.Rows[0][1])

	semi := writeFile(t, "t.csv", "a;b", "1;2", "3;4")
	tb, err = ReadTable(semi, ReadOptions{Delimiter: ';', MaxRows: 1})
	require.NoError(t, err)
	assert.Len(t, tb.Header, 2)
	assert.Len(t, tb.Rows, 1)
}

func TestTable_ColumnNotFound(t *testing.T) {
	tb := &Table{Name: "x.csv", Header: []string{"Entity", "Year"}}
	i, err := tb.Column(" year ")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = tb.Column("Value")
	require.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Entity, Year", "error lists the available columns")
}

func TestParseNumber(t *testing.T) {
	auto := NumberFormat{}
	cases := []struct {
		in   string
		nf   NumberFormat
		want float64
		ok   bool
	}{
		{"1.5", auto, 1.5, true},
		{"0,5", auto, 0.5, true},
		{"1.000,25", auto, 1000.25, true},
		{"1,000.25", auto, 1000.25, true},
		{"12%", auto, 12, true},
		{" 7 ", auto, 7, true},
		{"-3e2", auto, -300, true},
		{"1.000", NumberFormat{DecimalSeparator: ',', ThousandsSeparator: '.'}, 1000, true},
		{"1,5", NumberFormat{DecimalSeparator: ','}, 1.5, true},
		{"1,234", auto, 1234, true},
		{"-12,345", auto, -12345, true},
		{"1,234,567", auto, 1234567, true},
		{"0,125", auto, 0.125, true},
		{"1,2345", auto, 1.2345, true},
		{"1,234", NumberFormat{DecimalSeparator: ','}, 1.234, true},
		{"", auto, 0, false},
		{"n/a", auto, 0, false},
		{"NaN", auto, 0, false},
		{"Inf", auto, 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in, c.nf)
		if !assert.Equal(t, c.ok, ok, "ParseNumber(%q)", c.in) || !ok {
			continue
		}
		assert.InDelta(t, c.want, got, 1e-12, "ParseNumber(%q)", c.in)
	}
}

func TestParseYear(t *testing.T) {
	for in, want := range map[string]int{"2021": 2021, " 1990 ": 1990, "2021.0": 2021} {
		got, ok := ParseYear(in)
		assert.True(t, ok, "ParseYear(%q)", in)
		assert.Equal(t, want, got, "ParseYear(%q)", in)
	}
	for _, in := range []string{"", "2021.5", "year"} {
		_, ok := ParseYear(in)
		assert.False(t, ok, "ParseYear(%q) should fail", in)
	}
}
