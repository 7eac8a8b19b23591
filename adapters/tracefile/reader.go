package tracefile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gohbm/domain/node"
	"gohbm/internal"
	"gohbm/internal/errors"
	"gohbm/ports"
)

// Reader loads sampler traces from a CSV or XLSX file.
//
// The first row names the parameters and every following row is one
// iteration. An XLSX workbook holds one chain per sheet; a CSV file holds a
// single chain.
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewReader creates a reader, picking the format from the file extension
func NewReader(filePath string, logger *internal.Logger) *Reader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{filePath: filePath, fileType: fileType, logger: logger}
}

// ReadChains returns one trace source per chain in the file
func (r *Reader) ReadChains() ([]ports.TraceSource, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		nodes, err := r.readCSV()
		if err != nil {
			return nil, err
		}
		return []ports.TraceSource{nodes}, nil
	default:
		return r.readWorkbook()
	}
}

// ReadChain returns the first chain in the file
func (r *Reader) ReadChain() (ports.TraceSource, error) {
	chains, err := r.ReadChains()
	if err != nil {
		return nil, err
	}
	return chains[0], nil
}

func (r *Reader) readCSV() (node.Nodes, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	start := time.Now()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.TraceFormat(r.filePath, err)
	}
	r.logger.Debug("CSV file %s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	nodes, err := ParseRows(rows)
	if err != nil {
		return nil, errors.TraceFormat(r.filePath, err)
	}
	return nodes, nil
}

func (r *Reader) readWorkbook() ([]ports.TraceSource, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	var chains []ports.TraceSource
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.TraceFormat(r.filePath+":"+sheet, err)
		}
		nodes, err := ParseRows(rows)
		if err != nil {
			return nil, errors.TraceFormat(r.filePath+":"+sheet, err)
		}
		chains = append(chains, nodes)
	}
	if len(chains) == 0 {
		return nil, errors.TraceFormat(r.filePath, fmt.Errorf("workbook has no sheets"))
	}

	r.logger.Debug("Excel file %s read in %.2fms (%d chains)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(chains))
	return chains, nil
}

// ParseRows converts a header row plus one row per iteration into nodes in
// header order. A blank cell ends that column's trace.
func ParseRows(rows [][]string) (node.Nodes, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("need a header row and at least one sample row")
	}

	header := make([]string, len(rows[0]))
	copy(header, rows[0])
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has no parameter name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter name %q", name)
		}
		seen[name] = true
		header[i] = name
	}

	traces := make([][]float64, len(header))
	ended := make([]bool, len(header))
	for r, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", r+2, len(row), len(header))
		}
		for c := range header {
			cell := ""
			if c < len(row) {
				cell = strings.TrimSpace(row[c])
			}
			if cell == "" {
				ended[c] = true
				continue
			}
			if ended[c] {
				return nil, fmt.Errorf("row %d: %s has a gap in its trace", r+2, header[c])
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", r+2, header[c], err)
			}
			traces[c] = append(traces[c], v)
		}
	}

	nodes := make(node.Nodes, len(header))
	for i, name := range header {
		nodes[i] = node.New(name, traces[i])
	}
	return nodes, nil
}
