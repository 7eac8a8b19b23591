package tracefile

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"gohbm/domain/node"
	"gohbm/internal/errors"
	"gohbm/internal/summary"
)

const statsSheet = "stats"

// WriteStats exports a summary table to an XLSX workbook, one row per node
func WriteStats(path string, stats map[string]summary.Stats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statsSheet); err != nil {
		return errors.Wrap(err, "failed to name stats sheet")
	}

	header := []interface{}{"name", "mean", "std", "hpd_lower", "hpd_upper", "mc_err"}
	for _, q := range summary.QuantileLevels {
		header = append(header, fmt.Sprintf("q%g", q))
	}
	if err := f.SetSheetRow(statsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write stats header")
	}

	for i, name := range summary.Names(stats) {
		s := stats[name]
		row := []interface{}{name, s.Mean, s.StdDev, s.HPD.Lower, s.HPD.Upper, s.MCError}
		for _, q := range summary.QuantileLevels {
			row = append(row, cellValue(s.Quantile(q)))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to address stats row")
		}
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write stats for %s", name)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// WriteChains writes chains to an XLSX workbook, one sheet per chain, in the
// layout ReadChains expects.
func WriteChains(path string, chains []node.Nodes) error {
	f := excelize.NewFile()
	defer f.Close()

	for c, nodes := range chains {
		sheet := fmt.Sprintf("chain%d", c)
		if c == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return errors.Wrap(err, "failed to name chain sheet")
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "failed to add sheet %s", sheet)
		}

		for col, n := range nodes {
			values := make([]interface{}, 0, len(n.Trace())+1)
			values = append(values, n.Name())
			for _, v := range n.Trace() {
				values = append(values, v)
			}
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return errors.Wrap(err, "failed to address trace column")
			}
			if err := f.SetSheetCol(sheet, cell, &values); err != nil {
				return errors.Wrapf(err, "failed to write trace %s", n.Name())
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// cellValue leaves cells blank for values Excel cannot store
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
