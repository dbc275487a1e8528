package exporter

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// Table materialises the dataset as a DataFrame in output column order
func Table(ds domain.Dataset) dataframe.DataFrame {
	cols := ds.Columns()
	values := make([][]string, len(cols))
	for i := range values {
		values[i] = make([]string, len(ds.Rows))
	}

	nSubs := len(ds.SubIndicatorNames)
	for r, row := range ds.Rows {
		values[0][r] = formatDate(row.Date)
		values[1][r] = formatFloat(row.MarketReturn)
		values[2][r] = formatFloat(row.CSAD)
		values[3][r] = formatFloat(row.CSSD)
		values[4][r] = formatFloat(row.StringencyIndex)
		for j := 0; j < nSubs; j++ {
			v := 0.0
			if j < len(row.SubIndicators) {
				v = row.SubIndicators[j]
			}
			values[5+j][r] = formatFloat(v)
		}
		values[5+nSubs][r] = formatFloat(row.PopulationVaccinated)
		values[6+nSubs][r] = formatFloat(row.RollingDeaths)
		values[7+nSubs][r] = formatFloat(row.Cases)
	}

	return newStringFrame(cols, values)
}

// CrossSectionColumns is the header of the per-date cross-section table
var CrossSectionColumns = []string{"date", "n", "market_return", "csad", "cssd"}

// CrossSectionTable materialises per-date cross-sections as a DataFrame
func CrossSectionTable(sections []domain.DailyCrossSection) dataframe.DataFrame {
	values := make([][]string, len(CrossSectionColumns))
	for i := range values {
		values[i] = make([]string, len(sections))
	}

	for r, cs := range sections {
		values[0][r] = formatDate(cs.Date)
		values[1][r] = formatInt(cs.N)
		values[2][r] = formatFloat(cs.MarketReturn)
		values[3][r] = formatFloat(cs.CSAD)
		values[4][r] = formatFloat(cs.CSSD)
	}

	return newStringFrame(CrossSectionColumns, values)
}

func newStringFrame(names []string, values [][]string) dataframe.DataFrame {
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New(values[i], series.String, name)
	}
	return dataframe.New(cols...)
}
