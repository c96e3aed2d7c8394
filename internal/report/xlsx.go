// Package report exports ranked favorites as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/coinpilot/internal/scoring"
)

// FavoritesSheet is the worksheet name used by WriteFavorites.
const FavoritesSheet = "Favorites"

var favoriteHeaders = []string{
	"Rank", "Badge", "Symbol", "Name", "Price", "24h %", "Liquidity", "Risk", "Market Cap", "Score",
}

// WriteFavorites writes ranked favorites as an xlsx workbook to w.
func WriteFavorites(w io.Writer, userID string, ranked []scoring.RankedFavorite) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FavoritesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Favorites",
		Subject: userID,
		Creator: "coinpilot",
	}); err != nil {
		return fmt.Errorf("doc props: %w", err)
	}

	for i, h := range favoriteHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(FavoritesSheet, cell, h); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(favoriteHeaders), 1)
	if err := f.SetCellStyle(FavoritesSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range ranked {
		c := r.Candidate
		row := []interface{}{
			r.Rank, r.Badge, c.Symbol, c.Name, c.Price, c.Growth,
			string(c.Liquidity), string(c.Risk), c.MarketCap, r.Score,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(FavoritesSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(FavoritesSheet, "C", "D", 14); err != nil {
		return err
	}
	if err := f.SetPanes(FavoritesSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	return f.Write(w)
}
