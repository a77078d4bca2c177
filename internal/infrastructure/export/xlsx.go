// Package export renders the final session report handed back to the firm
// once an import is done. One workbook per session: a summary sheet,
// per-batch progress, categories, and the validated cluster list.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type XLSXWriter struct {
	outputDir string
}

func NewXLSXWriter(outputDir string) (*XLSXWriter, error) {
	if outputDir == "" {
		outputDir = "./data/reports"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &XLSXWriter{outputDir: outputDir}, nil
}

func (w *XLSXWriter) WriteSessionReport(
	ctx context.Context,
	session *domain.ImportSession,
	batches []domain.DocumentBatch,
	categories []domain.ImportCategory,
	clusters []domain.DocumentCluster,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, session); err != nil {
		return "", err
	}
	if err := writeBatchSheet(f, batches); err != nil {
		return "", err
	}
	if err := writeCategorySheet(f, categories); err != nil {
		return "", err
	}
	if err := writeClusterSheet(f, clusters); err != nil {
		return "", err
	}
	// excelize starts every workbook with "Sheet1"; everything of value
	// lives in the named sheets.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("delete default sheet: %w", err)
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("import-%s-%s.xlsx",
		session.ID, time.Now().UTC().Format("20060102-150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func writeSummarySheet(f *excelize.File, session *domain.ImportSession) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]any{
		{"Session", session.ID},
		{"Firm", session.FirmID},
		{"Status", string(session.Status)},
		{"Total documents", session.TotalDocuments},
		{"Categorized", session.CategorizedDocs},
		{"Skipped", session.SkippedDocs},
		{"Created", session.CreatedAt.Format(time.RFC3339)},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeBatchSheet(f *excelize.File, batches []domain.DocumentBatch) error {
	const sheet = "Batches"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"Month", "Assigned to", "Documents", "Categorized", "Skipped", "Completed"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	for i := range batches {
		batch := &batches[i]
		completed := ""
		if batch.CompletedAt != nil {
			completed = batch.CompletedAt.Format(time.RFC3339)
		}
		row := []any{
			batch.MonthYear, batch.AssignedTo, batch.DocumentCount,
			batch.CategorizedCount, batch.SkippedCount, completed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write batch row: %w", err)
		}
	}
	return nil
}

func writeCategorySheet(f *excelize.File, categories []domain.ImportCategory) error {
	const sheet = "Categories"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"Name", "Documents", "Merged into"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write category header: %w", err)
	}
	for i := range categories {
		row := []any{categories[i].Name, categories[i].DocumentCount, categories[i].MergedInto}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write category row: %w", err)
		}
	}
	return nil
}

func writeClusterSheet(f *excelize.File, clusters []domain.DocumentCluster) error {
	const sheet = "Clusters"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"Name", "Status", "Documents", "Validated by"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write cluster header: %w", err)
	}
	row := 2
	for i := range clusters {
		cluster := &clusters[i]
		if cluster.IsDeleted {
			continue
		}
		name := cluster.ApprovedName
		if name == "" {
			name = cluster.SuggestedName
		}
		values := []any{name, string(cluster.Status), cluster.DocumentCount, cluster.ValidatedBy}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write cluster row: %w", err)
		}
		row++
	}
	return nil
}
