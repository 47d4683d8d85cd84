package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"exemplarparty/internal/model"
)

// ExportService renders the game log as CSV
type ExportService struct {
	source ExportSource
}

func NewExportService(source ExportSource) *ExportService {
	return &ExportService{source: source}
}

func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.source.ExportRows(ctx)
	if err != nil {
		return fmt.Errorf("export rows: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(model.ExportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
