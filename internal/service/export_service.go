package service

import (
	"bytes"
	"context"
	"fmt"

	"vitalink-data/internal/domain"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/vitals"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportService renders a patient's daily aggregates as an Excel workbook,
// one sheet per metric, for clinicians who want the data outside the app.
type ExportService interface {
	ExportVitals(ctx context.Context, req ExportRequest) (*ExportResponse, error)
}

// ExportRequest window is [From, To], both required.
type ExportRequest struct {
	PatientID string
	From      domain.DayKey
	To        domain.DayKey
}

type ExportResponse struct {
	Filename string
	Content  []byte
}

type exportService struct {
	aggregates repository.AggregatesRepository
	bp         repository.BPRepository
	logger     *zap.Logger
}

func NewExportService(aggregates repository.AggregatesRepository, bp repository.BPRepository, logger *zap.Logger) ExportService {
	return &exportService{aggregates: aggregates, bp: bp, logger: logger}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) ExportVitals(ctx context.Context, req ExportRequest) (*ExportResponse, error) {
	if req.PatientID == "" {
		return nil, validationErrorf("patient id is required")
	}
	if req.From == "" || req.To == "" {
		return nil, validationErrorf("from and to dates are required")
	}
	if _, err := req.From.Time(); err != nil {
		return nil, validationErrorf("invalid from date %q", req.From)
	}
	if _, err := req.To.Time(); err != nil {
		return nil, validationErrorf("invalid to date %q", req.To)
	}
	if req.From > req.To {
		return nil, validationErrorf("from date is after to date")
	}

	f := excelize.NewFile()
	// WriteTo needs the file open, Close only on error paths.

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := s.writeStepsSheet(ctx, f, headerStyle, req); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.writeDistanceSheet(ctx, f, headerStyle, req); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.writeHrSheet(ctx, f, headerStyle, req); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.writeSpo2Sheet(ctx, f, headerStyle, req); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.writeBPSheet(ctx, f, headerStyle, req); err != nil {
		f.Close()
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		s.logger.Warn("failed to close workbook", zap.Error(err))
	}

	return &ExportResponse{
		Filename: fmt.Sprintf("vitals_%s_%s_%s.xlsx", req.PatientID, req.From, req.To),
		Content:  buf.Bytes(),
	}, nil
}

func newSheet(f *excelize.File, name string, headerStyle int, headers []string) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func (s *exportService) writeStepsSheet(ctx context.Context, f *excelize.File, style int, req ExportRequest) error {
	rows, err := s.aggregates.ListStepsDayRange(ctx, req.PatientID, req.From, req.To)
	if err != nil {
		return storageError("failed to load steps days", err)
	}
	if err := newSheet(f, "Steps", style, []string{"Date", "Steps"}); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, "Steps", i+2, []any{string(row.Date), row.Total}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeDistanceSheet(ctx context.Context, f *excelize.File, style int, req ExportRequest) error {
	rows, err := s.aggregates.ListDistanceDayRange(ctx, req.PatientID, req.From, req.To)
	if err != nil {
		return storageError("failed to load distance days", err)
	}
	if err := newSheet(f, "Distance", style, []string{"Date", "Meters"}); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, "Distance", i+2, []any{string(row.Date), row.Meters}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeHrSheet(ctx context.Context, f *excelize.File, style int, req ExportRequest) error {
	rows, err := s.aggregates.ListHrDayRange(ctx, req.PatientID, req.From, req.To)
	if err != nil {
		return storageError("failed to load hr days", err)
	}
	if err := newSheet(f, "Heart Rate", style, []string{"Date", "Min", "Max", "Avg", "Samples", "Resting"}); err != nil {
		return err
	}
	for i, row := range rows {
		resting := row.Min
		if hours, err := s.aggregates.ListHrHourForDay(ctx, req.PatientID, row.Date); err == nil {
			stats := make([]vitals.HourStat, 0, len(hours))
			for _, h := range hours {
				stats = append(stats, vitals.HourStat{Hour: h.HourTs.LocalHour(), Avg: h.Avg, Count: h.Count})
			}
			if bpm, ok := vitals.RestingHeartRate(stats); ok {
				resting = bpm
			}
		}
		if err := setRow(f, "Heart Rate", i+2,
			[]any{string(row.Date), row.Min, row.Max, row.Avg, row.Count, resting}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeSpo2Sheet(ctx context.Context, f *excelize.File, style int, req ExportRequest) error {
	rows, err := s.aggregates.ListSpo2DayRange(ctx, req.PatientID, req.From, req.To)
	if err != nil {
		return storageError("failed to load spo2 days", err)
	}
	if err := newSheet(f, "SpO2", style, []string{"Date", "Min", "Max", "Avg", "Samples"}); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, "SpO2", i+2,
			[]any{string(row.Date), row.Min, row.Max, row.Avg, row.Count}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeBPSheet(ctx context.Context, f *excelize.File, style int, req ExportRequest) error {
	rows, err := s.bp.ListReadings(ctx, req.PatientID, req.From, req.To)
	if err != nil {
		return storageError("failed to load bp readings", err)
	}
	if err := newSheet(f, "Blood Pressure", style, []string{"Date", "Time", "Systolic", "Diastolic", "Pulse"}); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, "Blood Pressure", i+2,
			[]any{row.ReadingDate, row.ReadingTime, row.Systolic, row.Diastolic, row.Pulse}); err != nil {
			return err
		}
	}
	return nil
}
