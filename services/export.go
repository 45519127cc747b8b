package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Exporter writes every submission of a survey (public or not) to a file in
// Dir. Jobs run in their own goroutine and report progress on the ExportJob row.
type Exporter struct {
	DB  *gorm.DB
	Dir string
}

func NewExporter(db *gorm.DB, dir string) *Exporter {
	if dir == "" {
		dir = "./exports"
	}
	return &Exporter{DB: db, Dir: dir}
}

// Start queues a job and returns immediately.
func (e *Exporter) Start(ctx context.Context, surveyID uint, format string, from, to *time.Time) (*models.ExportJob, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	job := models.ExportJob{
		JobID:     uuid.NewString(),
		SurveyID:  surveyID,
		Format:    format,
		RangeFrom: from,
		RangeTo:   to,
		Status:    models.ExportQueued,
	}
	if err := e.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}

	go func() {
		if err := e.Run(context.Background(), job.JobID); err != nil {
			logger.WithError(err).WithFields(map[string]any{"job": job.JobID}).Error("export failed")
		}
	}()
	return &job, nil
}

// Run processes one job synchronously. Failures are also stored on the job.
func (e *Exporter) Run(ctx context.Context, jobID string) error {
	db := e.DB.WithContext(ctx)
	var job models.ExportJob
	if err := db.First(&job, "job_id = ?", jobID).Error; err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	db.Model(&job).Update("status", models.ExportProcessing)

	path, err := e.write(db, &job)
	if err != nil {
		em := err.Error()
		db.Model(&job).Updates(map[string]any{"status": models.ExportFailed, "error_msg": em})
		return err
	}
	return db.Model(&job).Updates(map[string]any{"status": models.ExportDone, "file_path": path}).Error
}

func (e *Exporter) write(db *gorm.DB, job *models.ExportJob) (string, error) {
	header, rows, err := e.table(db, job)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(e.Dir, fmt.Sprintf("export_%s.%s", job.JobID, job.Format))

	switch job.Format {
	case FormatXLSX:
		return path, writeXLSX(path, header, rows)
	case FormatCSV:
		return path, writeCSV(path, header, rows)
	}
	return "", fmt.Errorf("%q: %w", job.Format, ErrUnknownFormat)
}

// table flattens submissions: fixed columns, then one column per question.
// Multi-value answers are joined with ", ".
func (e *Exporter) table(db *gorm.DB, job *models.ExportJob) ([]string, [][]string, error) {
	var survey models.Survey
	err := db.Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&survey, job.SurveyID).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load survey: %w", err)
	}

	header := []string{"id", "submitted_at", "user", "ip_address", "is_public", "featured"}
	col := map[uint]int{}
	for _, q := range survey.Questions {
		col[q.ID] = len(header)
		header = append(header, q.FieldName)
	}

	q := db.Preload("Answers").Preload("User").Where("survey_id = ?", survey.ID)
	if job.RangeFrom != nil {
		q = q.Where("submitted_at >= ?", *job.RangeFrom)
	}
	if job.RangeTo != nil {
		q = q.Where("submitted_at <= ?", *job.RangeTo)
	}
	var subs []models.Submission
	if err := q.Order("submitted_at ASC, id ASC").Find(&subs).Error; err != nil {
		return nil, nil, fmt.Errorf("load submissions: %w", err)
	}

	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		row := make([]string, len(header))
		row[0] = strconv.FormatUint(uint64(s.ID), 10)
		row[1] = s.SubmittedAt.UTC().Format(time.RFC3339)
		if s.User != nil {
			row[2] = s.User.Username
		}
		row[3] = s.IPAddress
		row[4] = strconv.FormatBool(s.IsPublic)
		row[5] = strconv.FormatBool(s.Featured)
		for _, a := range s.Answers {
			i, ok := col[a.QuestionID]
			if !ok {
				continue
			}
			if row[i] != "" {
				row[i] = strings.Join([]string{row[i], a.Value()}, ", ")
			} else {
				row[i] = a.Value()
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Submissions"
	f.SetSheetName("Sheet1", sheet)

	write := func(r int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		vals := make([]any, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		return f.SetSheetRow(sheet, cell, &vals)
	}
	if err := write(1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := write(i+2, row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
