package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
)

var pieTypes = map[string]bool{
	models.OptionBool:          true,
	models.OptionSelect:        true,
	models.OptionChoice:        true,
	models.OptionNumericSelect: true,
	models.OptionNumericChoice: true,
}

// DefaultReport synthesizes a report for surveys without one: a pie per
// public choice-like question and a map per public location question.
func DefaultReport(survey *models.Survey) *models.SurveyReport {
	summary := survey.Description
	if summary == "" {
		summary = survey.Tease
	}
	r := &models.SurveyReport{
		SurveyID: survey.ID,
		Title:    survey.Title,
		Summary:  summary,
	}
	order := 0
	for _, q := range survey.PublicQuestions() {
		var kind string
		switch {
		case pieTypes[q.OptionType]:
			kind = models.DisplayPie
		case q.OptionType == models.OptionLocation:
			kind = models.DisplayMap
		default:
			continue
		}
		order++
		r.Displays = append(r.Displays, models.SurveyReportDisplay{
			DisplayType: kind,
			Fieldnames:  q.FieldName,
			Annotation:  q.Label,
			Order:       order,
		})
	}
	return r
}

// ValueCount is one slice of a pie or bar.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type Chart struct {
	Question *models.Question
	Counts   []ValueCount
	// MapURL is set for map displays.
	MapURL string
}

type DisplayData struct {
	Display models.SurveyReportDisplay
	Charts  []Chart
}

type ReportRequest struct {
	Slug       string
	ReportSlug string
	PageToken  string
	Query      url.Values
}

type ReportResult struct {
	Survey        *models.Survey
	Report        *models.SurveyReport
	Fields        []models.Question
	ArchiveFields []models.Question
	Filters       []FieldFilter
	Submissions   []models.Submission
	// PageAnswers holds the public answers of each listed submission.
	PageAnswers map[uint][]models.Answer
	Paginator   Paginator
	Page        Page
	PageLinks   []PageLink
	// IDs is the comma separated id list when the report limits its results.
	IDs      string
	Displays []DisplayData
}

type ReportAssembler struct {
	DB        *gorm.DB
	PreReport PreReportFunc
	Now       func() time.Time
}

func NewReportAssembler(db *gorm.DB, hook PreReportFunc) *ReportAssembler {
	return &ReportAssembler{DB: db, PreReport: hook, Now: time.Now}
}

// Assemble builds everything a report page needs. It returns ErrNotFound for
// unknown surveys, reports and page tokens, and a *RedirectError when the
// survey has a default report and none was named.
func (a *ReportAssembler) Assemble(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	pageNum, err := ParsePageToken(req.PageToken)
	if err != nil {
		return nil, err
	}
	db := a.DB.WithContext(ctx)

	survey, err := LoadLiveSurvey(ctx, a.DB, req.Slug)
	if err != nil {
		return nil, err
	}
	if !survey.CanHavePublicSubmissions(a.Now()) {
		return nil, fmt.Errorf("survey %q has no public results: %w", survey.Slug, ErrNotFound)
	}

	report, err := a.resolveReport(db, survey, req.ReportSlug)
	if err != nil {
		return nil, err
	}

	res := &ReportResult{
		Survey:        survey,
		Report:        report,
		Fields:        survey.PublicQuestions(),
		ArchiveFields: archiveFields(survey),
		Filters:       ParseFieldFilters(survey.Questions, req.Query),
	}

	// scope is the filtered public set, never ordered, so it can be reused
	// as a subquery.
	scope := db.Model(&models.Submission{}).
		Where("submissions.survey_id = ? AND submissions.is_public = ?", survey.ID, true)
	scope = ApplyFieldFilters(scope, "submissions.id", res.Filters)

	ordered := scope.Session(&gorm.Session{})
	if a.PreReport != nil {
		ordered = a.PreReport(ordered, report, req.Query)
	}
	ordered = ordered.Order("submissions.submitted_at DESC").Order("submissions.id DESC")

	if report.LimitResultsTo > 0 {
		var ids []uint
		if err := ordered.Session(&gorm.Session{}).Limit(report.LimitResultsTo).Pluck("submissions.id", &ids).Error; err != nil {
			return nil, fmt.Errorf("limit report results: %w", err)
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		res.IDs = strings.Join(parts, ",")
		if len(ids) == 0 {
			ids = []uint{0}
		}
		scope = scope.Where("submissions.id IN ?", ids)
		ordered = ordered.Where("submissions.id IN ?", ids)
	}

	res.Displays, err = a.displays(db, survey, report, scope, res.IDs)
	if err != nil {
		return nil, err
	}

	var count int64
	if report.DisplayIndividualResults {
		if err := scope.Session(&gorm.Session{}).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count report submissions: %w", err)
		}
	}
	res.Paginator = NewPaginator(count, PerPage)
	res.Page = res.Paginator.Page(pageNum)
	res.PageLinks = PageLinks(res.Page.Number, res.Paginator.NumPages)
	res.PageAnswers = map[uint][]models.Answer{}

	if count > 0 {
		err := ordered.Session(&gorm.Session{}).
			Preload("Answers.Question").
			Preload("User").
			Offset(res.Page.Offset).Limit(res.Page.Limit).
			Find(&res.Submissions).Error
		if err != nil {
			return nil, fmt.Errorf("load report page: %w", err)
		}
	}
	for _, s := range res.Submissions {
		for _, ans := range s.Answers {
			if ans.Question != nil && ans.Question.AnswerIsPublic {
				res.PageAnswers[s.ID] = append(res.PageAnswers[s.ID], ans)
			}
		}
	}
	return res, nil
}

func (a *ReportAssembler) resolveReport(db *gorm.DB, survey *models.Survey, slug string) (*models.SurveyReport, error) {
	displays := func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }

	if slug != "" {
		var r models.SurveyReport
		err := db.Preload("Displays", displays).
			Where("survey_id = ? AND slug = ?", survey.ID, slug).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %q: %w", slug, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		return &r, nil
	}

	if survey.DefaultReportID != nil {
		var r models.SurveyReport
		err := db.Where("id = ? AND survey_id = ?", *survey.DefaultReportID, survey.ID).First(&r).Error
		if err == nil {
			return nil, &RedirectError{URL: NamedReportURL(survey.Slug, r.Slug)}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	r := DefaultReport(survey)
	r.DisplayIndividualResults = true
	return r, nil
}

func (a *ReportAssembler) displays(db *gorm.DB, survey *models.Survey, report *models.SurveyReport, scope *gorm.DB, ids string) ([]DisplayData, error) {
	var out []DisplayData
	for _, d := range report.Displays {
		dd := DisplayData{Display: d}
		for _, name := range splitFieldnames(d.Fieldnames) {
			q := survey.QuestionByFieldName(name)
			if q == nil || !q.AnswerIsPublic {
				continue
			}
			chart := Chart{Question: q}
			switch {
			case d.IsAggregate():
				counts, err := countAnswers(db, q, scope)
				if err != nil {
					return nil, err
				}
				chart.Counts = counts
			case d.DisplayType == models.DisplayMap:
				chart.MapURL = MapResultsURL(q.ID)
				if ids != "" {
					chart.MapURL += "?submissions=" + url.QueryEscape(ids)
				}
			}
			dd.Charts = append(dd.Charts, chart)
		}
		out = append(out, dd)
	}
	return out, nil
}

// countAnswers tallies answer values of q over the submissions in scope,
// most frequent first.
func countAnswers(db *gorm.DB, q *models.Question, scope *gorm.DB) ([]ValueCount, error) {
	var answers []models.Answer
	err := db.Session(&gorm.Session{NewDB: true}).
		Where("question_id = ? AND submission_id IN (?)", q.ID, scope.Session(&gorm.Session{}).Select("submissions.id")).
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("count answers for %s: %w", q.FieldName, err)
	}

	tally := map[string]int64{}
	for i := range answers {
		tally[answers[i].Value()]++
	}
	out := make([]ValueCount, 0, len(tally))
	for v, n := range tally {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// archiveFields are the public questions listed per submission on report
// pages; locations are shown on maps instead.
func archiveFields(survey *models.Survey) []models.Question {
	var out []models.Question
	for _, q := range survey.PublicQuestions() {
		if q.OptionType != models.OptionLocation {
			out = append(out, q)
		}
	}
	return out
}

func splitFieldnames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// NumericSummary describes integer and float answers.
type NumericSummary struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type QuestionStats struct {
	Question *models.Question `json:"-"`
	Counts   []ValueCount     `json:"counts,omitempty"`
	Numeric  *NumericSummary  `json:"numeric,omitempty"`
}

// SurveyStats summarises every submission of the survey, moderated or not.
// Free text, photos and locations are skipped.
func SurveyStats(ctx context.Context, db *gorm.DB, survey *models.Survey) ([]QuestionStats, error) {
	db = db.WithContext(ctx)
	all := db.Model(&models.Submission{}).Where("submissions.survey_id = ?", survey.ID)

	var out []QuestionStats
	for i := range survey.Questions {
		q := &survey.Questions[i]
		switch {
		case pieTypes[q.OptionType] || q.OptionType == models.OptionBoolList:
			counts, err := countAnswers(db, q, all)
			if err != nil {
				return nil, err
			}
			out = append(out, QuestionStats{Question: q, Counts: counts})
		case q.OptionType == models.OptionInteger || q.OptionType == models.OptionFloat:
			col := "float_answer"
			if q.OptionType == models.OptionInteger {
				col = "integer_answer"
			}
			var s NumericSummary
			err := db.Session(&gorm.Session{NewDB: true}).Model(&models.Answer{}).
				Select("COUNT("+col+") AS count, COALESCE(AVG("+col+"), 0) AS avg, COALESCE(MIN("+col+"), 0) AS min, COALESCE(MAX("+col+"), 0) AS max").
				Where("question_id = ? AND "+col+" IS NOT NULL", q.ID).
				Scan(&s).Error
			if err != nil {
				return nil, fmt.Errorf("summarise %s: %w", q.FieldName, err)
			}
			out = append(out, QuestionStats{Question: q, Numeric: &s})
		}
	}
	return out, nil
}
