package services

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
)

// SubmittedAtLayout is the only accepted format for submitted_from/submitted_to.
const SubmittedAtLayout = "2006-01-02T15:04:05"

// ValidSubmissionFilters lists the query keys /submissions/ accepts.
var ValidSubmissionFilters = []string{"survey", "user", "submitted_from", "submitted_to", "featured"}

var falseTokens = map[string]bool{"f": true, "false": true, "n": true, "no": true, "0": true}

// FilterError carries a message meant to be shown to the client as is.
type FilterError struct {
	Message string
}

func (e *FilterError) Error() string {
	return e.Message
}

// ParseFlag reports whether value reads as true. The empty string and "f",
// "false", "n", "no" or "0" in any case read as false.
func ParseFlag(value string) bool {
	return value != "" && !falseTokens[strings.ToLower(value)]
}

// SubmissionFilter is the validated form of the /submissions/ query string.
// Nil pointers mean "not constrained".
type SubmissionFilter struct {
	SurveySlug *string
	// Username set to "" selects submissions without a user.
	Username      *string
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	FeaturedOnly  bool
}

// ParseSubmissionFilter validates every key before anything is applied, so a
// bad key or date never yields a partially filtered result.
func ParseSubmissionFilter(values url.Values, now time.Time) (SubmissionFilter, error) {
	var f SubmissionFilter

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vs := values[key]
		value := ""
		if len(vs) > 0 {
			value = vs[len(vs)-1]
		}

		switch key {
		case "survey":
			v := value
			f.SurveySlug = &v
		case "user":
			v := value
			f.Username = &v
		case "submitted_from", "submitted_to":
			t, err := time.Parse(SubmittedAtLayout, value)
			if err != nil {
				return SubmissionFilter{}, &FilterError{Message: fmt.Sprintf(
					"Invalid %s format. Try, for example, %s", key, now.Format(SubmittedAtLayout))}
			}
			if key == "submitted_from" {
				f.SubmittedFrom = &t
			} else {
				f.SubmittedTo = &t
			}
		case "featured":
			f.FeaturedOnly = ParseFlag(value)
		default:
			return SubmissionFilter{}, &FilterError{Message: fmt.Sprintf(
				"You can't filter on %s. Valid options are (%s).", key, strings.Join(ValidSubmissionFilters, ", "))}
		}
	}
	return f, nil
}

// Apply expects q to be scoped to models.Submission.
func (f SubmissionFilter) Apply(q *gorm.DB) *gorm.DB {
	fresh := q.Session(&gorm.Session{NewDB: true})
	if f.SurveySlug != nil {
		q = q.Where("submissions.survey_id IN (?)",
			fresh.Model(&models.Survey{}).Select("id").Where("slug = ?", *f.SurveySlug))
	}
	if f.Username != nil {
		if *f.Username == "" {
			q = q.Where("submissions.user_id IS NULL")
		} else {
			q = q.Where("submissions.user_id IN (?)",
				fresh.Model(&models.User{}).Select("id").Where("username = ?", *f.Username))
		}
	}
	if f.SubmittedFrom != nil {
		q = q.Where("submissions.submitted_at >= ?", *f.SubmittedFrom)
	}
	if f.SubmittedTo != nil {
		q = q.Where("submissions.submitted_at <= ?", *f.SubmittedTo)
	}
	if f.FeaturedOnly {
		q = q.Where("submissions.featured = ?", true)
	}
	return q
}

/* ========== Per-question filters used by reports and maps ========== */

// FieldFilter is one filterable question plus whatever the request asked for.
type FieldFilter struct {
	Question *models.Question
	Value    string
	From     string
	To       string
	Active   bool

	boolValue bool
	from, to  *float64
}

// IsRange tells templates to render from/to inputs.
func (f *FieldFilter) IsRange() bool {
	return f.Question.OptionType == models.OptionInteger || f.Question.OptionType == models.OptionFloat
}

// ParseFieldFilters never fails: keys that are not filterable fields are
// ignored and malformed numbers leave the filter inactive.
func ParseFieldFilters(questions []models.Question, values url.Values) []FieldFilter {
	var out []FieldFilter
	for i := range questions {
		q := &questions[i]
		if !q.UseAsFilter {
			continue
		}
		f := FieldFilter{Question: q}
		switch q.OptionType {
		case models.OptionInteger, models.OptionFloat:
			f.From = strings.TrimSpace(values.Get(q.FieldName + "_from"))
			f.To = strings.TrimSpace(values.Get(q.FieldName + "_to"))
			if v, err := strconv.ParseFloat(f.From, 64); err == nil {
				f.from = &v
				f.Active = true
			}
			if v, err := strconv.ParseFloat(f.To, 64); err == nil {
				f.to = &v
				f.Active = true
			}
		case models.OptionBool:
			f.Value = values.Get(q.FieldName)
			if f.Value != "" {
				f.boolValue = ParseFlag(f.Value)
				f.Active = true
			}
		case models.OptionSelect, models.OptionChoice, models.OptionNumericSelect,
			models.OptionNumericChoice, models.OptionBoolList,
			models.OptionChar, models.OptionText, models.OptionEmail:
			f.Value = strings.TrimSpace(values.Get(q.FieldName))
			f.Active = f.Value != ""
		default:
			continue
		}
		out = append(out, f)
	}
	return out
}

// ApplyFieldFilters restricts idColumn (a submission id column) to submissions
// whose answers match every active filter.
func ApplyFieldFilters(q *gorm.DB, idColumn string, filters []FieldFilter) *gorm.DB {
	fresh := q.Session(&gorm.Session{NewDB: true})
	for i := range filters {
		f := &filters[i]
		if !f.Active {
			continue
		}
		sub := fresh.Model(&models.Answer{}).Select("submission_id").Where("question_id = ?", f.Question.ID)
		switch f.Question.OptionType {
		case models.OptionBool:
			sub = sub.Where("boolean_answer = ?", f.boolValue)
		case models.OptionInteger:
			if f.from != nil {
				sub = sub.Where("integer_answer >= ?", *f.from)
			}
			if f.to != nil {
				sub = sub.Where("integer_answer <= ?", *f.to)
			}
		case models.OptionFloat:
			if f.from != nil {
				sub = sub.Where("float_answer >= ?", *f.from)
			}
			if f.to != nil {
				sub = sub.Where("float_answer <= ?", *f.to)
			}
		case models.OptionChar, models.OptionText, models.OptionEmail:
			sub = sub.Where("LOWER(text_answer) LIKE ?", "%"+strings.ToLower(f.Value)+"%")
		default:
			sub = sub.Where("text_answer = ?", f.Value)
		}
		q = q.Where(idColumn+" IN (?)", sub)
	}
	return q
}
