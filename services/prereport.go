package services

import (
	"fmt"
	"net/url"
	"sort"

	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
)

// PreReportFunc may reorder or narrow the report's submission query. It gets
// the query after field filters and before the report limit.
type PreReportFunc func(q *gorm.DB, report *models.SurveyReport, params url.Values) *gorm.DB

var preReports = map[string]PreReportFunc{
	"featured_first": func(q *gorm.DB, _ *models.SurveyReport, _ url.Values) *gorm.DB {
		return q.Order("submissions.featured DESC")
	},
	"oldest_first": func(q *gorm.DB, _ *models.SurveyReport, _ url.Values) *gorm.DB {
		return q.Order("submissions.submitted_at ASC").Order("submissions.id ASC")
	},
	// ?sort=oldest flips the listing, anything else keeps the default.
	"sort_param": func(q *gorm.DB, _ *models.SurveyReport, params url.Values) *gorm.DB {
		if params.Get("sort") == "oldest" {
			return q.Order("submissions.submitted_at ASC").Order("submissions.id ASC")
		}
		return q
	},
}

// LookupPreReport resolves a hook by name. An empty name means no hook.
func LookupPreReport(name string) (PreReportFunc, error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := preReports[name]
	if !ok {
		names := make([]string, 0, len(preReports))
		for k := range preReports {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown pre-report hook %q (known: %v)", name, names)
	}
	return fn, nil
}
