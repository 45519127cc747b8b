package models

const (
	DisplayText = "text"
	DisplayPie  = "pie"
	DisplayBar  = "bar"
	DisplayMap  = "map"
)

type SurveyReport struct {
	ID                       uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SurveyID                 uint   `gorm:"column:survey_id;not null;uniqueIndex:idx_report_slug" json:"survey_id"`
	Title                    string `gorm:"column:title;size:255" json:"title"`
	Slug                     string `gorm:"column:slug;size:80;not null;uniqueIndex:idx_report_slug" json:"slug"`
	Summary                  string `gorm:"column:summary;type:text" json:"summary"`
	LimitResultsTo           int    `gorm:"column:limit_results_to" json:"limit_results_to"`
	DisplayIndividualResults bool   `gorm:"column:display_individual_results" json:"display_individual_results"`

	Displays []SurveyReportDisplay `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"displays"`
}

func (SurveyReport) TableName() string {
	return "survey_reports"
}

type SurveyReportDisplay struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReportID    uint   `gorm:"column:report_id;not null;index" json:"report_id"`
	DisplayType string `gorm:"column:display_type;size:10;not null" json:"display_type"`
	Fieldnames  string `gorm:"column:fieldnames;type:text" json:"fieldnames"`
	Annotation  string `gorm:"column:annotation;type:text" json:"annotation"`
	Order       int    `gorm:"column:sort_order" json:"order"`
}

func (SurveyReportDisplay) TableName() string {
	return "survey_report_displays"
}

// IsAggregate marks displays whose data is a count per answer value.
func (d *SurveyReportDisplay) IsAggregate() bool {
	return d.DisplayType == DisplayPie || d.DisplayType == DisplayBar
}
