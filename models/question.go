package models

import (
	"strings"

	"gorm.io/datatypes"
)

const (
	OptionChar          = "char"
	OptionText          = "text"
	OptionEmail         = "email"
	OptionInteger       = "integer"
	OptionFloat         = "float"
	OptionBool          = "bool"
	OptionSelect        = "select"
	OptionChoice        = "choice"
	OptionNumericSelect = "numeric select"
	OptionNumericChoice = "numeric choice"
	OptionBoolList      = "bool list"
	OptionLocation      = "location"
	OptionPhoto         = "photo"
	OptionVideo         = "video"
)

var OptionTypes = []string{
	OptionChar, OptionText, OptionEmail, OptionInteger, OptionFloat, OptionBool,
	OptionSelect, OptionChoice, OptionNumericSelect, OptionNumericChoice,
	OptionBoolList, OptionLocation, OptionPhoto, OptionVideo,
}

func IsOptionType(t string) bool {
	for _, o := range OptionTypes {
		if o == t {
			return true
		}
	}
	return false
}

type Question struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SurveyID   uint   `gorm:"column:survey_id;not null;uniqueIndex:idx_question_field" json:"survey_id"`
	FieldName  string `gorm:"column:fieldname;size:32;not null;uniqueIndex:idx_question_field" json:"fieldname"`
	Label      string `gorm:"column:label;type:text;not null" json:"label"`
	HelpText   string `gorm:"column:help_text;type:text" json:"help_text"`
	Required   bool   `gorm:"column:required" json:"required"`
	Order      int    `gorm:"column:sort_order" json:"order"`
	OptionType string `gorm:"column:option_type;size:20;not null" json:"option_type"`

	Options  datatypes.JSONSlice[string] `gorm:"column:options" json:"options"`
	MapIcons datatypes.JSONSlice[string] `gorm:"column:map_icons" json:"map_icons,omitempty"`

	AnswerIsPublic bool `gorm:"column:answer_is_public" json:"answer_is_public"`
	UseAsFilter    bool `gorm:"column:use_as_filter" json:"use_as_filter"`

	Survey *Survey `gorm:"foreignKey:SurveyID" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// IsMultiValue marks questions that produce one answer row per checked option.
func (q *Question) IsMultiValue() bool {
	return q.OptionType == OptionBoolList
}

func (q *Question) IsNumericChoice() bool {
	return q.OptionType == OptionNumericSelect || q.OptionType == OptionNumericChoice
}

// OptionIconPairs pairs options and map icons by position; missing icons are "".
func (q *Question) OptionIconPairs() [][2]string {
	pairs := make([][2]string, 0, len(q.Options))
	for i, opt := range q.Options {
		icon := ""
		if i < len(q.MapIcons) {
			icon = strings.TrimSpace(q.MapIcons[i])
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(opt), icon})
	}
	return pairs
}

func (q *Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == value {
			return true
		}
	}
	return false
}
