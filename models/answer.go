package models

import "strconv"

type Answer struct {
	ID            uint     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SubmissionID  uint     `gorm:"column:submission_id;not null;index" json:"submission_id"`
	QuestionID    uint     `gorm:"column:question_id;not null;index" json:"question_id"`
	TextAnswer    string   `gorm:"column:text_answer;type:text" json:"text_answer,omitempty"`
	IntegerAnswer *int64   `gorm:"column:integer_answer" json:"integer_answer,omitempty"`
	FloatAnswer   *float64 `gorm:"column:float_answer" json:"float_answer,omitempty"`
	BooleanAnswer *bool    `gorm:"column:boolean_answer" json:"boolean_answer,omitempty"`
	ImageAnswer   string   `gorm:"column:image_answer;size:500" json:"image_answer,omitempty"`
	Latitude      *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude     *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"-"`
	Question   *Question   `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Answer) TableName() string {
	return "answers"
}

// Value renders the stored answer as text, whatever column holds it.
func (a *Answer) Value() string {
	switch {
	case a.BooleanAnswer != nil:
		if *a.BooleanAnswer {
			return "True"
		}
		return "False"
	case a.IntegerAnswer != nil:
		return strconv.FormatInt(*a.IntegerAnswer, 10)
	case a.ImageAnswer != "":
		return a.ImageAnswer
	case a.TextAnswer != "":
		return a.TextAnswer
	case a.Latitude != nil && a.Longitude != nil:
		return strconv.FormatFloat(*a.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(*a.Longitude, 'f', -1, 64)
	case a.FloatAnswer != nil:
		return strconv.FormatFloat(*a.FloatAnswer, 'f', -1, 64)
	}
	return ""
}

// JSONValue keeps the native type of the answer for JSON output.
func (a *Answer) JSONValue() any {
	switch {
	case a.BooleanAnswer != nil:
		return *a.BooleanAnswer
	case a.IntegerAnswer != nil:
		return *a.IntegerAnswer
	case a.Latitude != nil && a.Longitude != nil:
		return map[string]any{"address": a.TextAnswer, "lat": *a.Latitude, "lng": *a.Longitude}
	case a.FloatAnswer != nil && a.TextAnswer == "":
		return *a.FloatAnswer
	}
	return a.Value()
}
