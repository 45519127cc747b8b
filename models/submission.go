package models

import "time"

type Submission struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SurveyID    uint      `gorm:"column:survey_id;not null;index" json:"survey_id"`
	UserID      *uint     `gorm:"column:user_id;index" json:"user_id"`
	SessionKey  string    `gorm:"column:session_key;size:64;index" json:"-"`
	IPAddress   string    `gorm:"column:ip_address;size:64" json:"-"`
	SubmittedAt time.Time `gorm:"column:submitted_at;index" json:"submitted_at"`
	IsPublic    bool      `gorm:"column:is_public;index" json:"is_public"`
	Featured    bool      `gorm:"column:featured" json:"featured"`

	Survey  *Survey  `gorm:"foreignKey:SurveyID" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	Answers []Answer `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

// JSONData is the public shape used by the submissions query endpoint.
func (s *Submission) JSONData() map[string]any {
	data := map[string]any{}
	for _, a := range s.Answers {
		if a.Question == nil || !a.Question.AnswerIsPublic {
			continue
		}
		if a.Question.IsMultiValue() {
			prev, _ := data[a.Question.FieldName].([]string)
			data[a.Question.FieldName] = append(prev, a.Value())
			continue
		}
		data[a.Question.FieldName] = a.JSONValue()
	}
	out := map[string]any{
		"id":           s.ID,
		"submitted_at": s.SubmittedAt,
		"featured":     s.Featured,
		"is_public":    s.IsPublic,
		"data":         data,
	}
	if s.Survey != nil {
		out["survey"] = s.Survey.Slug
	}
	if s.User != nil {
		out["user"] = s.User.Username
	}
	return out
}
