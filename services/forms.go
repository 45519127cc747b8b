package services

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/utils"
)

// MaxPhotoSize caps uploaded photo answers (10MB).
const MaxPhotoSize = 10 << 20

// AnswerValue is resolved once per question while validating the form:
// either a SingleAnswer or a MultiAnswer.
type AnswerValue interface {
	QuestionRef() *models.Question
	Rows() []models.Answer
}

type SingleAnswer struct {
	Question *models.Question
	Answer   models.Answer
	// Upload is set for photo questions; the pipeline stores it and fills ImageAnswer.
	Upload *multipart.FileHeader
}

func (s *SingleAnswer) QuestionRef() *models.Question { return s.Question }
func (s *SingleAnswer) Rows() []models.Answer         { return []models.Answer{s.Answer} }

type MultiAnswer struct {
	Question *models.Question
	Answers  []models.Answer
}

func (m *MultiAnswer) QuestionRef() *models.Question { return m.Question }
func (m *MultiAnswer) Rows() []models.Answer         { return m.Answers }

// FieldErrors maps a question field name to a human readable message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

type FormInput struct {
	Values url.Values
	Files  map[string][]*multipart.FileHeader
}

const msgRequired = "This field is required."

// ValidateSubmission checks every question of the survey against the posted
// input. Nothing is persisted here; blank optional questions yield no answer.
func ValidateSubmission(survey *models.Survey, in FormInput) ([]AnswerValue, FieldErrors) {
	errs := FieldErrors{}
	var out []AnswerValue

	for i := range survey.Questions {
		q := &survey.Questions[i]
		v, msg := validateQuestion(q, in)
		if msg != "" {
			errs[q.FieldName] = msg
			continue
		}
		if v != nil {
			out = append(out, v)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func validateQuestion(q *models.Question, in FormInput) (AnswerValue, string) {
	raw := strings.TrimSpace(in.Values.Get(q.FieldName))
	single := func(a models.Answer) AnswerValue {
		a.QuestionID = q.ID
		return &SingleAnswer{Question: q, Answer: a}
	}

	switch q.OptionType {
	case models.OptionBool:
		b := ParseFlag(raw)
		if q.Required && !b {
			return nil, msgRequired
		}
		return single(models.Answer{BooleanAnswer: &b}), ""

	case models.OptionBoolList:
		var rows []models.Answer
		for _, v := range in.Values[q.FieldName] {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if !q.HasOption(v) {
				return nil, invalidChoice(v)
			}
			rows = append(rows, models.Answer{QuestionID: q.ID, TextAnswer: v})
		}
		if len(rows) == 0 {
			if q.Required {
				return nil, msgRequired
			}
			return nil, ""
		}
		return &MultiAnswer{Question: q, Answers: rows}, ""

	case models.OptionLocation:
		return validateLocation(q, in, raw)

	case models.OptionPhoto:
		var fh *multipart.FileHeader
		if files := in.Files[q.FieldName]; len(files) > 0 {
			fh = files[0]
		}
		if fh == nil {
			if q.Required {
				return nil, msgRequired
			}
			return nil, ""
		}
		if msg := checkPhoto(fh); msg != "" {
			return nil, msg
		}
		return &SingleAnswer{Question: q, Answer: models.Answer{QuestionID: q.ID}, Upload: fh}, ""
	}

	if raw == "" {
		if q.Required {
			return nil, msgRequired
		}
		return nil, ""
	}

	switch q.OptionType {
	case models.OptionEmail:
		if !utils.ValidateEmail(raw) {
			return nil, "Enter a valid e-mail address."
		}
		return single(models.Answer{TextAnswer: raw}), ""
	case models.OptionInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, "Enter a whole number."
		}
		return single(models.Answer{IntegerAnswer: &n}), ""
	case models.OptionFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "Enter a number."
		}
		return single(models.Answer{FloatAnswer: &f}), ""
	case models.OptionSelect, models.OptionChoice:
		if !q.HasOption(raw) {
			return nil, invalidChoice(raw)
		}
		return single(models.Answer{TextAnswer: raw}), ""
	case models.OptionNumericSelect, models.OptionNumericChoice:
		if !q.HasOption(raw) {
			return nil, invalidChoice(raw)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "Enter a number."
		}
		return single(models.Answer{TextAnswer: raw, FloatAnswer: &f}), ""
	case models.OptionVideo:
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, "Enter a valid URL."
		}
		return single(models.Answer{TextAnswer: raw}), ""
	}
	return single(models.Answer{TextAnswer: raw}), ""
}

func validateLocation(q *models.Question, in FormInput, address string) (AnswerValue, string) {
	latRaw := strings.TrimSpace(in.Values.Get(q.FieldName + "_lat"))
	lngRaw := strings.TrimSpace(in.Values.Get(q.FieldName + "_lng"))
	if latRaw == "" && lngRaw == "" {
		if q.Required {
			return nil, msgRequired
		}
		if address == "" {
			return nil, ""
		}
		return &SingleAnswer{Question: q, Answer: models.Answer{QuestionID: q.ID, TextAnswer: address}}, ""
	}
	lat, err1 := strconv.ParseFloat(latRaw, 64)
	lng, err2 := strconv.ParseFloat(lngRaw, 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, "Enter a valid location."
	}
	return &SingleAnswer{Question: q, Answer: models.Answer{
		QuestionID: q.ID,
		TextAnswer: address,
		Latitude:   &lat,
		Longitude:  &lng,
	}}, ""
}

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func checkPhoto(fh *multipart.FileHeader) string {
	if fh.Size > MaxPhotoSize {
		return "The photo is larger than 10MB."
	}
	f, err := fh.Open()
	if err != nil {
		return "The photo could not be read."
	}
	defer f.Close()

	// Only the first 512 bytes are needed to sniff the type.
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if !allowedPhotoTypes[http.DetectContentType(buf[:n])] {
		return fmt.Sprintf("Unsupported photo type %q.", filepath.Ext(fh.Filename))
	}
	return ""
}

func invalidChoice(v string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)
}
