package materials

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
)

// createInput mirrors the limits of the materials collection validator.
type createInput struct {
	Title       string   `validate:"required,min=3,max=150" label:"Title"`
	Description string   `validate:"required,min=10,max=2000" label:"Description"`
	Subject     string   `validate:"required,max=50" label:"Subject"`
	Grade       string   `validate:"required,max=20" label:"Grade"`
	Status      string   `validate:"omitempty,oneof=active archived pending" label:"Status"`
	Tags        []string `validate:"max=10,dive,max=30" label:"Tags"`
}

func createInputFromForm(r *http.Request) createInput {
	return createInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Subject:     normalize.Subject(r.FormValue("subject")),
		Grade:       strings.TrimSpace(r.FormValue("grade")),
		Status:      normalize.Status(r.FormValue("status")),
		Tags:        normalize.FormTags(formutil.Values(r, "tags")),
	}
}

// patchInput is the client-writable subset of a material. Fields that are
// not listed (uploader, metrics, likes, file) are dropped at decode.
type patchInput struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=150" label:"Title"`
	Description *string `json:"description" validate:"omitempty,min=10,max=2000" label:"Description"`
	Subject     *string `json:"subject" validate:"omitempty,min=1,max=50" label:"Subject"`
	Grade       *string `json:"grade" validate:"omitempty,max=20" label:"Grade"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived pending" label:"Status"`
	Tags        tagList `json:"tags" validate:"omitempty,max=10,dive,max=30" label:"Tags"`
}

func (p *patchInput) normalize() {
	trim := func(s *string, f func(string) string) {
		if s != nil {
			*s = f(*s)
		}
	}
	trim(p.Title, strings.TrimSpace)
	trim(p.Description, strings.TrimSpace)
	trim(p.Subject, normalize.Subject)
	trim(p.Grade, strings.TrimSpace)
	trim(p.Status, normalize.Status)
}

func patchInputFromForm(r *http.Request) patchInput {
	field := func(key string) *string {
		if !formutil.Has(r, key) {
			return nil
		}
		v := r.FormValue(key)
		return &v
	}
	p := patchInput{
		Title:       field("title"),
		Description: field("description"),
		Subject:     field("subject"),
		Grade:       field("grade"),
		Status:      field("status"),
	}
	if formutil.Has(r, "tags") {
		p.Tags = normalize.FormTags(formutil.Values(r, "tags"))
	}
	p.normalize()
	return p
}

// tagList accepts a JSON array of strings or a single comma-separated
// string. A non-nil value means the client sent tags, possibly empty.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*t = normalize.Tags(arr...)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = normalize.TagString(s)
	return nil
}
