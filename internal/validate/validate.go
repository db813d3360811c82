// Package validate checks user drafts before they reach the engine.
// Failures are errs.Validation errors naming the first offending field.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
)

// AnonymousReviewer is used when a review is submitted without a name.
const AnonymousReviewer = "Anonymous"

// ReviewDraft is a review before submission.
type ReviewDraft struct {
	ReviewerName string `json:"reviewerName" validate:"omitempty,min=2,max=50"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"required,min=10,max=500"`
}

// NotificationDraft is a notification before creation.
type NotificationDraft struct {
	Title     string `json:"title" validate:"required,max=120"`
	Body      string `json:"body" validate:"required,max=1000"`
	ProductID string `json:"productId" validate:"omitempty,numeric"`
}

// Validator wraps a configured validator and its English translator.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

// New builds a Validator that reports json field names.
func New() *Validator {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{v: v, trans: trans}
}

// Review trims d, fills the anonymous name and validates it.
func (val *Validator) Review(d ReviewDraft) (ReviewDraft, error) {
	d.ReviewerName = strings.TrimSpace(d.ReviewerName)
	d.Comment = strings.TrimSpace(d.Comment)
	if err := val.check(d); err != nil {
		return d, err
	}
	if d.ReviewerName == "" {
		d.ReviewerName = AnonymousReviewer
	}
	return d, nil
}

// Notification trims d and validates it.
func (val *Validator) Notification(d NotificationDraft) (NotificationDraft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	d.ProductID = strings.TrimSpace(d.ProductID)
	if err := val.check(d); err != nil {
		return d, err
	}
	return d, nil
}

func (val *Validator) check(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errs.Invalid(fe.Field(), fe.Translate(val.trans))
	}
	return errs.Wrap(err, errs.Validation, "validate")
}
