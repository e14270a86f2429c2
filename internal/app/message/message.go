/*
Package message holds the persisted chat message, the rules for creating and reading
it, and the store contract those rules run against.
*/
package message

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gatherchat/internal/pkg/errs"
)

// MaxTextLength is the maximum text length, counted in characters (runes), not bytes.
const MaxTextLength = 5000

// Message is one persisted direct message. Only Seen changes after creation.
type Message struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"createdAt"`

	// Seq is the store-assigned creation order.
	Seq int64 `json:"-"`
}

// Draft is a message before persistence. Image is a resolved, retrievable URL.
type Draft struct {
	SenderID   string `validate:"required,max=128"`
	ReceiverID string `validate:"required,max=128,nefield=SenderID"`
	Text       string `validate:"max=5000"`
	Image      string `validate:"required_without=Text"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace so blank text counts as absent.
func (d Draft) Normalize() Draft {
	d.SenderID = strings.TrimSpace(d.SenderID)
	d.ReceiverID = strings.TrimSpace(d.ReceiverID)
	d.Text = strings.TrimSpace(d.Text)
	d.Image = strings.TrimSpace(d.Image)
	return d
}

// Validate checks the draft and reports the first violation as a *errs.CustomError.
func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.NewError(errs.ErrValidation, err.Error())
	}

	fe := fieldErrs[0]
	switch {
	case fe.Field() == "ReceiverID" && fe.Tag() == "nefield":
		return errs.NewError(errs.ErrSelfMessage)
	case fe.Field() == "Image" && fe.Tag() == "required_without":
		return errs.NewError(errs.ErrEmptyMessage)
	case fe.Field() == "Text" && fe.Tag() == "max":
		return errs.NewError(errs.ErrMessageContentTooLong)
	default:
		return errs.NewError(errs.ErrValidation, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
}
