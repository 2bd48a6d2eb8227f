package directory

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

// Course is offered by an approved institute.
type Course struct {
	ID          string    `json:"id"`
	InstituteID string    `json:"institute_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Fee         float64   `json:"fee,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Review is a student's rating of an institute.
type Review struct {
	ID          string    `json:"id"`
	InstituteID string    `json:"institute_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Enquiry is a student's message to an institute.
type Enquiry struct {
	ID          string    `json:"id"`
	InstituteID string    `json:"institute_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create or replace a Course.
type NewCourse struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Duration    string  `json:"duration"`
	Fee         float64 `json:"fee" validate:"omitempty,gte=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Duration = core.CleanString(nc.Duration)
	return validate.Struct(nc)
}

// NewReview contains information needed to post a Review.
type NewReview struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

// NewEnquiry contains information needed to send an Enquiry.
type NewEnquiry struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func (ne *NewEnquiry) Validate(validate *validator.Validate) error {
	ne.Subject = core.CleanString(ne.Subject)
	ne.Message = core.CleanString(ne.Message)
	return validate.Struct(ne)
}
