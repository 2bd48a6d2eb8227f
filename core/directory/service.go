package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/account"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = errors.New("record not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotApproved      = errors.New("institute is not approved")
)

type (
	Service interface {
		// institute-facing; gated by the caller's permission set
		CreateCourse(ident account.Identity, nc NewCourse) (Course, error)
		UpdateCourse(ident account.Identity, id string, nc NewCourse) (Course, error)
		DeleteCourse(ident account.Identity, id string) error
		InstituteCourses(ident account.Identity) ([]Course, error)
		InstituteEnquiries(ident account.Identity) ([]Enquiry, error)
		InstituteReviews(ident account.Identity) ([]Review, error)

		// student-facing
		SendEnquiry(ident account.Identity, instituteID string, ne NewEnquiry) (Enquiry, error)
		PostReview(ident account.Identity, instituteID string, nr NewReview) (Review, error)

		// public; only approved institutes are visible
		ApprovedInstitutes() ([]account.Identity, error)
		CoursesByInstitute(instituteID string) ([]Course, error)
		ReviewsByInstitute(instituteID string) ([]Review, error)
	}

	service struct {
		repo    *Repository
		acctSvc account.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo *Repository, acctSvc account.Service) Service {
	return &service{repo: repo, acctSvc: acctSvc}
}

func (svc *service) CreateCourse(ident account.Identity, nc NewCourse) (Course, error) {
	if !ident.HasPermission(account.PermManageCourses) {
		return Course{}, ErrPermissionDenied
	}
	now := NowFunc().UTC()
	course := Course{
		ID:          uuid.New().String(),
		InstituteID: ident.ID,
		Title:       nc.Title,
		Description: nc.Description,
		Category:    nc.Category,
		Duration:    nc.Duration,
		Fee:         nc.Fee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(course)
}

func (svc *service) UpdateCourse(ident account.Identity, id string, nc NewCourse) (Course, error) {
	if !ident.HasPermission(account.PermManageCourses) {
		return Course{}, ErrPermissionDenied
	}
	course, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return Course{}, err
	}
	if course.InstituteID != ident.ID {
		return Course{}, ErrPermissionDenied
	}
	course.Title = nc.Title
	course.Description = nc.Description
	course.Category = nc.Category
	course.Duration = nc.Duration
	course.Fee = nc.Fee
	course.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCourse(course)
}

func (svc *service) DeleteCourse(ident account.Identity, id string) error {
	if !ident.HasPermission(account.PermManageCourses) {
		return ErrPermissionDenied
	}
	course, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return err
	}
	if course.InstituteID != ident.ID {
		return ErrPermissionDenied
	}
	return svc.repo.DeleteCourse(id)
}

func (svc *service) InstituteCourses(ident account.Identity) ([]Course, error) {
	if !ident.HasPermission(account.PermManageCourses) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryCoursesByInstitute(ident.ID)
}

func (svc *service) InstituteEnquiries(ident account.Identity) ([]Enquiry, error) {
	if !ident.HasPermission(account.PermViewEnquiries) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryEnquiriesByInstitute(ident.ID)
}

func (svc *service) InstituteReviews(ident account.Identity) ([]Review, error) {
	if !ident.HasPermission(account.PermManageReviews) {
		return nil, ErrPermissionDenied
	}
	return svc.repo.QueryReviewsByInstitute(ident.ID)
}

func (svc *service) SendEnquiry(ident account.Identity, instituteID string, ne NewEnquiry) (Enquiry, error) {
	if !ident.HasPermission(account.PermSendEnquiries) {
		return Enquiry{}, ErrPermissionDenied
	}
	if err := svc.requireApprovedInstitute(instituteID); err != nil {
		return Enquiry{}, err
	}
	enquiry := Enquiry{
		ID:          uuid.New().String(),
		InstituteID: instituteID,
		StudentID:   ident.ID,
		StudentName: ident.Name,
		Email:       ident.Email,
		Subject:     ne.Subject,
		Message:     ne.Message,
		CreatedAt:   NowFunc().UTC(),
	}
	return svc.repo.CreateEnquiry(enquiry)
}

func (svc *service) PostReview(ident account.Identity, instituteID string, nr NewReview) (Review, error) {
	if !ident.HasPermission(account.PermPostReviews) {
		return Review{}, ErrPermissionDenied
	}
	if err := svc.requireApprovedInstitute(instituteID); err != nil {
		return Review{}, err
	}
	review := Review{
		ID:          uuid.New().String(),
		InstituteID: instituteID,
		StudentID:   ident.ID,
		StudentName: ident.Name,
		Rating:      nr.Rating,
		Comment:     nr.Comment,
		CreatedAt:   NowFunc().UTC(),
	}
	return svc.repo.CreateReview(review)
}

func (svc *service) ApprovedInstitutes() ([]account.Identity, error) {
	accts, err := svc.acctSvc.QueryAll()
	if err != nil {
		return nil, err
	}
	idents := make([]account.Identity, 0, len(accts))
	for i := range accts {
		if accts[i].IsInstitute() && accts[i].Status == account.StatusApproved {
			idents = append(idents, accts[i].Identity())
		}
	}
	return idents, nil
}

func (svc *service) CoursesByInstitute(instituteID string) ([]Course, error) {
	if err := svc.requireApprovedInstitute(instituteID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCoursesByInstitute(instituteID)
}

func (svc *service) ReviewsByInstitute(instituteID string) ([]Review, error) {
	if err := svc.requireApprovedInstitute(instituteID); err != nil {
		return nil, err
	}
	return svc.repo.QueryReviewsByInstitute(instituteID)
}

func (svc *service) requireApprovedInstitute(instituteID string) error {
	acct, err := svc.acctSvc.GetByID(instituteID)
	if err != nil {
		return err
	}
	if !acct.IsInstitute() {
		return account.ErrNotFound
	}
	if acct.Status != account.StatusApproved {
		return ErrNotApproved
	}
	return nil
}
