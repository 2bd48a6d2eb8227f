package directory

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	memstore "github.com/trezcool/elimu/storage/record/memory"
)

func setup(t *testing.T) (*account.Repository, Service) {
	t.Helper()
	store := memstore.Open()
	acctRepo := account.NewRepository(store)
	acctSvc := account.NewService(acctRepo, nil, &core.Config{TestMode: true})
	return acctRepo, NewService(NewRepository(store), acctSvc)
}

func createIdentity(t *testing.T, repo *account.Repository, name, email, role, status string) account.Identity {
	t.Helper()
	now := time.Now().UTC()
	acct := account.Account{
		ID:        email,
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == account.StatusApproved {
		acct.Permissions = account.RolePermissions(role)
	}
	acct, err := repo.CreateAccount(acct)
	if err != nil {
		t.Fatalf("createIdentity() failed: %v", err)
	}
	return acct.Identity()
}

func Test_service_courseLifecycle(t *testing.T) {
	acctRepo, svc := setup(t)
	inst := createIdentity(t, acctRepo, "Kin Tech", "kti@test.cd", account.RoleInstitute, account.StatusApproved)
	other := createIdentity(t, acctRepo, "Other Tech", "other@test.cd", account.RoleInstitute, account.StatusApproved)

	course, err := svc.CreateCourse(inst, NewCourse{Title: "Go Backend Engineering", Category: "Technology", Fee: 150})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if course.InstituteID != inst.ID {
		t.Errorf("InstituteID = %q; want %q", course.InstituteID, inst.ID)
	}

	course, err = svc.UpdateCourse(inst, course.ID, NewCourse{Title: "Advanced Go", Fee: 200})
	if err != nil {
		t.Fatalf("UpdateCourse() failed: %v", err)
	}
	if course.Title != "Advanced Go" || course.Fee != 200 {
		t.Errorf("course = %+v; want the update applied", course)
	}

	// an institute cannot touch another institute's course
	if _, err = svc.UpdateCourse(other, course.ID, NewCourse{Title: "Hijacked"}); errors.Cause(err) != ErrPermissionDenied {
		t.Errorf("UpdateCourse() error = %v; want %v", err, ErrPermissionDenied)
	}
	if err = svc.DeleteCourse(other, course.ID); errors.Cause(err) != ErrPermissionDenied {
		t.Errorf("DeleteCourse() error = %v; want %v", err, ErrPermissionDenied)
	}

	courses, err := svc.InstituteCourses(inst)
	if err != nil {
		t.Fatalf("InstituteCourses() failed: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("len(courses) = %d; want 1", len(courses))
	}

	if err = svc.DeleteCourse(inst, course.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}
	courses, _ = svc.InstituteCourses(inst)
	if len(courses) != 0 {
		t.Errorf("len(courses) = %d after delete; want 0", len(courses))
	}
}

func Test_service_permissionsGateEverything(t *testing.T) {
	acctRepo, svc := setup(t)
	// a pending institute carries no permissions yet
	pending := createIdentity(t, acctRepo, "Pending Tech", "pt@test.cd", account.RoleInstitute, account.StatusPending)
	student := createIdentity(t, acctRepo, "Awe", "awe@test.cd", account.RoleStudent, account.StatusApproved)

	if _, err := svc.CreateCourse(pending, NewCourse{Title: "Nope"}); errors.Cause(err) != ErrPermissionDenied {
		t.Errorf("CreateCourse() error = %v; want %v", err, ErrPermissionDenied)
	}
	if _, err := svc.InstituteEnquiries(pending); errors.Cause(err) != ErrPermissionDenied {
		t.Errorf("InstituteEnquiries() error = %v; want %v", err, ErrPermissionDenied)
	}
	if _, err := svc.CreateCourse(student, NewCourse{Title: "Nope"}); errors.Cause(err) != ErrPermissionDenied {
		t.Errorf("CreateCourse() by student error = %v; want %v", err, ErrPermissionDenied)
	}
}

func Test_service_enquiriesAndReviews(t *testing.T) {
	acctRepo, svc := setup(t)
	inst := createIdentity(t, acctRepo, "Kin Tech", "kti@test.cd", account.RoleInstitute, account.StatusApproved)
	pendingInst := createIdentity(t, acctRepo, "Pending Tech", "pt@test.cd", account.RoleInstitute, account.StatusPending)
	student := createIdentity(t, acctRepo, "Awe", "awe@test.cd", account.RoleStudent, account.StatusApproved)

	enquiry, err := svc.SendEnquiry(student, inst.ID, NewEnquiry{Subject: "Fees", Message: "What are the fees?"})
	if err != nil {
		t.Fatalf("SendEnquiry() failed: %v", err)
	}
	if enquiry.StudentID != student.ID || enquiry.Email != student.Email {
		t.Errorf("enquiry = %+v; want it stamped with the student identity", enquiry)
	}

	// only the target institute sees its enquiries
	enquiries, err := svc.InstituteEnquiries(inst)
	if err != nil {
		t.Fatalf("InstituteEnquiries() failed: %v", err)
	}
	if len(enquiries) != 1 {
		t.Errorf("len(enquiries) = %d; want 1", len(enquiries))
	}

	// an unapproved institute is not reachable
	if _, err = svc.SendEnquiry(student, pendingInst.ID, NewEnquiry{Subject: "Hi", Message: "Hi"}); errors.Cause(err) != ErrNotApproved {
		t.Errorf("SendEnquiry() error = %v; want %v", err, ErrNotApproved)
	}
	if _, err = svc.PostReview(student, pendingInst.ID, NewReview{Rating: 5}); errors.Cause(err) != ErrNotApproved {
		t.Errorf("PostReview() error = %v; want %v", err, ErrNotApproved)
	}

	review, err := svc.PostReview(student, inst.ID, NewReview{Rating: 4, Comment: "Solid courses"})
	if err != nil {
		t.Fatalf("PostReview() failed: %v", err)
	}
	reviews, err := svc.ReviewsByInstitute(inst.ID)
	if err != nil {
		t.Fatalf("ReviewsByInstitute() failed: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ID != review.ID {
		t.Errorf("reviews = %v; want [%s]", reviews, review.ID)
	}

	// reviewing a student as if it were an institute
	if _, err = svc.PostReview(student, student.ID, NewReview{Rating: 1}); errors.Cause(err) != account.ErrNotFound {
		t.Errorf("PostReview() error = %v; want %v", err, account.ErrNotFound)
	}
}

func Test_service_ApprovedInstitutes(t *testing.T) {
	acctRepo, svc := setup(t)
	approved := createIdentity(t, acctRepo, "Kin Tech", "kti@test.cd", account.RoleInstitute, account.StatusApproved)
	createIdentity(t, acctRepo, "Pending Tech", "pt@test.cd", account.RoleInstitute, account.StatusPending)
	createIdentity(t, acctRepo, "Awe", "awe@test.cd", account.RoleStudent, account.StatusApproved)

	idents, err := svc.ApprovedInstitutes()
	if err != nil {
		t.Fatalf("ApprovedInstitutes() failed: %v", err)
	}
	if len(idents) != 1 || idents[0].ID != approved.ID {
		t.Errorf("idents = %v; want only %s", idents, approved.ID)
	}
}
