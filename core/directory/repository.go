package directory

import (
	"encoding/json"
	"sync"

	"github.com/trezcool/elimu/core"
)

// Repository persists directory collections through the record store with
// the same whole-collection semantics as accounts. Per-institute views are
// derived by filtering on read.
type Repository struct {
	mu    sync.Mutex
	store core.RecordStore
}

func NewRepository(store core.RecordStore) *Repository {
	return &Repository{store: store}
}

func loadColl[T any](store core.RecordStore, key string) ([]T, error) {
	raw, ok, err := store.Load(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var coll []T
	if err := json.Unmarshal(raw, &coll); err != nil {
		// corrupt collection: treat as absent
		return nil, nil
	}
	return coll, nil
}

func saveColl[T any](store core.RecordStore, key string, coll []T) error {
	raw, err := json.Marshal(coll)
	if err != nil {
		return core.NewStorageError("save", key, err)
	}
	return store.Save(key, raw)
}

// Courses

func (repo *Repository) CreateCourse(course Course) (Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	courses, err := loadColl[Course](repo.store, core.KeyCourses)
	if err != nil {
		return Course{}, err
	}
	courses = append(courses, course)
	if err := saveColl(repo.store, core.KeyCourses, courses); err != nil {
		return Course{}, err
	}
	return course, nil
}

func (repo *Repository) GetCourseByID(id string) (Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	courses, err := loadColl[Course](repo.store, core.KeyCourses)
	if err != nil {
		return Course{}, err
	}
	for _, c := range courses {
		if c.ID == id {
			return c, nil
		}
	}
	return Course{}, ErrNotFound
}

func (repo *Repository) UpdateCourse(course Course) (Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	courses, err := loadColl[Course](repo.store, core.KeyCourses)
	if err != nil {
		return Course{}, err
	}
	for i, c := range courses {
		if c.ID == course.ID {
			courses[i] = course
			if err := saveColl(repo.store, core.KeyCourses, courses); err != nil {
				return Course{}, err
			}
			return course, nil
		}
	}
	return Course{}, ErrNotFound
}

func (repo *Repository) DeleteCourse(id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	courses, err := loadColl[Course](repo.store, core.KeyCourses)
	if err != nil {
		return err
	}
	for i, c := range courses {
		if c.ID == id {
			courses = append(courses[:i], courses[i+1:]...)
			return saveColl(repo.store, core.KeyCourses, courses)
		}
	}
	return ErrNotFound
}

func (repo *Repository) QueryCoursesByInstitute(instituteID string) ([]Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	courses, err := loadColl[Course](repo.store, core.KeyCourses)
	if err != nil {
		return nil, err
	}
	matched := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.InstituteID == instituteID {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// Reviews

func (repo *Repository) CreateReview(review Review) (Review, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	reviews, err := loadColl[Review](repo.store, core.KeyReviews)
	if err != nil {
		return Review{}, err
	}
	reviews = append(reviews, review)
	if err := saveColl(repo.store, core.KeyReviews, reviews); err != nil {
		return Review{}, err
	}
	return review, nil
}

func (repo *Repository) QueryReviewsByInstitute(instituteID string) ([]Review, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	reviews, err := loadColl[Review](repo.store, core.KeyReviews)
	if err != nil {
		return nil, err
	}
	matched := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.InstituteID == instituteID {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Enquiries

func (repo *Repository) CreateEnquiry(enquiry Enquiry) (Enquiry, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	enquiries, err := loadColl[Enquiry](repo.store, core.KeyEnquiries)
	if err != nil {
		return Enquiry{}, err
	}
	enquiries = append(enquiries, enquiry)
	if err := saveColl(repo.store, core.KeyEnquiries, enquiries); err != nil {
		return Enquiry{}, err
	}
	return enquiry, nil
}

func (repo *Repository) QueryEnquiriesByInstitute(instituteID string) ([]Enquiry, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	enquiries, err := loadColl[Enquiry](repo.store, core.KeyEnquiries)
	if err != nil {
		return nil, err
	}
	matched := make([]Enquiry, 0, len(enquiries))
	for _, e := range enquiries {
		if e.InstituteID == instituteID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}
