package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"student-registry/internal/apperr"
	"student-registry/internal/metrics"
	"student-registry/internal/models"
	"student-registry/internal/repository"
)

const (
	maxStudentTextLength = 100
	maxStudentAge        = 150
)

type StudentService struct {
	studentRepo *repository.StudentRepository
	audit       *AuditService
	metrics     *metrics.Metrics
}

func NewStudentService(studentRepo *repository.StudentRepository, audit *AuditService, m *metrics.Metrics) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		audit:       audit,
		metrics:     m,
	}
}

// StudentInput carries the fields of a new student record
type StudentInput struct {
	Name  string
	Age   int
	Major string
}

// Create registers a new student under the smallest free ID (VIP and above)
func (s *StudentService) Create(ctx context.Context, actor *models.User, in StudentInput) (*models.Student, error) {
	if err := Authorize(actor, OpWriteStudent); err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:  strings.TrimSpace(in.Name),
		Age:   in.Age,
		Major: strings.TrimSpace(in.Major),
	}
	if err := validateStudent(student); err != nil {
		return nil, err
	}

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Username, "student_create", fmt.Sprintf("Created student %d (%s)", student.ID, student.Name))
	s.metrics.StudentWrite("create")
	return student, nil
}

// List returns students matching the filter. Any active user may read.
func (s *StudentService) List(ctx context.Context, actor *models.User, filter models.StudentFilter) ([]models.Student, error) {
	if err := Authorize(actor, OpReadStudent); err != nil {
		return nil, err
	}
	if filter.Major != nil {
		major := strings.TrimSpace(*filter.Major)
		filter.Major = &major
	}
	return s.studentRepo.List(ctx, filter)
}

// Get returns a single student
func (s *StudentService) Get(ctx context.Context, actor *models.User, id uint) (*models.Student, error) {
	if err := Authorize(actor, OpReadStudent); err != nil {
		return nil, err
	}
	return s.studentRepo.FindByID(ctx, id)
}

// Update applies the supplied fields only (VIP and above)
func (s *StudentService) Update(ctx context.Context, actor *models.User, id uint, patch models.StudentPatch) (*models.Student, error) {
	if err := Authorize(actor, OpWriteStudent); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", apperr.ErrInvalid)
	}

	student, err := s.studentRepo.Update(ctx, id, func(st *models.Student) error {
		if patch.Name != nil {
			st.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Age != nil {
			st.Age = *patch.Age
		}
		if patch.Major != nil {
			st.Major = strings.TrimSpace(*patch.Major)
		}
		return validateStudent(st)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Username, "student_update", fmt.Sprintf("Updated student %d", id))
	s.metrics.StudentWrite("update")
	return student, nil
}

// Delete removes a student (VIP and above)
func (s *StudentService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := Authorize(actor, OpWriteStudent); err != nil {
		return err
	}
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Username, "student_delete", fmt.Sprintf("Deleted student %d", id))
	s.metrics.StudentWrite("delete")
	return nil
}

func validateStudent(st *models.Student) error {
	switch {
	case st.Name == "" || utf8.RuneCountInString(st.Name) > maxStudentTextLength:
		return fmt.Errorf("%w: name must be 1-%d characters", apperr.ErrInvalid, maxStudentTextLength)
	case st.Major == "" || utf8.RuneCountInString(st.Major) > maxStudentTextLength:
		return fmt.Errorf("%w: major must be 1-%d characters", apperr.ErrInvalid, maxStudentTextLength)
	case st.Age < 0 || st.Age > maxStudentAge:
		return fmt.Errorf("%w: age must be between 0 and %d", apperr.ErrInvalid, maxStudentAge)
	}
	return nil
}
