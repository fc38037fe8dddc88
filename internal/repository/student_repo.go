package repository

import (
	"context"
	"fmt"
	"sync"

	"student-registry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentRepository struct {
	db *gorm.DB

	// serializes id allocation within the process; SQLite has no row locks
	allocMu sync.Mutex
}

func NewStudentRepo(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID retrieves a student by ID
func (r *StudentRepository) FindByID(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("student %d", id))
	}
	return &student, nil
}

// List returns students matching every set filter, ordered by ID.
// Major is compared case-insensitively, age exactly.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})
	if filter.Major != nil {
		query = query.Where("LOWER(major) = LOWER(?)", *filter.Major)
	}
	if filter.Age != nil {
		query = query.Where("age = ?", *filter.Age)
	}

	var students []models.Student
	if err := query.Order("id ASC").Find(&students).Error; err != nil {
		return nil, translate(err, "students")
	}
	return students, nil
}

// Create assigns the smallest unused positive ID to the student and inserts it
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Student{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		student.ID = smallestUnusedID(ids)
		return tx.Create(student).Error
	})
	return translate(err, "student")
}

// Update locks the student row, applies fn and saves the result in one transaction
func (r *StudentRepository) Update(ctx context.Context, id uint, fn func(student *models.Student) error) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&student).Error; err != nil {
			return err
		}
		if err := fn(&student); err != nil {
			return err
		}
		return tx.Save(&student).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("student %d", id))
	}
	return &student, nil
}

// Delete permanently deletes a student
func (r *StudentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Student{}, id)
	if result.Error != nil {
		return translate(result.Error, fmt.Sprintf("student %d", id))
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, fmt.Sprintf("student %d", id))
	}
	return nil
}

// smallestUnusedID returns the smallest positive integer missing from ids.
// ids must be sorted ascending.
func smallestUnusedID(ids []uint) uint {
	next := uint(1)
	for _, id := range ids {
		if id < next {
			continue
		}
		if id > next {
			break
		}
		next++
	}
	return next
}
