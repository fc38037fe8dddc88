package models

import "time"

// Student represents the students table
// ID is assigned by the repository (smallest unused positive integer), never by the database.
type Student struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Age       int       `gorm:"not null;index" json:"age"`
	Major     string    `gorm:"size:100;not null;index" json:"major"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Student model
func (Student) TableName() string {
	return "students"
}

// StudentFilter narrows a student listing. Nil fields are not applied.
type StudentFilter struct {
	Major *string
	Age   *int
}

// StudentPatch carries the fields of a partial update. Nil fields are left unchanged.
type StudentPatch struct {
	Name  *string
	Age   *int
	Major *string
}

func (p StudentPatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Major == nil
}
