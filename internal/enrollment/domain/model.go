package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Student struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	FirstName        string       `json:"first_name" gorm:"type:text;not null"`
	LastName         string       `json:"last_name" gorm:"type:text;not null"`
	DocumentID       string       `json:"document_id" gorm:"type:text;index"`
	RepresentativeID snowflake.ID `json:"representative_id" gorm:"not null;index"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (Student) TableName() string { return "students" }

type Representative struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	FirstName string       `json:"first_name" gorm:"type:text;not null"`
	LastName  string       `json:"last_name" gorm:"type:text;not null"`
	Email     string       `json:"email" gorm:"type:text"`
	Phone     string       `json:"phone" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Representative) TableName() string { return "representatives" }

// Tariff is a one-off fee type (arancel), distinct from the recurring
// monthly tuition a charge represents.
type Tariff struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Tariff) TableName() string { return "tariffs" }

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusWithdrawn EnrollmentStatus = "withdrawn"
)

type Enrollment struct {
	ID               snowflake.ID     `json:"id" gorm:"primaryKey"`
	StudentID        snowflake.ID     `json:"student_id" gorm:"not null;index"`
	RepresentativeID snowflake.ID     `json:"representative_id" gorm:"not null;index"`
	SchoolYearID     snowflake.ID     `json:"school_year_id" gorm:"not null;index"`
	TariffID         *snowflake.ID    `json:"tariff_id"`
	Status           EnrollmentStatus `json:"status" gorm:"type:text;not null;default:'active'"`
	EnrolledAt       time.Time        `json:"enrolled_at" gorm:"not null"`
	CreatedAt        time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"not null"`
}

func (Enrollment) TableName() string { return "enrollments" }

var (
	ErrEnrollmentNotFound = errors.New("enrollment_not_found")
	ErrStudentNotFound    = errors.New("student_not_found")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	FindStudent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	InsertEnrollment(ctx context.Context, db *gorm.DB, e *Enrollment) error
	InsertStudent(ctx context.Context, db *gorm.DB, st *Student) error
	InsertRepresentative(ctx context.Context, db *gorm.DB, rep *Representative) error
}
