package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/plantelhq/plantel/internal/enrollment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() enrollmentdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*enrollmentdomain.Enrollment, error) {
	var e enrollmentdomain.Enrollment
	err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) FindStudent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*enrollmentdomain.Student, error) {
	var st enrollmentdomain.Student
	err := db.WithContext(ctx).Where("id = ?", id).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *repo) InsertEnrollment(ctx context.Context, db *gorm.DB, e *enrollmentdomain.Enrollment) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) InsertStudent(ctx context.Context, db *gorm.DB, st *enrollmentdomain.Student) error {
	return db.WithContext(ctx).Create(st).Error
}

func (r *repo) InsertRepresentative(ctx context.Context, db *gorm.DB, rep *enrollmentdomain.Representative) error {
	return db.WithContext(ctx).Create(rep).Error
}
