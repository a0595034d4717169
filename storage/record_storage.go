package storage

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// RecordStorage implements model.RecordStore using GORM
type RecordStorage struct {
	db *gorm.DB
}

// Grades returns the grades of cid joined with their course, newest first
func (s *RecordStorage) Grades(ctx context.Context, cid string) ([]model.GradeView, error) {
	grades := make([]model.GradeView, 0)
	err := s.db.WithContext(ctx).
		Table("grades AS g").
		Select("g.points, g.added_at, c.course_name, c.description").
		Joins("JOIN course c ON g.course_id = c.course_id").
		Where("g.wallet_cid = ?", cid).
		Order("g.added_at DESC").
		Order("g.grade_id DESC").
		Scan(&grades).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not load grades")
	}
	return grades, nil
}

// Certificates returns the certificates of cid, most recently issued first
func (s *RecordStorage) Certificates(ctx context.Context, cid string) ([]model.Certificate, error) {
	certs := make([]model.Certificate, 0)
	err := s.db.WithContext(ctx).
		Where("wallet_cid = ?", cid).
		Order("issue_date DESC").
		Order("certificate_id DESC").
		Find(&certs).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not load certificates")
	}
	return certs, nil
}

// Courses returns the course catalogue
func (s *RecordStorage) Courses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := s.db.WithContext(ctx).Order("course_id").Find(&courses).Error; err != nil {
		return nil, errors.Wrap(err, "could not load courses")
	}
	return courses, nil
}
