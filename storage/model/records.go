package model

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Course is an entry of the course catalogue
type Course struct {
	CourseID    uint   `gorm:"primaryKey;column:course_id" json:"course_id"`
	CourseName  string `gorm:"column:course_name;not null" json:"course_name"`
	Description string `gorm:"column:description" json:"description"`
}

// TableName implements the gorm.Tabler interface
func (Course) TableName() string {
	return "course"
}

// Grade is the result a student achieved in a course
type Grade struct {
	GradeID   uint      `gorm:"primaryKey;column:grade_id" json:"grade_id"`
	WalletCID string    `gorm:"column:wallet_cid;index;not null;size:64" json:"wallet_cid"`
	CourseID  uint      `gorm:"column:course_id;not null" json:"course_id"`
	Points    float64   `gorm:"column:points" json:"points"`
	AddedAt   time.Time `gorm:"column:added_at;autoCreateTime" json:"added_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletCID;references:CID;constraint:OnDelete:CASCADE" json:"-"`
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"-"`
}

// TableName implements the gorm.Tabler interface
func (Grade) TableName() string {
	return "grades"
}

// GradeView is a Grade joined with its Course
type GradeView struct {
	Points      float64   `json:"points"`
	AddedAt     time.Time `json:"added_at"`
	CourseName  string    `json:"course_name"`
	Description string    `json:"description"`
}

// Certificate is a certificate issued to a student
type Certificate struct {
	CertificateID      uint           `gorm:"primaryKey;column:certificate_id" json:"certificate_id"`
	WalletCID          string         `gorm:"column:wallet_cid;index;not null;size:64" json:"-"`
	CertificateName    string         `gorm:"column:certificate_name;not null" json:"certificate_name"`
	IssuingInstitution string         `gorm:"column:issuing_institution" json:"issuing_institution"`
	IssueDate          datatypes.Date `gorm:"column:issue_date" json:"issue_date"`
	TranscriptURI      string         `gorm:"column:transcript_uri" json:"transcript_uri"`
	AddedAt            time.Time      `gorm:"column:added_at;autoCreateTime" json:"added_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletCID;references:CID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName implements the gorm.Tabler interface
func (Certificate) TableName() string {
	return "certificates"
}

// RecordStore gives access to the academic records of a student
type RecordStore interface {
	// Grades returns the grades stored under cid, newest first
	Grades(ctx context.Context, cid string) ([]GradeView, error)
	// Certificates returns the certificates stored under cid, most recently
	// issued first
	Certificates(ctx context.Context, cid string) ([]Certificate, error)
}
