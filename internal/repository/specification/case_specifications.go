package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByStage struct {
	Stage string
}

func (s ByStage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stage = ?", s.Stage)
}

type ByPayerID struct {
	PayerID string
}

func (s ByPayerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payer_id = ?", s.PayerID)
}

type AssignedToReviewer struct {
	ReviewerID uuid.UUID
}

func (s AssignedToReviewer) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assigned_reviewer_id = ?", s.ReviewerID)
}

type WithDecisions struct{}

func (s WithDecisions) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Decisions")
}

type ForCase struct {
	CaseID uuid.UUID
}

func (s ForCase) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("case_id = ?", s.CaseID)
}
