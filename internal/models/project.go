package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы проекта. Ветка rejected -> in_dispute управляется арбитражем,
// остальные переходы — жизненным циклом проекта.
const (
	ProjectStatusCreated    = "created"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusInReview   = "in_review"
	ProjectStatusRejected   = "rejected"
	ProjectStatusInDispute  = "in_dispute"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// Project описывает проект: клиент публикует, фрилансер выполняет.
// Бюджет фиксируется при создании в минимальных единицах валюты и не меняется.
type Project struct {
	ID              int64      `db:"id" json:"id"`
	ClientID        uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID    *uuid.UUID `db:"freelancer_id" json:"freelancer_id,omitempty"`
	Budget          int64      `db:"budget" json:"budget"`
	Status          string     `db:"status" json:"status"`
	RequirementsURI string     `db:"requirements_uri" json:"requirements_uri"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	WorkHash        *string    `db:"work_hash" json:"work_hash,omitempty"`
	WorkURI         *string    `db:"work_uri" json:"work_uri,omitempty"`
	SubmittedAt     *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParty проверяет, является ли аккаунт стороной проекта.
func (p *Project) IsParty(accountID uuid.UUID) bool {
	if p.ClientID == accountID {
		return true
	}
	return p.FreelancerID != nil && *p.FreelancerID == accountID
}

// CanTransitionTo проверяет допустимость перехода статуса проекта.
func CanTransitionTo(current, next string) bool {
	transitions := map[string][]string{
		ProjectStatusCreated:    {ProjectStatusInProgress, ProjectStatusCancelled},
		ProjectStatusInProgress: {ProjectStatusInReview},
		ProjectStatusInReview:   {ProjectStatusCompleted, ProjectStatusRejected},
		ProjectStatusRejected:   {ProjectStatusInReview, ProjectStatusInDispute},
		ProjectStatusInDispute:  {ProjectStatusCompleted},
		ProjectStatusCompleted:  {},
		ProjectStatusCancelled:  {},
	}

	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}
