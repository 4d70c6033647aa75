package services

import (
	"errors"
	"log"

	"learnhub/events"
	"learnhub/models"

	"gorm.io/gorm"
)

type LeadService struct {
	db        *gorm.DB
	publisher events.Publisher
}

func NewLeadService(db *gorm.DB, publisher events.Publisher) *LeadService {
	return &LeadService{db: db, publisher: publisher}
}

type CreateLeadRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new contacted converted"`
}

func (s *LeadService) CreateLead(req *CreateLeadRequest) (*models.Lead, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, errors.New("lead needs an email or a phone number")
	}

	lead := models.Lead{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Grade:   req.Grade,
		Subject: req.Subject,
		Status:  models.LeadStatusNew,
	}

	if err := s.db.Create(&lead).Error; err != nil {
		return nil, err
	}

	if s.publisher != nil {
		// Fire and forget: a broker outage never fails the capture.
		if err := s.publisher.Publish(events.LeadCreatedKey, events.LeadCreated{
			LeadID:    lead.ID,
			Name:      lead.Name,
			Subject:   lead.Subject,
			CreatedAt: lead.CreatedAt,
		}); err != nil {
			log.Printf("Failed to publish %s for lead %d: %v", events.LeadCreatedKey, lead.ID, err)
		}
	}

	return &lead, nil
}

func (s *LeadService) GetLeads() ([]models.Lead, error) {
	var leads []models.Lead
	err := s.db.Order("created_at DESC").Find(&leads).Error
	return leads, err
}

func (s *LeadService) UpdateLeadStatus(leadID uint, req *UpdateLeadStatusRequest) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("lead not found")
		}
		return nil, err
	}

	lead.Status = req.Status
	if err := s.db.Save(&lead).Error; err != nil {
		return nil, err
	}

	return &lead, nil
}
