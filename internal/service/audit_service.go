package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entityId"`
	EntityName string          `json:"entityName"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"createdAt"`
}

type AuditService interface {
	// Record writes an entry, joining the caller's transaction when ctx carries one.
	Record(ctx context.Context, action, entityID, entityName string, details interface{}) error
	GetAuditLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, action, entityID, entityName string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *auditService) GetAuditLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, entityID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// recordBestEffort is for paths that must not fail because the audit trail did.
func recordBestEffort(ctx context.Context, audit AuditService, action, entityID, entityName string, details interface{}) {
	if err := audit.Record(ctx, action, entityID, entityName, details); err != nil {
		log.Printf("audit %s %s: %v", action, entityID, err)
	}
}
