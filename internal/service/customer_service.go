package service

import (
	"context"
	"fmt"
	"strings"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/google/uuid"
)

type CreateCustomerRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	DocumentNumber string `json:"documentNumber"`
	Address        string `json:"address"`
	Type           string `json:"type" binding:"omitempty,oneof=particular empresa"`
}

// UpdateCustomerRequest is a partial update; nil fields are left untouched.
type UpdateCustomerRequest struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Phone          *string `json:"phone"`
	DocumentNumber *string `json:"documentNumber"`
	Address        *string `json:"address"`
	Type           *string `json:"type" binding:"omitempty,oneof=particular empresa"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*model.Customer, error)
	ListCustomers(ctx context.Context, search string) ([]model.Customer, error)
	// GetCustomer resolves key as an id when it parses as one, otherwise as a phone number.
	GetCustomer(ctx context.Context, key string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, phone string, req UpdateCustomerRequest) (*model.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	audit        AuditService
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, audit AuditService, txManager repository.TransactionManager) CustomerService {
	return &customerService{customerRepo: customerRepo, audit: audit, txManager: txManager}
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*model.Customer, error) {
	customer := model.Customer{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Phone:          strings.TrimSpace(req.Phone),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Address:        strings.TrimSpace(req.Address),
		Type:           req.Type,
	}
	if customer.Phone == "" {
		return nil, validationf("phone is required")
	}
	if customer.Type == "" {
		customer.Type = model.CustomerTypeParticular
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			if isDuplicateKey(err) {
				return validationf("a customer with phone %s already exists", customer.Phone)
			}
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return s.audit.Record(txCtx, model.ActionCreateCustomer, customer.ID.String(), customer.FullName(), req)
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string) ([]model.Customer, error) {
	customers, err := s.customerRepo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}
	return customers, nil
}

func (s *customerService) GetCustomer(ctx context.Context, key string) (*model.Customer, error) {
	var (
		customer *model.Customer
		err      error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		customer, err = s.customerRepo.FindByID(ctx, id)
	} else {
		customer, err = s.customerRepo.FindByPhone(ctx, key)
	}
	if err != nil {
		return nil, lookupErr("customer", err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, phone string, req UpdateCustomerRequest) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, lookupErr("customer", err)
	}

	if req.Phone != nil && strings.TrimSpace(*req.Phone) != customer.Phone {
		return nil, validationf("phone cannot be changed")
	}
	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, validationf("firstName cannot be empty")
		}
		customer.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, validationf("lastName cannot be empty")
		}
		customer.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.DocumentNumber != nil {
		customer.DocumentNumber = strings.TrimSpace(*req.DocumentNumber)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}
	if req.Type != nil {
		customer.Type = *req.Type
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return s.audit.Record(txCtx, model.ActionUpdateCustomer, customer.ID.String(), customer.FullName(), req)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}
