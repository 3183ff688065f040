package transaction

import (
	"context"
	"fmt"

	"furk/models"
	"furk/services/api"
)

type TransactionService interface {
	Merchant(ctx context.Context, limit, offset int, keyword string) ([]models.Transaction, error)
	Affiliate(ctx context.Context, limit, offset int, keyword string) ([]models.Transaction, error)
}

type DefaultTransactionService struct {
	client *api.Client
}

func NewDefaultTransactionService(client *api.Client) *DefaultTransactionService {
	return &DefaultTransactionService{client: client}
}

func (s *DefaultTransactionService) Merchant(ctx context.Context, limit, offset int, keyword string) ([]models.Transaction, error) {
	return s.list(ctx, "/merchant/transactions", limit, offset, keyword)
}

func (s *DefaultTransactionService) Affiliate(ctx context.Context, limit, offset int, keyword string) ([]models.Transaction, error) {
	return s.list(ctx, "/affiliate/transactions", limit, offset, keyword)
}

func (s *DefaultTransactionService) list(ctx context.Context, path string, limit, offset int, keyword string) ([]models.Transaction, error) {
	var list []models.Transaction
	if _, err := s.client.GetList(ctx, path, api.PageQuery(limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("transactions %s: %w", path, err)
	}
	return list, nil
}
