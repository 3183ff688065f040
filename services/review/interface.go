package review

import (
	"context"
	"fmt"
	"net/url"

	"furk/models"
	"furk/services/api"
	"furk/services/lazyload"
)

type ReviewService interface {
	ForService(ctx context.Context, serviceID string, limit, offset int) ([]models.Review, error)
	Create(ctx context.Context, serviceID string, in models.ReviewInput) (*models.Review, error)
}

type DefaultReviewService struct {
	client *api.Client
}

func NewDefaultReviewService(client *api.Client) *DefaultReviewService {
	return &DefaultReviewService{client: client}
}

// Fetch pages through one service's reviews. The first dep is the service
// id; the keyword is ignored.
func Fetch(svc ReviewService) lazyload.FetchFunc[models.Review] {
	return func(ctx context.Context, limit, offset int, _ string) ([]models.Review, error) {
		return svc.ForService(ctx, lazyload.Dep(ctx, 0), limit, offset)
	}
}

func (s *DefaultReviewService) ForService(ctx context.Context, serviceID string, limit, offset int) ([]models.Review, error) {
	var list []models.Review
	path := "/services/" + url.PathEscape(serviceID) + "/reviews"
	if _, err := s.client.GetList(ctx, path, api.PageQuery(limit, offset, ""), &list); err != nil {
		return nil, fmt.Errorf("ForService: %w", err)
	}
	return list, nil
}

func (s *DefaultReviewService) Create(ctx context.Context, serviceID string, in models.ReviewInput) (*models.Review, error) {
	var out models.Review
	if err := s.client.Post(ctx, "/services/"+url.PathEscape(serviceID)+"/reviews", in, &out); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return &out, nil
}
