// Package notification lists and acknowledges in-app notifications.
package notification

import (
	"context"
	"fmt"
	"net/url"

	"furk/models"
	"furk/services/api"
)

type NotificationService interface {
	List(ctx context.Context, limit, offset int, keyword string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

type DefaultNotificationService struct {
	client *api.Client
}

func NewDefaultNotificationService(client *api.Client) *DefaultNotificationService {
	return &DefaultNotificationService{client: client}
}

func (s *DefaultNotificationService) List(ctx context.Context, limit, offset int, keyword string) ([]models.Notification, error) {
	var list []models.Notification
	if _, err := s.client.GetList(ctx, "/notifications", api.PageQuery(limit, offset, keyword), &list); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return list, nil
}

func (s *DefaultNotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.client.Put(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, nil); err != nil {
		return fmt.Errorf("MarkRead: %w", err)
	}
	return nil
}

func (s *DefaultNotificationService) MarkAllRead(ctx context.Context) error {
	if err := s.client.Put(ctx, "/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("MarkAllRead: %w", err)
	}
	return nil
}
