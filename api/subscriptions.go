package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// SubscriptionsService manages the link between a customer, a plan and the
// router serving them.
type SubscriptionsService struct {
	client *Client
}

func (s *SubscriptionsService) List(ctx context.Context, opts ListOptions) (Page[Subscription], error) {
	var page Page[Subscription]
	if err := s.client.do(ctx, http.MethodGet, "/subscriptions", opts.query(), nil, &page); err != nil {
		return Page[Subscription]{}, errors.Wrap(err, "[List] s.client.do")
	}
	return page, nil
}

func (s *SubscriptionsService) Get(ctx context.Context, id int64) (Subscription, error) {
	var subscription Subscription
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/subscriptions/%d", id), nil, nil, &subscription); err != nil {
		return Subscription{}, errors.Wrap(err, "[Get] s.client.do")
	}
	return subscription, nil
}

func (s *SubscriptionsService) Create(ctx context.Context, subscription Subscription) (Subscription, error) {
	var created Subscription
	if err := s.client.do(ctx, http.MethodPost, "/subscriptions", nil, subscription, &created); err != nil {
		return Subscription{}, errors.Wrap(err, "[Create] s.client.do")
	}
	return created, nil
}

func (s *SubscriptionsService) Update(ctx context.Context, id int64, subscription Subscription) (Subscription, error) {
	var updated Subscription
	if err := s.client.do(ctx, http.MethodPatch, fmt.Sprintf("/subscriptions/%d", id), nil, subscription, &updated); err != nil {
		return Subscription{}, errors.Wrap(err, "[Update] s.client.do")
	}
	return updated, nil
}

func (s *SubscriptionsService) Delete(ctx context.Context, id int64) error {
	if err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/subscriptions/%d", id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[Delete] s.client.do")
	}
	return nil
}
