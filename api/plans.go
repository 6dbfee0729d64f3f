package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// PlansService manages the tariff plans subscriptions are sold under.
type PlansService struct {
	client *Client
}

func (s *PlansService) List(ctx context.Context, opts ListOptions) (Page[Plan], error) {
	var page Page[Plan]
	if err := s.client.do(ctx, http.MethodGet, "/plans", opts.query(), nil, &page); err != nil {
		return Page[Plan]{}, errors.Wrap(err, "[List] s.client.do")
	}
	return page, nil
}

func (s *PlansService) Get(ctx context.Context, id int64) (Plan, error) {
	var plan Plan
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/plans/%d", id), nil, nil, &plan); err != nil {
		return Plan{}, errors.Wrap(err, "[Get] s.client.do")
	}
	return plan, nil
}

func (s *PlansService) Create(ctx context.Context, plan Plan) (Plan, error) {
	var created Plan
	if err := s.client.do(ctx, http.MethodPost, "/plans", nil, plan, &created); err != nil {
		return Plan{}, errors.Wrap(err, "[Create] s.client.do")
	}
	return created, nil
}

func (s *PlansService) Update(ctx context.Context, id int64, plan Plan) (Plan, error) {
	var updated Plan
	if err := s.client.do(ctx, http.MethodPatch, fmt.Sprintf("/plans/%d", id), nil, plan, &updated); err != nil {
		return Plan{}, errors.Wrap(err, "[Update] s.client.do")
	}
	return updated, nil
}

func (s *PlansService) Delete(ctx context.Context, id int64) error {
	if err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/plans/%d", id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[Delete] s.client.do")
	}
	return nil
}
