package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// RoutersService manages the access routers subscriptions terminate on.
type RoutersService struct {
	client *Client
}

func (s *RoutersService) List(ctx context.Context, opts ListOptions) (Page[Router], error) {
	var page Page[Router]
	if err := s.client.do(ctx, http.MethodGet, "/routers", opts.query(), nil, &page); err != nil {
		return Page[Router]{}, errors.Wrap(err, "[List] s.client.do")
	}
	return page, nil
}

func (s *RoutersService) Get(ctx context.Context, id int64) (Router, error) {
	var router Router
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/routers/%d", id), nil, nil, &router); err != nil {
		return Router{}, errors.Wrap(err, "[Get] s.client.do")
	}
	return router, nil
}

func (s *RoutersService) Create(ctx context.Context, router Router) (Router, error) {
	var created Router
	if err := s.client.do(ctx, http.MethodPost, "/routers", nil, router, &created); err != nil {
		return Router{}, errors.Wrap(err, "[Create] s.client.do")
	}
	return created, nil
}

func (s *RoutersService) Update(ctx context.Context, id int64, router Router) (Router, error) {
	var updated Router
	if err := s.client.do(ctx, http.MethodPatch, fmt.Sprintf("/routers/%d", id), nil, router, &updated); err != nil {
		return Router{}, errors.Wrap(err, "[Update] s.client.do")
	}
	return updated, nil
}

func (s *RoutersService) Delete(ctx context.Context, id int64) error {
	if err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/routers/%d", id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[Delete] s.client.do")
	}
	return nil
}
