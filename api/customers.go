package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// CustomersService manages customer records.
type CustomersService struct {
	client *Client
}

func (s *CustomersService) List(ctx context.Context, opts ListOptions) (Page[Customer], error) {
	var page Page[Customer]
	if err := s.client.do(ctx, http.MethodGet, "/customers", opts.query(), nil, &page); err != nil {
		return Page[Customer]{}, errors.Wrap(err, "[List] s.client.do")
	}
	return page, nil
}

func (s *CustomersService) Get(ctx context.Context, id int64) (Customer, error) {
	var customer Customer
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%d", id), nil, nil, &customer); err != nil {
		return Customer{}, errors.Wrap(err, "[Get] s.client.do")
	}
	return customer, nil
}

func (s *CustomersService) Create(ctx context.Context, customer Customer) (Customer, error) {
	var created Customer
	if err := s.client.do(ctx, http.MethodPost, "/customers", nil, customer, &created); err != nil {
		return Customer{}, errors.Wrap(err, "[Create] s.client.do")
	}
	return created, nil
}

func (s *CustomersService) Update(ctx context.Context, id int64, customer Customer) (Customer, error) {
	var updated Customer
	if err := s.client.do(ctx, http.MethodPatch, fmt.Sprintf("/customers/%d", id), nil, customer, &updated); err != nil {
		return Customer{}, errors.Wrap(err, "[Update] s.client.do")
	}
	return updated, nil
}

func (s *CustomersService) Delete(ctx context.Context, id int64) error {
	if err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/customers/%d", id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[Delete] s.client.do")
	}
	return nil
}
