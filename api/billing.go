package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// BillingService manages payment records.
type BillingService struct {
	client *Client
}

func (s *BillingService) List(ctx context.Context, opts ListOptions) (Page[Payment], error) {
	var page Page[Payment]
	if err := s.client.do(ctx, http.MethodGet, "/billing/payments", opts.query(), nil, &page); err != nil {
		return Page[Payment]{}, errors.Wrap(err, "[List] s.client.do")
	}
	return page, nil
}

func (s *BillingService) Get(ctx context.Context, id int64) (Payment, error) {
	var payment Payment
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/billing/payments/%d", id), nil, nil, &payment); err != nil {
		return Payment{}, errors.Wrap(err, "[Get] s.client.do")
	}
	return payment, nil
}

func (s *BillingService) Create(ctx context.Context, payment Payment) (Payment, error) {
	var created Payment
	if err := s.client.do(ctx, http.MethodPost, "/billing/payments", nil, payment, &created); err != nil {
		return Payment{}, errors.Wrap(err, "[Create] s.client.do")
	}
	return created, nil
}

func (s *BillingService) Update(ctx context.Context, id int64, payment Payment) (Payment, error) {
	var updated Payment
	if err := s.client.do(ctx, http.MethodPatch, fmt.Sprintf("/billing/payments/%d", id), nil, payment, &updated); err != nil {
		return Payment{}, errors.Wrap(err, "[Update] s.client.do")
	}
	return updated, nil
}

func (s *BillingService) Delete(ctx context.Context, id int64) error {
	if err := s.client.do(ctx, http.MethodDelete, fmt.Sprintf("/billing/payments/%d", id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[Delete] s.client.do")
	}
	return nil
}
