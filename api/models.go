package api

import (
	"net/url"
	"strconv"
	"time"
)

// Page is the list envelope the backend wraps every collection in.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ListOptions maps to the standard list query parameters. Zero values are
// omitted from the query string.
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
	Ordering string // field name, "-" prefix for descending
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Ordering != "" {
		q.Set("ordering", o.Ordering)
	}
	return q
}

const (
	CustomerActive    = "active"
	CustomerSuspended = "suspended"

	SubscriptionActive    = "active"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

type Customer struct {
	ID        int64     `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Plan struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	SpeedMbps    int    `json:"speed_mbps,omitempty"`
	DataCapGB    int    `json:"data_cap_gb,omitempty"` // 0 means unlimited
	MonthlyPrice string `json:"monthly_price,omitempty"`
	IsActive     bool   `json:"is_active,omitempty"`
}

type Subscription struct {
	ID         int64  `json:"id,omitempty"`
	CustomerID int64  `json:"customer_id,omitempty"`
	PlanID     int64  `json:"plan_id,omitempty"`
	RouterID   int64  `json:"router_id,omitempty"`
	Status     string `json:"status,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    string `json:"end_date,omitempty"`
}

type Router struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Host     string `json:"host,omitempty"`
	Model    string `json:"model,omitempty"`
	Location string `json:"location,omitempty"`
	IsOnline bool   `json:"is_online,omitempty"`
}

type Payment struct {
	ID             int64     `json:"id,omitempty"`
	SubscriptionID int64     `json:"subscription_id,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Method         string    `json:"method,omitempty"`
	Status         string    `json:"status,omitempty"`
	PaidAt         time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
