package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/liimonx/ispadmin/api"
	"github.com/liimonx/ispadmin/apperrors"
	"github.com/liimonx/ispadmin/session"
	"github.com/liimonx/ispadmin/users"
)

// describeError turns a classified failure into one operator-facing line.
func describeError(err error) string {
	var appErr *apperrors.Error
	if !apperrors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Kind {
	case apperrors.KindRateLimit:
		if appErr.RetryAfter > 0 {
			return fmt.Sprintf("%s (try again in %s)", appErr.Message, appErr.RetryAfter)
		}
		return appErr.Message
	case apperrors.KindValidation:
		parts := append([]string{appErr.Message}, appErr.FieldMessages()...)
		return strings.Join(parts, "; ")
	case apperrors.KindNetwork:
		return fmt.Sprintf("cannot reach the backend (%s)", appErr.Message)
	default:
		return appErr.Message
	}
}

func renderStatus(w io.Writer, snap session.Snapshot, now time.Time) {
	fmt.Fprintf(w, "state: %s\n", snap.State)
	if snap.Refreshing {
		fmt.Fprintln(w, "a token refresh is in flight")
	}
	if snap.User != nil {
		fmt.Fprintf(w, "operator: %s (%s)\n", snap.User.Username, snap.User.Role)
	}
	if !snap.TokenExpiry.IsZero() {
		remaining := snap.TokenExpiry.Sub(now).Round(time.Second)
		fmt.Fprintf(w, "token expires: %s (in %s)\n", snap.TokenExpiry.Local().Format(time.RFC1123), remaining)
	}
	if snap.Err != nil {
		fmt.Fprintf(w, "last error: %s\n", describeError(snap.Err))
	}
}

func renderUser(w io.Writer, user users.User) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", user.ID)
	fmt.Fprintf(tw, "username\t%s\n", user.Username)
	fmt.Fprintf(tw, "name\t%s\n", user.FullName())
	fmt.Fprintf(tw, "email\t%s\n", user.Email)
	fmt.Fprintf(tw, "role\t%s\n", user.Role)
	fmt.Fprintf(tw, "active\t%s\n", yesNo(user.IsActive))
	if !user.LastLogin.IsZero() {
		fmt.Fprintf(tw, "last login\t%s\n", user.LastLogin.Local().Format(time.RFC1123))
	}
	tw.Flush()
}

func renderCustomers(w io.Writer, page api.Page[api.Customer]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "id\tname\temail\tphone\tstatus")
	for _, customer := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			customer.ID, customer.Name, customer.Email, customer.Phone, customer.Status)
	}
	tw.Flush()
	pageFooter(w, len(page.Results), page.Count)
}

func renderCustomer(w io.Writer, customer api.Customer) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", customer.ID)
	fmt.Fprintf(tw, "name\t%s\n", customer.Name)
	fmt.Fprintf(tw, "email\t%s\n", customer.Email)
	fmt.Fprintf(tw, "phone\t%s\n", customer.Phone)
	fmt.Fprintf(tw, "address\t%s\n", customer.Address)
	fmt.Fprintf(tw, "status\t%s\n", customer.Status)
	if !customer.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "created\t%s\n", customer.CreatedAt.Local().Format(time.RFC1123))
	}
	tw.Flush()
}

func renderPlans(w io.Writer, page api.Page[api.Plan]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "id\tname\tspeed\tcap\tprice\tactive")
	for _, plan := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%d Mbps\t%s\t%s\t%s\n",
			plan.ID, plan.Name, plan.SpeedMbps, dataCap(plan.DataCapGB), plan.MonthlyPrice, yesNo(plan.IsActive))
	}
	tw.Flush()
	pageFooter(w, len(page.Results), page.Count)
}

func renderPlan(w io.Writer, plan api.Plan) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", plan.ID)
	fmt.Fprintf(tw, "name\t%s\n", plan.Name)
	fmt.Fprintf(tw, "speed\t%d Mbps\n", plan.SpeedMbps)
	fmt.Fprintf(tw, "data cap\t%s\n", dataCap(plan.DataCapGB))
	fmt.Fprintf(tw, "price\t%s/month\n", plan.MonthlyPrice)
	fmt.Fprintf(tw, "active\t%s\n", yesNo(plan.IsActive))
	tw.Flush()
}

func renderSubscriptions(w io.Writer, page api.Page[api.Subscription]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "id\tcustomer\tplan\trouter\tstatus\tstart")
	for _, subscription := range page.Results {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\n",
			subscription.ID, subscription.CustomerID, subscription.PlanID,
			subscription.RouterID, subscription.Status, subscription.StartDate)
	}
	tw.Flush()
	pageFooter(w, len(page.Results), page.Count)
}

func renderSubscription(w io.Writer, subscription api.Subscription) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", subscription.ID)
	fmt.Fprintf(tw, "customer\t%d\n", subscription.CustomerID)
	fmt.Fprintf(tw, "plan\t%d\n", subscription.PlanID)
	fmt.Fprintf(tw, "router\t%d\n", subscription.RouterID)
	fmt.Fprintf(tw, "status\t%s\n", subscription.Status)
	fmt.Fprintf(tw, "start\t%s\n", subscription.StartDate)
	if subscription.EndDate != "" {
		fmt.Fprintf(tw, "end\t%s\n", subscription.EndDate)
	}
	tw.Flush()
}

func renderRouters(w io.Writer, page api.Page[api.Router]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "id\tname\thost\tmodel\tlocation\tonline")
	for _, router := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			router.ID, router.Name, router.Host, router.Model, router.Location, yesNo(router.IsOnline))
	}
	tw.Flush()
	pageFooter(w, len(page.Results), page.Count)
}

func renderRouter(w io.Writer, router api.Router) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", router.ID)
	fmt.Fprintf(tw, "name\t%s\n", router.Name)
	fmt.Fprintf(tw, "host\t%s\n", router.Host)
	fmt.Fprintf(tw, "model\t%s\n", router.Model)
	fmt.Fprintf(tw, "location\t%s\n", router.Location)
	fmt.Fprintf(tw, "online\t%s\n", yesNo(router.IsOnline))
	tw.Flush()
}

func renderPayments(w io.Writer, page api.Page[api.Payment]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "id\tsubscription\tamount\tmethod\tstatus\tpaid")
	for _, payment := range page.Results {
		paidAt := ""
		if !payment.PaidAt.IsZero() {
			paidAt = payment.PaidAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			payment.ID, payment.SubscriptionID, payment.Amount, payment.Method, payment.Status, paidAt)
	}
	tw.Flush()
	pageFooter(w, len(page.Results), page.Count)
}

func renderPayment(w io.Writer, payment api.Payment) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", payment.ID)
	fmt.Fprintf(tw, "subscription\t%d\n", payment.SubscriptionID)
	fmt.Fprintf(tw, "amount\t%s\n", payment.Amount)
	fmt.Fprintf(tw, "method\t%s\n", payment.Method)
	fmt.Fprintf(tw, "status\t%s\n", payment.Status)
	if !payment.PaidAt.IsZero() {
		fmt.Fprintf(tw, "paid\t%s\n", payment.PaidAt.Local().Format(time.RFC1123))
	}
	tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func pageFooter(w io.Writer, shown, total int) {
	if total > shown {
		fmt.Fprintf(w, "showing %d of %d\n", shown, total)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dataCap(gb int) string {
	if gb <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d GB", gb)
}
