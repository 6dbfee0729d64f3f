// Package console is the interactive terminal surface of ispadmin: a
// line-based REPL bound to the session core and the typed resource services.
// Expiry warnings and forced logouts print asynchronously between prompts,
// and a forced logout drops the operator back to the login prompt.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/liimonx/ispadmin/api"
	"github.com/liimonx/ispadmin/internal/utils"
	"github.com/liimonx/ispadmin/session"
	"github.com/liimonx/ispadmin/users"
)

type Console struct {
	manager *session.Manager
	client  *api.Client

	input        io.Reader
	out          io.Writer
	scanner      *bufio.Scanner
	readPassword func() (string, error)

	mu      sync.Mutex
	wasAuth bool
}

type ConsoleOptions func(*Console)

func WithInput(r io.Reader) ConsoleOptions {
	return func(c *Console) { c.input = r }
}

func WithOutput(w io.Writer) ConsoleOptions {
	return func(c *Console) { c.out = w }
}

// WithPasswordReader replaces the no-echo terminal read, for tests and for
// piped input.
func WithPasswordReader(fn func() (string, error)) ConsoleOptions {
	return func(c *Console) { c.readPassword = fn }
}

func New(manager *session.Manager, client *api.Client, options ...ConsoleOptions) *Console {
	c := &Console{
		manager: manager,
		client:  client,
		input:   os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.readPassword == nil {
		c.readPassword = c.defaultReadPassword
	}
	return c
}

// Run subscribes to session events and serves the prompt until the operator
// quits, input closes or ctx is cancelled. Cancellation is only noticed
// between commands; a blocked read finishes first.
func (c *Console) Run(ctx context.Context) error {
	c.manager.OnExpiryWarning(func(remaining time.Duration) {
		fmt.Fprintf(c.out, "\n! session expires in %s, renewing automatically\n", remaining.Round(time.Second))
	})
	c.manager.OnChange(c.onSessionChange)

	c.mu.Lock()
	c.wasAuth = c.manager.Snapshot().Authenticated()
	c.mu.Unlock()

	c.scanner = bufio.NewScanner(c.input)
	fmt.Fprintln(c.out, `type "help" for commands`)

	for ctx.Err() == nil {
		fmt.Fprint(c.out, c.prompt())
		line, ok := c.readLine()
		if !ok {
			fmt.Fprintln(c.out)
			return errors.WithStack(c.scanner.Err())
		}
		if c.dispatch(ctx, strings.Fields(line)) {
			return nil
		}
	}
	return nil
}

// onSessionChange prints the forced-logout notice: the session was live and
// is now gone with an error attached. Manual logouts and failed logins pass
// through silently; their commands report inline.
func (c *Console) onSessionChange(snap session.Snapshot) {
	c.mu.Lock()
	was := c.wasAuth
	c.wasAuth = snap.Authenticated()
	c.mu.Unlock()

	if was && snap.State == session.StateUnauthenticated && snap.Err != nil {
		fmt.Fprintf(c.out, "\n! logged out: %s\nlog in again to continue\n", describeError(snap.Err))
	}
}

func (c *Console) prompt() string {
	snap := c.manager.Snapshot()
	if snap.Authenticated() {
		if snap.User != nil {
			return snap.User.Username + "> "
		}
		return "ispadmin> "
	}
	return "ispadmin (logged out)> "
}

// dispatch runs one command line. It returns true when the operator quits.
func (c *Console) dispatch(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return false
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		c.printHelp()
	case "login":
		c.cmdLogin(ctx, rest)
	case "logout":
		c.cmdLogout(ctx)
	case "whoami":
		c.cmdWhoami()
	case "status":
		c.cmdStatus()
	case "refresh":
		c.cmdRefresh(ctx)
	case "profile":
		c.cmdProfile(ctx, rest)
	case "customers":
		c.cmdCustomers(ctx, rest)
	case "customer":
		c.cmdCustomer(ctx, rest)
	case "plans":
		c.cmdPlans(ctx, rest)
	case "plan":
		c.cmdPlan(ctx, rest)
	case "subscriptions", "subs":
		c.cmdSubscriptions(ctx, rest)
	case "subscription", "sub":
		c.cmdSubscription(ctx, rest)
	case "routers":
		c.cmdRouters(ctx, rest)
	case "router":
		c.cmdRouter(ctx, rest)
	case "payments":
		c.cmdPayments(ctx, rest)
	case "payment":
		c.cmdPayment(ctx, rest)
	default:
		fmt.Fprintf(c.out, "unknown command %q, try \"help\"\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  login <username>          authenticate against the backend
  logout                    end the session
  whoami                    show the signed-in operator
  status                    session state and token expiry
  refresh                   renew the access token now
  profile [set k=v ...]     show or update the profile (first_name, last_name, email)
  customers [k=v ...]       list customers (page=N size=N search=S order=F)
  customer <id>             show one customer
  plans / plan <id>         tariff plans
  subscriptions / sub <id>  subscriptions
  routers / router <id>     access routers
  payments / payment <id>   payment records
  quit
`)
}

func (c *Console) cmdLogin(ctx context.Context, args []string) {
	if c.manager.Snapshot().Authenticated() {
		fmt.Fprintln(c.out, `already logged in; use "logout" first`)
		return
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Fprint(c.out, "username: ")
		line, ok := c.readLine()
		if !ok {
			return
		}
		username = line
	}
	if username == "" {
		fmt.Fprintln(c.out, "usage: login <username>")
		return
	}

	fmt.Fprint(c.out, "password: ")
	password, err := c.readPassword()
	if err != nil {
		fmt.Fprintf(c.out, "could not read password: %v\n", err)
		return
	}

	if err := c.manager.Login(ctx, username, password); err != nil {
		fmt.Fprintf(c.out, "login failed: %s\n", describeError(err))
		return
	}
	if snap := c.manager.Snapshot(); snap.User != nil {
		fmt.Fprintf(c.out, "welcome, %s (%s)\n", snap.User.FullName(), snap.User.Role)
	}
}

func (c *Console) cmdLogout(ctx context.Context) {
	if !c.manager.Snapshot().Authenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return
	}
	if err := c.manager.Logout(ctx); err != nil {
		fmt.Fprintf(c.out, "logout: %s\n", describeError(err))
		return
	}
	fmt.Fprintln(c.out, "logged out")
}

func (c *Console) cmdWhoami() {
	snap := c.manager.Snapshot()
	if snap.User == nil {
		fmt.Fprintln(c.out, "not logged in")
		return
	}
	renderUser(c.out, *snap.User)
}

func (c *Console) cmdStatus() {
	renderStatus(c.out, c.manager.Snapshot(), time.Now())
}

func (c *Console) cmdRefresh(ctx context.Context) {
	if err := c.manager.Refresh(ctx); err != nil {
		fmt.Fprintf(c.out, "refresh failed: %s\n", describeError(err))
		return
	}
	snap := c.manager.Snapshot()
	fmt.Fprintf(c.out, "token renewed, expires %s\n", snap.TokenExpiry.Local().Format(time.RFC1123))
}

func (c *Console) cmdProfile(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.cmdWhoami()
		return
	}
	if args[0] != "set" || len(args) == 1 {
		fmt.Fprintln(c.out, "usage: profile set first_name=... last_name=... email=...")
		return
	}

	var patch users.ProfilePatch
	for _, kv := range args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(c.out, "expected field=value, got %q\n", kv)
			return
		}
		switch key {
		case "first_name":
			patch.FirstName = utils.Ptr(value)
		case "last_name":
			patch.LastName = utils.Ptr(value)
		case "email":
			patch.Email = utils.Ptr(value)
		default:
			fmt.Fprintf(c.out, "unknown profile field %q\n", key)
			return
		}
	}

	user, err := c.manager.UpdateProfile(ctx, patch)
	if err != nil {
		fmt.Fprintf(c.out, "profile update failed: %s\n", describeError(err))
		return
	}
	fmt.Fprintln(c.out, "profile updated")
	renderUser(c.out, user)
}

func (c *Console) cmdCustomers(ctx context.Context, args []string) {
	opts, ok := c.parseListOptions(args)
	if !ok {
		return
	}
	page, err := c.client.Customers.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}
	renderCustomers(c.out, page)
}

func (c *Console) cmdCustomer(ctx context.Context, args []string) {
	id, ok := c.parseID(args, "customer")
	if !ok {
		return
	}
	customer, err := c.client.Customers.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	renderCustomer(c.out, customer)
}

func (c *Console) cmdPlans(ctx context.Context, args []string) {
	opts, ok := c.parseListOptions(args)
	if !ok {
		return
	}
	page, err := c.client.Plans.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}
	renderPlans(c.out, page)
}

func (c *Console) cmdPlan(ctx context.Context, args []string) {
	id, ok := c.parseID(args, "plan")
	if !ok {
		return
	}
	plan, err := c.client.Plans.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	renderPlan(c.out, plan)
}

func (c *Console) cmdSubscriptions(ctx context.Context, args []string) {
	opts, ok := c.parseListOptions(args)
	if !ok {
		return
	}
	page, err := c.client.Subscriptions.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}
	renderSubscriptions(c.out, page)
}

func (c *Console) cmdSubscription(ctx context.Context, args []string) {
	id, ok := c.parseID(args, "subscription")
	if !ok {
		return
	}
	subscription, err := c.client.Subscriptions.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	renderSubscription(c.out, subscription)
}

func (c *Console) cmdRouters(ctx context.Context, args []string) {
	opts, ok := c.parseListOptions(args)
	if !ok {
		return
	}
	page, err := c.client.Routers.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}
	renderRouters(c.out, page)
}

func (c *Console) cmdRouter(ctx context.Context, args []string) {
	id, ok := c.parseID(args, "router")
	if !ok {
		return
	}
	router, err := c.client.Routers.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	renderRouter(c.out, router)
}

func (c *Console) cmdPayments(ctx context.Context, args []string) {
	opts, ok := c.parseListOptions(args)
	if !ok {
		return
	}
	page, err := c.client.Billing.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}
	renderPayments(c.out, page)
}

func (c *Console) cmdPayment(ctx context.Context, args []string) {
	id, ok := c.parseID(args, "payment")
	if !ok {
		return
	}
	payment, err := c.client.Billing.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	renderPayment(c.out, payment)
}

func (c *Console) parseListOptions(args []string) (api.ListOptions, bool) {
	var opts api.ListOptions
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintf(c.out, "expected key=value, got %q\n", arg)
			return opts, false
		}
		switch key {
		case "page", "size":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				fmt.Fprintf(c.out, "%s must be a positive number, got %q\n", key, value)
				return opts, false
			}
			if key == "page" {
				opts.Page = n
			} else {
				opts.PageSize = n
			}
		case "search":
			opts.Search = value
		case "order":
			opts.Ordering = value
		default:
			fmt.Fprintf(c.out, "unknown option %q (page, size, search, order)\n", key)
			return opts, false
		}
	}
	return opts, true
}

func (c *Console) parseID(args []string, noun string) (int64, bool) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "usage: %s <id>\n", noun)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(c.out, "%s id must be a positive number, got %q\n", noun, args[0])
		return 0, false
	}
	return id, true
}

func (c *Console) printError(err error) {
	fmt.Fprintf(c.out, "error: %s\n", describeError(err))
}

func (c *Console) readLine() (string, bool) {
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

// defaultReadPassword reads without echo when input is a terminal and falls
// back to a plain line read otherwise.
func (c *Console) defaultReadPassword() (string, error) {
	if f, ok := c.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		defer fmt.Fprintln(c.out)
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", errors.Wrap(err, "term.ReadPassword")
		}
		return string(raw), nil
	}
	line, ok := c.readLine()
	if !ok {
		return "", errors.New("input closed")
	}
	return line, nil
}
