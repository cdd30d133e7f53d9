// Package orgctx tracks which organization the session is working in.
//
// The context moves Uninitialized -> Loading -> Ready or NeedsOnboarding.
// Reading the current organization never writes: when the server has no
// current pointer but the user has memberships, Load calls EnsureCurrent,
// which promotes the first membership with an explicit switch.
package orgctx

import (
	"context"
	"sync"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// API is the part of the remote client the context needs.
type API interface {
	ListOrganizations(ctx context.Context) envelope.Result[[]models.OrganizationWithRole]
	CurrentOrganization(ctx context.Context) envelope.Result[*models.OrganizationWithRole]
	CreateOrganization(ctx context.Context, name string) envelope.Result[models.OrganizationWithRole]
	SwitchOrganization(ctx context.Context, orgID string) envelope.Result[models.OrganizationWithRole]
}

// Phase is the lifecycle state of the context.
type Phase int

const (
	Uninitialized Phase = iota
	Loading
	// Ready has a current organization.
	Ready
	// NeedsOnboarding means the user belongs to no organization.
	NeedsOnboarding
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case NeedsOnboarding:
		return "needs_onboarding"
	default:
		return "uninitialized"
	}
}

// State is a snapshot of the context. Current is set only in Ready.
type State struct {
	Phase         Phase
	Current       *models.OrganizationWithRole
	Organizations []models.OrganizationWithRole
	Err           *envelope.Error
}

// Context holds the session's organization state.
type Context struct {
	api API

	mu    sync.Mutex
	state State
}

// New creates an uninitialized context.
func New(api API) *Context {
	return &Context{api: api}
}

// State returns a snapshot.
func (o *Context) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state
	st.Organizations = append([]models.OrganizationWithRole(nil), o.state.Organizations...)
	return st
}

// Load fetches the memberships and the current pointer. On failure the
// previous phase is restored and the error recorded.
func (o *Context) Load(ctx context.Context) error {
	o.mu.Lock()
	prev := o.state.Phase
	o.state.Phase = Loading
	o.mu.Unlock()

	orgs := o.api.ListOrganizations(ctx)
	if !orgs.OK() {
		return o.fail(prev, orgs.Err)
	}
	current := o.api.CurrentOrganization(ctx)
	if !current.OK() {
		return o.fail(prev, current.Err)
	}

	o.mu.Lock()
	o.state.Organizations = orgs.Value
	o.state.Err = nil
	o.settleLocked(current.Value)
	o.mu.Unlock()

	if err := o.EnsureCurrent(ctx); err != nil {
		return o.fail(Uninitialized, envelope.As(err))
	}
	return nil
}

// EnsureCurrent makes the first membership current when none is. It does
// nothing when a current organization is set or there are no memberships.
func (o *Context) EnsureCurrent(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Current != nil || len(o.state.Organizations) == 0 {
		o.mu.Unlock()
		return nil
	}
	first := o.state.Organizations[0].ID
	o.mu.Unlock()

	return o.Switch(ctx, first)
}

// Create makes a new organization. The server makes it current, so the
// context moves straight to Ready with it.
func (o *Context) Create(ctx context.Context, name string) (models.OrganizationWithRole, error) {
	res := o.api.CreateOrganization(ctx, name)
	if !res.OK() {
		o.mu.Lock()
		o.state.Err = res.Err
		o.mu.Unlock()
		return models.OrganizationWithRole{}, res.Err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Organizations = append(o.state.Organizations, res.Value)
	o.state.Err = nil
	created := res.Value
	o.settleLocked(&created)
	return res.Value, nil
}

// Switch makes orgID current. Any failure, FORBIDDEN included, leaves the
// state untouched.
func (o *Context) Switch(ctx context.Context, orgID string) error {
	res := o.api.SwitchOrganization(ctx, orgID)
	if !res.OK() {
		return res.Err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	switched := res.Value
	o.settleLocked(&switched)
	return nil
}

// Current returns the current organization, if any.
func (o *Context) Current() (models.OrganizationWithRole, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Current == nil {
		return models.OrganizationWithRole{}, false
	}
	return *o.state.Current, true
}

func (o *Context) settleLocked(current *models.OrganizationWithRole) {
	o.state.Current = current
	switch {
	case current != nil:
		o.state.Phase = Ready
	case len(o.state.Organizations) == 0:
		o.state.Phase = NeedsOnboarding
	default:
		// Memberships exist but none is current yet; EnsureCurrent follows.
		o.state.Phase = Loading
	}
}

func (o *Context) fail(prev Phase, err *envelope.Error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Phase = prev
	o.state.Err = err
	return err
}
