package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/transport/client"
)

// DefaultPageSize is the number of links shown per dashboard page
const DefaultPageSize = 10

// ErrLinkNotDisplayed is returned when toggling a link that is not on the current page
var ErrLinkNotDisplayed = errors.New("link is not on the current page")

// Params are the list parameters a navigation can change at once
type Params struct {
	Page      int
	Order     domain.Order
	Ascending bool
	Search    string
}

// DashboardState is a snapshot of the dashboard for rendering
type DashboardState struct {
	Links      []domain.Link
	Page       int
	TotalPages int
	Total      int
	Search     string
	Order      domain.Order
	Ascending  bool
	Loading    bool
}

// Dashboard holds the paginated, filtered, sorted list of a user's links.
// Every parameter change issues exactly one query whose result replaces the
// displayed page; only the most recently issued query may be displayed.
type Dashboard struct {
	mu       sync.Mutex
	api      LinkAPI
	notify   Notifier
	pageSize int

	page       int
	totalPages int
	total      int
	search     string
	order      domain.Order
	ascending  bool
	loading    bool
	links      []domain.Link

	// seq numbers issued queries; responses for older numbers are discarded
	seq uint64
}

// NewDashboard creates a dashboard on page 1, newest links first
func NewDashboard(api LinkAPI, notify Notifier, pageSize int) *Dashboard {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Dashboard{
		api:        api,
		notify:     notify,
		pageSize:   pageSize,
		page:       1,
		totalPages: 1,
		order:      domain.OrderCreatedAt,
	}
}

// State returns a copy of the current state
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	links := make([]domain.Link, len(d.links))
	copy(links, d.links)
	return DashboardState{
		Links:      links,
		Page:       d.page,
		TotalPages: d.totalPages,
		Total:      d.total,
		Search:     d.search,
		Order:      d.order,
		Ascending:  d.ascending,
		Loading:    d.loading,
	}
}

// Refresh re-queries the current parameters
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.fetch(ctx)
}

// SetPage moves to page (1-based)
func (d *Dashboard) SetPage(ctx context.Context, page int) error {
	d.mu.Lock()
	d.page = max(page, 1)
	d.mu.Unlock()
	return d.fetch(ctx)
}

// SetOrder changes the sort column
func (d *Dashboard) SetOrder(ctx context.Context, order domain.Order) error {
	d.mu.Lock()
	d.order = order
	d.mu.Unlock()
	return d.fetch(ctx)
}

// SetAscending changes the sort direction
func (d *Dashboard) SetAscending(ctx context.Context, ascending bool) error {
	d.mu.Lock()
	d.ascending = ascending
	d.mu.Unlock()
	return d.fetch(ctx)
}

// Search confirms a search term and returns to the first page
func (d *Dashboard) Search(ctx context.Context, term string) error {
	d.mu.Lock()
	d.search = term
	d.page = 1
	d.mu.Unlock()
	return d.fetch(ctx)
}

// Apply sets every list parameter and issues a single query
func (d *Dashboard) Apply(ctx context.Context, p Params) error {
	d.mu.Lock()
	d.page = max(p.Page, 1)
	if p.Order != "" {
		d.order = p.Order
	}
	d.ascending = p.Ascending
	d.search = p.Search
	d.mu.Unlock()
	return d.fetch(ctx)
}

func (d *Dashboard) fetch(ctx context.Context) error {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	query := domain.LinkQuery{
		Limit:     d.pageSize,
		Offset:    (d.page - 1) * d.pageSize,
		Order:     d.order,
		Ascending: d.ascending,
		Search:    d.search,
	}
	d.loading = true
	d.mu.Unlock()

	page, err := d.api.ListLinks(ctx, query)

	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.seq {
		// superseded by a later query
		return nil
	}
	d.loading = false

	if err != nil {
		d.notify.Error("Failed to load your links")
		return fmt.Errorf("failed to load links: %w", err)
	}

	d.links = page.Links
	d.total = page.Pagination.Total
	d.totalPages = totalPages(d.total, d.pageSize)
	return nil
}

// Toggle flips a displayed link's active flag immediately, then asks the API.
// If the API call fails the flag is reverted to its pre-toggle value.
func (d *Dashboard) Toggle(ctx context.Context, id uuid.UUID) error {
	d.mu.Lock()
	idx := d.indexOf(id)
	if idx < 0 {
		d.mu.Unlock()
		return ErrLinkNotDisplayed
	}
	previous := d.links[idx].IsActive
	d.links[idx].IsActive = !previous
	d.mu.Unlock()

	updated, err := d.api.SetLinkActive(ctx, id, !previous)

	d.mu.Lock()
	defer d.mu.Unlock()

	// the page may have been replaced while the request was outstanding
	idx = d.indexOf(id)
	if err != nil {
		if idx >= 0 && d.links[idx].IsActive == !previous {
			d.links[idx].IsActive = previous
		}
		d.notify.Error("Failed to update link status")
		return fmt.Errorf("failed to update link status: %w", err)
	}

	if idx >= 0 && updated != nil {
		d.links[idx].IsActive = updated.IsActive
		d.links[idx].UpdatedAt = updated.UpdatedAt
	}
	d.notify.Success("Link status updated successfully")
	return nil
}

// Create submits the link form; on success the form is cleared and the list
// is refetched from page one
func (d *Dashboard) Create(ctx context.Context, form *LinkForm) (*domain.Link, error) {
	req, err := form.Request()
	if err != nil {
		d.notify.Error(err.Error())
		return nil, err
	}

	link, err := d.api.CreateLink(ctx, req)
	if err != nil {
		d.notify.Error(userMessage(err, "Failed to create short link"))
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	form.Reset()
	d.notify.Success("Short link created")

	// the link exists either way; a refetch failure is reported by fetch
	_ = d.SetPage(ctx, 1)
	return link, nil
}

func (d *Dashboard) indexOf(id uuid.UUID) int {
	for i := range d.links {
		if d.links[i].ID == id {
			return i
		}
	}
	return -1
}

// totalPages is ceil(total/pageSize), never less than 1
func totalPages(total, pageSize int) int {
	pages := (total + pageSize - 1) / pageSize
	return max(pages, 1)
}

// userMessage prefers the server-supplied message of an API error
func userMessage(err error, fallback string) string {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
