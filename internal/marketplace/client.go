package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tyemirov/decora/internal/apiclient"
)

// Client is the typed marketplace surface over the authenticated API
// client. Every method maps to exactly one backend endpoint; retry and
// self-healing behavior lives entirely in the underlying client.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps an authenticated API client.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func decodeInto[T any](document json.RawMessage) (T, error) {
	var value T
	if unmarshalErr := json.Unmarshal(document, &value); unmarshalErr != nil {
		return value, fmt.Errorf("marketplace.decode: %w", unmarshalErr)
	}
	return value, nil
}

// Services lists the public catalogue, optionally filtered by category.
func (client *Client) Services(ctx context.Context, category string) ([]Service, error) {
	endpoint := "/services"
	if strings.TrimSpace(category) != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}
	document, callErr := client.api.Call(ctx, http.MethodGet, endpoint, nil)
	if callErr != nil {
		return nil, callErr
	}
	return decodeInto[[]Service](document)
}

// ServiceByID fetches one catalogue entry.
func (client *Client) ServiceByID(ctx context.Context, serviceID string) (Service, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/services/"+url.PathEscape(serviceID), nil)
	if callErr != nil {
		return Service{}, callErr
	}
	return decodeInto[Service](document)
}

// Me fetches the current user's backend profile. A missing profile is
// auto-provisioned by the underlying client before this returns.
func (client *Client) Me(ctx context.Context) (Profile, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/users/me", nil)
	if callErr != nil {
		return Profile{}, callErr
	}
	return decodeInto[Profile](document)
}

// CreateBooking books a service slot. The request's ClientReference is
// assigned here when the caller left it empty.
func (client *Client) CreateBooking(ctx context.Context, request BookingRequest) (Booking, error) {
	if strings.TrimSpace(request.ClientReference) == "" {
		request.ClientReference = uuid.NewString()
	}
	document, callErr := client.api.Call(ctx, http.MethodPost, "/bookings", request)
	if callErr != nil {
		return Booking{}, callErr
	}
	return decodeInto[Booking](document)
}

// MyBookings lists the current user's bookings.
func (client *Client) MyBookings(ctx context.Context) ([]Booking, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/bookings/me", nil)
	if callErr != nil {
		return nil, callErr
	}
	return decodeInto[[]Booking](document)
}

// CancelBooking deletes one booking owned by the current user.
func (client *Client) CancelBooking(ctx context.Context, bookingID string) error {
	_, callErr := client.api.Call(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(bookingID), nil)
	return callErr
}

// CreatePaymentIntent opens a payment for the given booking.
func (client *Client) CreatePaymentIntent(ctx context.Context, bookingID string, amount float64) (PaymentIntent, error) {
	payload := map[string]any{"bookingId": bookingID, "amount": amount}
	document, callErr := client.api.Call(ctx, http.MethodPost, "/payments/create-intent", payload)
	if callErr != nil {
		return PaymentIntent{}, callErr
	}
	return decodeInto[PaymentIntent](document)
}

// ConfirmPayment confirms a previously created payment intent.
func (client *Client) ConfirmPayment(ctx context.Context, intentID string) (PaymentIntent, error) {
	payload := map[string]any{"intentId": intentID}
	document, callErr := client.api.Call(ctx, http.MethodPost, "/payments/confirm", payload)
	if callErr != nil {
		return PaymentIntent{}, callErr
	}
	return decodeInto[PaymentIntent](document)
}

// DecoratorProjects lists projects assigned to the current decorator.
// Role enforcement happens server-side.
func (client *Client) DecoratorProjects(ctx context.Context) ([]Project, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/decorator/projects", nil)
	if callErr != nil {
		return nil, callErr
	}
	return decodeInto[[]Project](document)
}

// UpdateProjectStatus moves a decorator project to a new status.
func (client *Client) UpdateProjectStatus(ctx context.Context, projectID string, status string) (Project, error) {
	payload := map[string]string{"status": status}
	document, callErr := client.api.Call(ctx, http.MethodPut, "/decorator/project/"+url.PathEscape(projectID)+"/status", payload)
	if callErr != nil {
		return Project{}, callErr
	}
	return decodeInto[Project](document)
}

// AdminListUsers lists all application profiles.
func (client *Client) AdminListUsers(ctx context.Context) ([]Profile, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/admin/users", nil)
	if callErr != nil {
		return nil, callErr
	}
	return decodeInto[[]Profile](document)
}

// AdminUpdateUserRole changes a user's role.
func (client *Client) AdminUpdateUserRole(ctx context.Context, userID string, role string) (Profile, error) {
	payload := map[string]string{"role": role}
	document, callErr := client.api.Call(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/role", payload)
	if callErr != nil {
		return Profile{}, callErr
	}
	return decodeInto[Profile](document)
}

// AdminCreateService adds a catalogue entry.
func (client *Client) AdminCreateService(ctx context.Context, service Service) (Service, error) {
	document, callErr := client.api.Call(ctx, http.MethodPost, "/admin/services", service)
	if callErr != nil {
		return Service{}, callErr
	}
	return decodeInto[Service](document)
}

// AdminDeleteService removes a catalogue entry.
func (client *Client) AdminDeleteService(ctx context.Context, serviceID string) error {
	_, callErr := client.api.Call(ctx, http.MethodDelete, "/admin/services/"+url.PathEscape(serviceID), nil)
	return callErr
}

// AdminAnalytics fetches the dashboard summary.
func (client *Client) AdminAnalytics(ctx context.Context) (Analytics, error) {
	document, callErr := client.api.Call(ctx, http.MethodGet, "/admin/analytics", nil)
	if callErr != nil {
		return Analytics{}, callErr
	}
	return decodeInto[Analytics](document)
}
