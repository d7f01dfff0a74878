package marketplace

import "time"

// Service is one decoration service offered on the marketplace.
type Service struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	Image       string  `json:"image"`
	DecoratorID string  `json:"decoratorId"`
}

// Profile is the backend-side application profile of the current user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// Booking reserves a service slot for a customer.
type Booking struct {
	ID              string    `json:"id"`
	ServiceID       string    `json:"serviceId"`
	CustomerID      string    `json:"customerId"`
	ClientReference string    `json:"clientReference"`
	ScheduledFor    time.Time `json:"scheduledFor"`
	Address         string    `json:"address"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BookingRequest is the payload for creating a booking. ClientReference
// is filled in by the SDK so double submits are detectable server-side.
type BookingRequest struct {
	ServiceID       string    `json:"serviceId"`
	ScheduledFor    time.Time `json:"scheduledFor"`
	Address         string    `json:"address"`
	ClientReference string    `json:"clientReference"`
}

// PaymentIntent is the payment-processor handle for one booking.
type PaymentIntent struct {
	ID           string  `json:"id"`
	BookingID    string  `json:"bookingId"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	ClientSecret string  `json:"clientSecret"`
	Status       string  `json:"status"`
}

// Project is a booking as seen from the decorator dashboard.
type Project struct {
	ID           string    `json:"id"`
	BookingID    string    `json:"bookingId"`
	ServiceID    string    `json:"serviceId"`
	CustomerName string    `json:"customerName"`
	Status       string    `json:"status"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// Analytics is the admin dashboard summary.
type Analytics struct {
	TotalUsers      int     `json:"totalUsers"`
	TotalDecorators int     `json:"totalDecorators"`
	TotalBookings   int     `json:"totalBookings"`
	TotalRevenue    float64 `json:"totalRevenue"`
}
