package stubapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrServiceNotFound indicates no catalogue entry matched the id.
	ErrServiceNotFound = errors.New("market_store.service_not_found")
	// ErrBookingNotFound indicates no booking matched the id.
	ErrBookingNotFound = errors.New("market_store.booking_not_found")
	// ErrBookingNotOwned indicates the booking belongs to another customer.
	ErrBookingNotOwned = errors.New("market_store.booking_not_owned")
	// ErrIntentNotFound indicates no payment intent matched the id.
	ErrIntentNotFound = errors.New("market_store.intent_not_found")
)

// ServiceRecord is one catalogue entry held by the stub backend.
type ServiceRecord struct {
	ID          string
	Title       string
	Description string
	Category    string
	Price       float64
	Location    string
	Image       string
	DecoratorID string
}

// BookingRecord is one booking held by the stub backend.
type BookingRecord struct {
	ID              string
	ServiceID       string
	CustomerID      string
	DecoratorID     string
	ClientReference string
	ScheduledFor    time.Time
	Address         string
	Status          string
	CreatedAt       time.Time
}

// IntentRecord is one payment intent held by the stub backend.
type IntentRecord struct {
	ID           string
	BookingID    string
	Amount       float64
	Currency     string
	ClientSecret string
	Status       string
}

// MarketStore keeps the stub's catalogue, bookings, and payment intents
// in memory. It is a dev fixture, not a product.
type MarketStore struct {
	mutex    sync.Mutex
	services map[string]*ServiceRecord
	bookings map[string]*BookingRecord
	byRef    map[string]string
	intents  map[string]*IntentRecord
}

// NewMarketStore creates a store seeded with a small demo catalogue.
func NewMarketStore() *MarketStore {
	store := &MarketStore{
		services: make(map[string]*ServiceRecord),
		bookings: make(map[string]*BookingRecord),
		byRef:    make(map[string]string),
		intents:  make(map[string]*IntentRecord),
	}
	store.seed()
	return store
}

func (store *MarketStore) seed() {
	seeded := []ServiceRecord{
		{ID: uuid.NewString(), Title: "Wedding Stage Styling", Category: "wedding", Price: 1200, Location: "Downtown", DecoratorID: "decorator-demo"},
		{ID: uuid.NewString(), Title: "Birthday Balloon Arch", Category: "birthday", Price: 250, Location: "Eastside", DecoratorID: "decorator-demo"},
		{ID: uuid.NewString(), Title: "Corporate Gala Lighting", Category: "corporate", Price: 2400, Location: "Convention District", DecoratorID: "decorator-demo"},
	}
	for index := range seeded {
		record := seeded[index]
		store.services[record.ID] = &record
	}
}

// ListServices returns catalogue entries, optionally filtered by category.
func (store *MarketStore) ListServices(ctx context.Context, category string) ([]ServiceRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	records := make([]ServiceRecord, 0, len(store.services))
	for _, record := range store.services {
		if category != "" && record.Category != category {
			continue
		}
		records = append(records, *record)
	}
	sort.Slice(records, func(left, right int) bool {
		return records[left].Title < records[right].Title
	})
	return records, nil
}

// ServiceByID returns one catalogue entry.
func (store *MarketStore) ServiceByID(ctx context.Context, serviceID string) (ServiceRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, exists := store.services[serviceID]
	if !exists {
		return ServiceRecord{}, fmt.Errorf("market_store.service: %w", ErrServiceNotFound)
	}
	return *record, nil
}

// CreateService adds a catalogue entry.
func (store *MarketStore) CreateService(ctx context.Context, record ServiceRecord) (ServiceRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	store.services[record.ID] = &record
	return record, nil
}

// DeleteService removes a catalogue entry.
func (store *MarketStore) DeleteService(ctx context.Context, serviceID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, exists := store.services[serviceID]; !exists {
		return fmt.Errorf("market_store.delete_service: %w", ErrServiceNotFound)
	}
	delete(store.services, serviceID)
	return nil
}

// CreateBooking inserts a booking. A repeated client reference returns
// the already-created booking instead of a duplicate.
func (store *MarketStore) CreateBooking(ctx context.Context, record BookingRecord) (BookingRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if record.ClientReference != "" {
		if existingID, exists := store.byRef[record.ClientReference]; exists {
			return *store.bookings[existingID], nil
		}
	}
	service, exists := store.services[record.ServiceID]
	if !exists {
		return BookingRecord{}, fmt.Errorf("market_store.create_booking: %w", ErrServiceNotFound)
	}

	record.ID = uuid.NewString()
	record.DecoratorID = service.DecoratorID
	record.Status = "pending"
	record.CreatedAt = time.Now().UTC()
	store.bookings[record.ID] = &record
	if record.ClientReference != "" {
		store.byRef[record.ClientReference] = record.ID
	}
	return record, nil
}

// BookingsByCustomer lists bookings owned by the customer.
func (store *MarketStore) BookingsByCustomer(ctx context.Context, customerID string) ([]BookingRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	records := make([]BookingRecord, 0)
	for _, record := range store.bookings {
		if record.CustomerID == customerID {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(left, right int) bool {
		return records[left].CreatedAt.Before(records[right].CreatedAt)
	})
	return records, nil
}

// BookingsByDecorator lists bookings assigned to the decorator.
func (store *MarketStore) BookingsByDecorator(ctx context.Context, decoratorID string) ([]BookingRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	records := make([]BookingRecord, 0)
	for _, record := range store.bookings {
		if record.DecoratorID == decoratorID {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(left, right int) bool {
		return records[left].CreatedAt.Before(records[right].CreatedAt)
	})
	return records, nil
}

// UpdateBookingStatus moves a booking to a new status.
func (store *MarketStore) UpdateBookingStatus(ctx context.Context, bookingID string, status string) (BookingRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, exists := store.bookings[bookingID]
	if !exists {
		return BookingRecord{}, fmt.Errorf("market_store.update_status: %w", ErrBookingNotFound)
	}
	record.Status = status
	return *record, nil
}

// DeleteBooking removes a booking after checking ownership.
func (store *MarketStore) DeleteBooking(ctx context.Context, bookingID string, customerID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, exists := store.bookings[bookingID]
	if !exists {
		return fmt.Errorf("market_store.delete_booking: %w", ErrBookingNotFound)
	}
	if record.CustomerID != customerID {
		return fmt.Errorf("market_store.delete_booking: %w", ErrBookingNotOwned)
	}
	if record.ClientReference != "" {
		delete(store.byRef, record.ClientReference)
	}
	delete(store.bookings, bookingID)
	return nil
}

// CreateIntent opens a payment intent for a booking.
func (store *MarketStore) CreateIntent(ctx context.Context, bookingID string, amount float64) (IntentRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, exists := store.bookings[bookingID]; !exists {
		return IntentRecord{}, fmt.Errorf("market_store.create_intent: %w", ErrBookingNotFound)
	}
	record := IntentRecord{
		ID:           uuid.NewString(),
		BookingID:    bookingID,
		Amount:       amount,
		Currency:     "usd",
		ClientSecret: uuid.NewString(),
		Status:       "requires_confirmation",
	}
	store.intents[record.ID] = &record
	return record, nil
}

// ConfirmIntent marks an intent as succeeded and its booking as paid.
func (store *MarketStore) ConfirmIntent(ctx context.Context, intentID string) (IntentRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, exists := store.intents[intentID]
	if !exists {
		return IntentRecord{}, fmt.Errorf("market_store.confirm_intent: %w", ErrIntentNotFound)
	}
	record.Status = "succeeded"
	if booking, found := store.bookings[record.BookingID]; found {
		booking.Status = "paid"
	}
	return *record, nil
}

// Totals summarizes bookings and confirmed revenue for analytics.
func (store *MarketStore) Totals(ctx context.Context) (bookingCount int, revenue float64) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	for range store.bookings {
		bookingCount++
	}
	for _, intent := range store.intents {
		if intent.Status == "succeeded" {
			revenue += intent.Amount
		}
	}
	return bookingCount, revenue
}
