package marketplace_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyemirov/decora/internal/apiclient"
	"github.com/tyemirov/decora/internal/identity"
	"github.com/tyemirov/decora/internal/marketplace"
	"github.com/tyemirov/decora/internal/stubapi"
	"go.uber.org/zap/zaptest"
)

type testBackend struct {
	server   *httptest.Server
	profiles *stubapi.MemoryProfileStore
	market   *stubapi.MarketStore
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	profiles := stubapi.NewMemoryProfileStore()
	market := stubapi.NewMarketStore()
	stubapi.MountRoutes(router, profiles, market, zaptest.NewLogger(t))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testBackend{server: server, profiles: profiles, market: market}
}

func (backend *testBackend) sdkFor(t *testing.T, provider identity.Provider) *marketplace.Client {
	t.Helper()
	api, newErr := apiclient.New(apiclient.Config{
		BaseURL:     backend.server.URL,
		Identity:    provider,
		Logger:      zaptest.NewLogger(t),
		SettleDelay: 5 * time.Millisecond,
	})
	require.NoError(t, newErr)
	return marketplace.NewClient(api)
}

func providerFor(t *testing.T, subjectID string, displayName string) identity.Provider {
	t.Helper()
	token, mintErr := stubapi.MintDevToken(subjectID, subjectID+"@example.com", displayName, "", []string{"user"}, time.Hour)
	require.NoError(t, mintErr)
	provider, buildErr := identity.NewStaticFromAccessToken(token)
	require.NoError(t, buildErr)
	return provider
}

func TestServicesArePublic(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, identity.Anonymous())

	services, listErr := sdk.Services(context.Background(), "")
	require.NoError(t, listErr)
	assert.NotEmpty(t, services, "the stub catalogue is seeded")

	filtered, filterErr := sdk.Services(context.Background(), "wedding")
	require.NoError(t, filterErr)
	for _, service := range filtered {
		assert.Equal(t, "wedding", service.Category)
	}

	single, findErr := sdk.ServiceByID(context.Background(), services[0].ID)
	require.NoError(t, findErr)
	assert.Equal(t, services[0].Title, single.Title)
}

func TestMeAutoProvisionsProfile(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, providerFor(t, "cust-1", "Casey Customer"))

	profile, meErr := sdk.Me(context.Background())
	require.NoError(t, meErr)
	assert.Equal(t, "Casey Customer", profile.Name)
	assert.Equal(t, "user", profile.Role)

	stored, storeErr := backend.profiles.BySubject(context.Background(), "cust-1")
	require.NoError(t, storeErr)
	assert.Equal(t, profile.ID, stored.ID)
}

func TestConcurrentFirstCallsCreateOneProfile(t *testing.T) {
	backend := newTestBackend(t)
	provider := providerFor(t, "cust-race", "Robin Racer")

	var waitGroup sync.WaitGroup
	results := make([]marketplace.Profile, 2)
	failures := make([]error, 2)
	for index := 0; index < 2; index++ {
		waitGroup.Add(1)
		go func(slot int) {
			defer waitGroup.Done()
			sdk := backend.sdkFor(t, provider)
			results[slot], failures[slot] = sdk.Me(context.Background())
		}(index)
	}
	waitGroup.Wait()

	require.NoError(t, failures[0])
	require.NoError(t, failures[1])
	assert.Equal(t, results[0].ID, results[1].ID, "both calls must resolve to the same profile")
	assert.Equal(t, results[0].Role, results[1].Role)

	records, listErr := backend.profiles.List(context.Background())
	require.NoError(t, listErr)
	assert.Len(t, records, 1, "exactly one profile may exist per subject")
}

func TestBookingLifecycle(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, providerFor(t, "cust-2", "Bella Booker"))

	services, listErr := sdk.Services(context.Background(), "")
	require.NoError(t, listErr)
	require.NotEmpty(t, services)

	booking, bookErr := sdk.CreateBooking(context.Background(), marketplace.BookingRequest{
		ServiceID:    services[0].ID,
		ScheduledFor: time.Now().UTC().Add(48 * time.Hour),
		Address:      "12 Garden Lane",
	})
	require.NoError(t, bookErr)
	assert.Equal(t, "pending", booking.Status)
	assert.NotEmpty(t, booking.ClientReference, "the SDK assigns a client reference")

	mine, mineErr := sdk.MyBookings(context.Background())
	require.NoError(t, mineErr)
	require.Len(t, mine, 1)
	assert.Equal(t, booking.ID, mine[0].ID)

	require.NoError(t, sdk.CancelBooking(context.Background(), booking.ID))

	mine, mineErr = sdk.MyBookings(context.Background())
	require.NoError(t, mineErr)
	assert.Empty(t, mine)
}

func TestDuplicateClientReferenceReturnsSameBooking(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, providerFor(t, "cust-3", "Dana Doubleclick"))

	services, listErr := sdk.Services(context.Background(), "")
	require.NoError(t, listErr)

	request := marketplace.BookingRequest{
		ServiceID:       services[0].ID,
		ScheduledFor:    time.Now().UTC().Add(24 * time.Hour),
		Address:         "7 Terrace Walk",
		ClientReference: "fixed-reference",
	}
	first, firstErr := sdk.CreateBooking(context.Background(), request)
	require.NoError(t, firstErr)
	second, secondErr := sdk.CreateBooking(context.Background(), request)
	require.NoError(t, secondErr)
	assert.Equal(t, first.ID, second.ID, "a resubmitted reference must not create a second booking")
}

func TestPaymentFlow(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, providerFor(t, "cust-4", "Pat Payer"))

	services, listErr := sdk.Services(context.Background(), "")
	require.NoError(t, listErr)

	booking, bookErr := sdk.CreateBooking(context.Background(), marketplace.BookingRequest{
		ServiceID:    services[0].ID,
		ScheduledFor: time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, bookErr)

	intent, intentErr := sdk.CreatePaymentIntent(context.Background(), booking.ID, services[0].Price)
	require.NoError(t, intentErr)
	assert.Equal(t, "requires_confirmation", intent.Status)
	assert.NotEmpty(t, intent.ClientSecret)

	confirmed, confirmErr := sdk.ConfirmPayment(context.Background(), intent.ID)
	require.NoError(t, confirmErr)
	assert.Equal(t, "succeeded", confirmed.Status)

	mine, mineErr := sdk.MyBookings(context.Background())
	require.NoError(t, mineErr)
	require.Len(t, mine, 1)
	assert.Equal(t, "paid", mine[0].Status)
}

func TestDecoratorDashboard(t *testing.T) {
	backend := newTestBackend(t)

	decorator, createErr := backend.profiles.Create(context.Background(), "deco-1", "Dee Decorator", "decorator", "")
	require.NoError(t, createErr)

	service, serviceErr := backend.market.CreateService(context.Background(), stubapi.ServiceRecord{
		Title:       "Rooftop Garland Setup",
		Category:    "wedding",
		Price:       800,
		DecoratorID: decorator.ID,
	})
	require.NoError(t, serviceErr)

	customerSDK := backend.sdkFor(t, providerFor(t, "cust-5", "Cameron Client"))
	booking, bookErr := customerSDK.CreateBooking(context.Background(), marketplace.BookingRequest{
		ServiceID:    service.ID,
		ScheduledFor: time.Now().UTC().Add(72 * time.Hour),
	})
	require.NoError(t, bookErr)

	decoratorSDK := backend.sdkFor(t, providerFor(t, "deco-1", "Dee Decorator"))
	projects, listErr := decoratorSDK.DecoratorProjects(context.Background())
	require.NoError(t, listErr)
	require.Len(t, projects, 1)
	assert.Equal(t, booking.ID, projects[0].ID)

	updated, updateErr := decoratorSDK.UpdateProjectStatus(context.Background(), booking.ID, "in_progress")
	require.NoError(t, updateErr)
	assert.Equal(t, "in_progress", updated.Status)
}

func TestRoleEnforcement(t *testing.T) {
	backend := newTestBackend(t)
	sdk := backend.sdkFor(t, providerFor(t, "cust-6", "Uma User"))

	_, meErr := sdk.Me(context.Background())
	require.NoError(t, meErr)

	_, projectsErr := sdk.DecoratorProjects(context.Background())
	assert.ErrorIs(t, projectsErr, apiclient.ErrBadResponse, "a plain user must be rejected by decorator routes")

	_, adminErr := sdk.AdminListUsers(context.Background())
	assert.ErrorIs(t, adminErr, apiclient.ErrBadResponse, "a plain user must be rejected by admin routes")
}

func TestAdminSurface(t *testing.T) {
	backend := newTestBackend(t)

	_, createErr := backend.profiles.Create(context.Background(), "admin-1", "Ada Admin", "admin", "")
	require.NoError(t, createErr)
	adminSDK := backend.sdkFor(t, providerFor(t, "admin-1", "Ada Admin"))

	customerSDK := backend.sdkFor(t, providerFor(t, "cust-7", "Noor Newbie"))
	customerProfile, meErr := customerSDK.Me(context.Background())
	require.NoError(t, meErr)

	users, usersErr := adminSDK.AdminListUsers(context.Background())
	require.NoError(t, usersErr)
	assert.Len(t, users, 2)

	promoted, promoteErr := adminSDK.AdminUpdateUserRole(context.Background(), customerProfile.ID, "decorator")
	require.NoError(t, promoteErr)
	assert.Equal(t, "decorator", promoted.Role)

	created, createServiceErr := adminSDK.AdminCreateService(context.Background(), marketplace.Service{
		Title:    "Anniversary Table Styling",
		Category: "anniversary",
		Price:    300,
	})
	require.NoError(t, createServiceErr)
	require.NotEmpty(t, created.ID)

	analytics, analyticsErr := adminSDK.AdminAnalytics(context.Background())
	require.NoError(t, analyticsErr)
	assert.Equal(t, 2, analytics.TotalUsers)
	assert.Equal(t, 1, analytics.TotalDecorators)

	require.NoError(t, adminSDK.AdminDeleteService(context.Background(), created.ID))
	_, findErr := adminSDK.ServiceByID(context.Background(), created.ID)
	assert.Error(t, findErr)
}
