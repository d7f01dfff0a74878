package stubapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/decora/internal/identity"
	"github.com/tyemirov/decora/internal/marketplace"
	"go.uber.org/zap"
)

// MountRoutes registers the full backend contract on the router. The
// stub reads bearer identity from the access token's unverified claims:
// it is a dev fixture, not a product.
func MountRoutes(router gin.IRouter, profiles ProfileStore, market *MarketStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.GET("/services", func(contextGin *gin.Context) {
		records, listErr := market.ListServices(contextGin, contextGin.Query("category"))
		if listErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, toServices(records))
	})

	router.GET("/services/:id", func(contextGin *gin.Context) {
		record, findErr := market.ServiceByID(contextGin, contextGin.Param("id"))
		if findErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "service not found"})
			return
		}
		contextGin.JSON(http.StatusOK, toService(record))
	})

	router.POST("/register", func(contextGin *gin.Context) {
		claims, authenticated := bearerClaims(contextGin)
		if !authenticated {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_bearer"})
			return
		}
		var inbound struct {
			Name  string `json:"name"`
			Role  string `json:"role"`
			Image string `json:"image"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || strings.TrimSpace(inbound.Name) == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		role := inbound.Role
		if role == "" {
			role = "user"
		}
		record, createErr := profiles.Create(contextGin, claims.UserID, inbound.Name, role, inbound.Image)
		if createErr != nil {
			if errors.Is(createErr, ErrProfileAlreadyRegistered) {
				contextGin.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"errorCode": "ALREADY_REGISTERED",
					"message":   "already registered",
				})
				return
			}
			logger.Error("profile create failed",
				zap.String("code", "stubapi.register_failed"),
				zap.Error(createErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusCreated, toProfile(record))
	})

	router.GET("/users/me", func(contextGin *gin.Context) {
		record, ok := requireProfile(contextGin, profiles)
		if !ok {
			return
		}
		contextGin.JSON(http.StatusOK, toProfile(record))
	})

	router.POST("/bookings", func(contextGin *gin.Context) {
		record, ok := requireProfile(contextGin, profiles)
		if !ok {
			return
		}
		var inbound struct {
			ServiceID       string    `json:"serviceId"`
			ScheduledFor    time.Time `json:"scheduledFor"`
			Address         string    `json:"address"`
			ClientReference string    `json:"clientReference"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.ServiceID == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		booking, createErr := market.CreateBooking(contextGin, BookingRecord{
			ServiceID:       inbound.ServiceID,
			CustomerID:      record.ID,
			ClientReference: inbound.ClientReference,
			ScheduledFor:    inbound.ScheduledFor,
			Address:         inbound.Address,
		})
		if createErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "service not found"})
			return
		}
		contextGin.JSON(http.StatusCreated, toBooking(booking))
	})

	router.GET("/bookings/me", func(contextGin *gin.Context) {
		record, ok := requireProfile(contextGin, profiles)
		if !ok {
			return
		}
		bookings, listErr := market.BookingsByCustomer(contextGin, record.ID)
		if listErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, toBookings(bookings))
	})

	router.DELETE("/bookings/:id", func(contextGin *gin.Context) {
		record, ok := requireProfile(contextGin, profiles)
		if !ok {
			return
		}
		deleteErr := market.DeleteBooking(contextGin, contextGin.Param("id"), record.ID)
		if deleteErr != nil {
			if errors.Is(deleteErr, ErrBookingNotOwned) {
				contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "booking belongs to another customer"})
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "booking not found"})
			return
		}
		contextGin.Status(http.StatusNoContent)
	})

	router.POST("/payments/create-intent", func(contextGin *gin.Context) {
		if _, ok := requireProfile(contextGin, profiles); !ok {
			return
		}
		var inbound struct {
			BookingID string  `json:"bookingId"`
			Amount    float64 `json:"amount"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.BookingID == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		intent, createErr := market.CreateIntent(contextGin, inbound.BookingID, inbound.Amount)
		if createErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "booking not found"})
			return
		}
		contextGin.JSON(http.StatusCreated, toIntent(intent))
	})

	router.POST("/payments/confirm", func(contextGin *gin.Context) {
		if _, ok := requireProfile(contextGin, profiles); !ok {
			return
		}
		var inbound struct {
			IntentID string `json:"intentId"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.IntentID == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		intent, confirmErr := market.ConfirmIntent(contextGin, inbound.IntentID)
		if confirmErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "payment intent not found"})
			return
		}
		contextGin.JSON(http.StatusOK, toIntent(intent))
	})

	router.GET("/decorator/projects", func(contextGin *gin.Context) {
		record, ok := requireRole(contextGin, profiles, "decorator")
		if !ok {
			return
		}
		bookings, listErr := market.BookingsByDecorator(contextGin, record.ID)
		if listErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, toProjects(bookings))
	})

	router.PUT("/decorator/project/:id/status", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "decorator"); !ok {
			return
		}
		var inbound struct {
			Status string `json:"status"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.Status == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		booking, updateErr := market.UpdateBookingStatus(contextGin, contextGin.Param("id"), inbound.Status)
		if updateErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "booking not found"})
			return
		}
		contextGin.JSON(http.StatusOK, toProject(booking))
	})

	admin := router.Group("/admin")

	admin.GET("/users", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "admin"); !ok {
			return
		}
		records, listErr := profiles.List(contextGin)
		if listErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, toProfiles(records))
	})

	admin.PUT("/users/:id/role", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "admin"); !ok {
			return
		}
		var inbound struct {
			Role string `json:"role"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.Role == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, updateErr := profiles.UpdateRole(contextGin, contextGin.Param("id"), inbound.Role)
		if updateErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		contextGin.JSON(http.StatusOK, toProfile(record))
	})

	admin.POST("/services", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "admin"); !ok {
			return
		}
		var inbound marketplace.Service
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || strings.TrimSpace(inbound.Title) == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		record, createErr := market.CreateService(contextGin, ServiceRecord{
			ID:          inbound.ID,
			Title:       inbound.Title,
			Description: inbound.Description,
			Category:    inbound.Category,
			Price:       inbound.Price,
			Location:    inbound.Location,
			Image:       inbound.Image,
			DecoratorID: inbound.DecoratorID,
		})
		if createErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusCreated, toService(record))
	})

	admin.DELETE("/services/:id", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "admin"); !ok {
			return
		}
		if deleteErr := market.DeleteService(contextGin, contextGin.Param("id")); deleteErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "service not found"})
			return
		}
		contextGin.Status(http.StatusNoContent)
	})

	admin.GET("/analytics", func(contextGin *gin.Context) {
		if _, ok := requireRole(contextGin, profiles, "admin"); !ok {
			return
		}
		records, listErr := profiles.List(contextGin)
		if listErr != nil {
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		decorators := 0
		for _, record := range records {
			if record.Role == "decorator" {
				decorators++
			}
		}
		bookingCount, revenue := market.Totals(contextGin)
		contextGin.JSON(http.StatusOK, marketplace.Analytics{
			TotalUsers:      len(records),
			TotalDecorators: decorators,
			TotalBookings:   bookingCount,
			TotalRevenue:    revenue,
		})
	})
}

// bearerClaims reads the Authorization header and returns the access
// token's unverified claim set.
func bearerClaims(contextGin *gin.Context) (*identity.SessionClaims, bool) {
	header := contextGin.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	tokenText := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenText == "" {
		return nil, false
	}
	claims := &identity.SessionClaims{}
	parser := jwt.NewParser()
	if _, _, parseErr := parser.ParseUnverified(tokenText, claims); parseErr != nil {
		return nil, false
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, false
	}
	return claims, true
}

// requireProfile resolves the caller's profile, writing the contract's
// PROFILE_NOT_FOUND envelope when registration has not happened yet.
func requireProfile(contextGin *gin.Context, profiles ProfileStore) (ProfileRecord, bool) {
	claims, authenticated := bearerClaims(contextGin)
	if !authenticated {
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_bearer"})
		return ProfileRecord{}, false
	}
	record, findErr := profiles.BySubject(contextGin, claims.UserID)
	if findErr != nil {
		if errors.Is(findErr, ErrProfileNotFound) {
			contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"errorCode": "PROFILE_NOT_FOUND",
				"message":   "User not found. Please complete profile registration.",
			})
			return ProfileRecord{}, false
		}
		contextGin.AbortWithStatus(http.StatusInternalServerError)
		return ProfileRecord{}, false
	}
	return record, true
}

// requireRole resolves the caller's profile and enforces a role.
func requireRole(contextGin *gin.Context, profiles ProfileStore, role string) (ProfileRecord, bool) {
	record, ok := requireProfile(contextGin, profiles)
	if !ok {
		return ProfileRecord{}, false
	}
	if record.Role != role {
		contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient role"})
		return ProfileRecord{}, false
	}
	return record, true
}

func toService(record ServiceRecord) marketplace.Service {
	return marketplace.Service{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		Category:    record.Category,
		Price:       record.Price,
		Location:    record.Location,
		Image:       record.Image,
		DecoratorID: record.DecoratorID,
	}
}

func toServices(records []ServiceRecord) []marketplace.Service {
	services := make([]marketplace.Service, 0, len(records))
	for _, record := range records {
		services = append(services, toService(record))
	}
	return services
}

func toProfile(record ProfileRecord) marketplace.Profile {
	return marketplace.Profile{
		ID:        record.ID,
		Name:      record.Name,
		Role:      record.Role,
		Image:     record.Image,
		CreatedAt: record.CreatedAt,
	}
}

func toProfiles(records []ProfileRecord) []marketplace.Profile {
	profilesOut := make([]marketplace.Profile, 0, len(records))
	for _, record := range records {
		profilesOut = append(profilesOut, toProfile(record))
	}
	return profilesOut
}

func toBooking(record BookingRecord) marketplace.Booking {
	return marketplace.Booking{
		ID:              record.ID,
		ServiceID:       record.ServiceID,
		CustomerID:      record.CustomerID,
		ClientReference: record.ClientReference,
		ScheduledFor:    record.ScheduledFor,
		Address:         record.Address,
		Status:          record.Status,
		CreatedAt:       record.CreatedAt,
	}
}

func toBookings(records []BookingRecord) []marketplace.Booking {
	bookings := make([]marketplace.Booking, 0, len(records))
	for _, record := range records {
		bookings = append(bookings, toBooking(record))
	}
	return bookings
}

func toIntent(record IntentRecord) marketplace.PaymentIntent {
	return marketplace.PaymentIntent{
		ID:           record.ID,
		BookingID:    record.BookingID,
		Amount:       record.Amount,
		Currency:     record.Currency,
		ClientSecret: record.ClientSecret,
		Status:       record.Status,
	}
}

func toProject(record BookingRecord) marketplace.Project {
	return marketplace.Project{
		ID:           record.ID,
		BookingID:    record.ID,
		ServiceID:    record.ServiceID,
		CustomerName: record.CustomerID,
		Status:       record.Status,
		ScheduledFor: record.ScheduledFor,
	}
}

func toProjects(records []BookingRecord) []marketplace.Project {
	projects := make([]marketplace.Project, 0, len(records))
	for _, record := range records {
		projects = append(projects, toProject(record))
	}
	return projects
}
