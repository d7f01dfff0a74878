package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tyemirov/decora/internal/marketplace"
	"github.com/tyemirov/decora/internal/stubapi"
	"go.uber.org/zap"
)

// runClientCommand loads configuration, builds the SDK, runs one
// operation under the configured timeout, and prints the result as JSON.
func runClientCommand(command *cobra.Command, operation func(ctx context.Context, sdk *marketplace.Client) (any, error)) error {
	configuration, configErr := LoadClientConfig()
	if configErr != nil {
		return configErr
	}
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	sdk, sdkErr := buildSDK(configuration, logger)
	if sdkErr != nil {
		return sdkErr
	}

	parentCtx := command.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(parentCtx, configuration.Timeout)
	defer cancel()

	result, operationErr := operation(ctx, sdk)
	if operationErr != nil {
		return operationErr
	}
	if result == nil {
		fmt.Fprintln(command.OutOrStdout(), "ok")
		return nil
	}
	encoded, encodeErr := json.MarshalIndent(result, "", "  ")
	if encodeErr != nil {
		return encodeErr
	}
	fmt.Fprintln(command.OutOrStdout(), string(encoded))
	return nil
}

func newServicesCommand() *cobra.Command {
	var category string
	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "List the public service catalogue",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.Services(ctx, category)
			})
		},
	}
	servicesCmd.Flags().StringVar(&category, "category", "", "Filter by category")
	return servicesCmd
}

func newServiceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "service <id>",
		Short: "Show one catalogue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.ServiceByID(ctx, arguments[0])
			})
		},
	}
}

func newMeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user's backend profile",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.Me(ctx)
			})
		},
	}
}

func newBookingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List the current user's bookings",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.MyBookings(ctx)
			})
		},
	}
}

func newBookCommand() *cobra.Command {
	var scheduledFor string
	var address string
	bookCmd := &cobra.Command{
		Use:   "book <service-id>",
		Short: "Book a service slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			scheduled, parseErr := time.Parse(time.RFC3339, scheduledFor)
			if parseErr != nil {
				return fmt.Errorf("scheduled_for must be RFC3339: %w", parseErr)
			}
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.CreateBooking(ctx, marketplace.BookingRequest{
					ServiceID:    arguments[0],
					ScheduledFor: scheduled,
					Address:      address,
				})
			})
		},
	}
	bookCmd.Flags().StringVar(&scheduledFor, "scheduled_for", "", "Slot time, RFC3339")
	bookCmd.Flags().StringVar(&address, "address", "", "Event address")
	_ = bookCmd.MarkFlagRequired("scheduled_for")
	return bookCmd
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel one of the current user's bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return nil, sdk.CancelBooking(ctx, arguments[0])
			})
		},
	}
}

func newPayCommand() *cobra.Command {
	var amount float64
	payCmd := &cobra.Command{
		Use:   "pay <booking-id>",
		Short: "Create and confirm a payment for a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				intent, intentErr := sdk.CreatePaymentIntent(ctx, arguments[0], amount)
				if intentErr != nil {
					return nil, intentErr
				}
				return sdk.ConfirmPayment(ctx, intent.ID)
			})
		},
	}
	payCmd.Flags().Float64Var(&amount, "amount", 0, "Payment amount")
	_ = payCmd.MarkFlagRequired("amount")
	return payCmd
}

func newProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects assigned to the current decorator",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.DecoratorProjects(ctx)
			})
		},
	}
}

func newProjectStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "project-status <project-id> <status>",
		Short: "Move a decorator project to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.UpdateProjectStatus(ctx, arguments[0], arguments[1])
			})
		},
	}
}

func newAdminCommand() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin-scoped operations (role enforced server-side)",
	}

	adminCmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List all application profiles",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.AdminListUsers(ctx)
			})
		},
	})

	adminCmd.AddCommand(&cobra.Command{
		Use:   "role <user-id> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.AdminUpdateUserRole(ctx, arguments[0], arguments[1])
			})
		},
	})

	adminCmd.AddCommand(&cobra.Command{
		Use:   "analytics",
		Short: "Show the dashboard summary",
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, func(ctx context.Context, sdk *marketplace.Client) (any, error) {
				return sdk.AdminAnalytics(ctx)
			})
		},
	})

	return adminCmd
}

func newMintTokenCommand() *cobra.Command {
	var email string
	var displayName string
	var avatarURL string
	var roles []string
	var ttl time.Duration
	mintCmd := &cobra.Command{
		Use:   "mint-token <subject-id>",
		Short: "Mint a dev access token accepted by the stub backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			token, mintErr := stubapi.MintDevToken(arguments[0], email, displayName, avatarURL, roles, ttl)
			if mintErr != nil {
				return mintErr
			}
			fmt.Fprintln(command.OutOrStdout(), token)
			return nil
		},
	}
	mintCmd.Flags().StringVar(&email, "email", "", "Identity email")
	mintCmd.Flags().StringVar(&displayName, "name", "", "Identity display name")
	mintCmd.Flags().StringVar(&avatarURL, "avatar", "", "Identity avatar URL")
	mintCmd.Flags().StringSliceVar(&roles, "roles", []string{"user"}, "Identity roles")
	mintCmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return mintCmd
}
