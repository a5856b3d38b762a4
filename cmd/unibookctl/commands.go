package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joshua-takyi/unibook/internal/container"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/mailer"
	"github.com/joshua-takyi/unibook/internal/mq"
	"github.com/joshua-takyi/unibook/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func createAdminCmd() *cobra.Command {
	var email, name, phone string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long:  "Creates the first admin account. The password is read from the terminal without echo.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer e.close()

			if email == "" {
				fmt.Print("Email: ")
				value, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return err
				}
				email = strings.TrimSpace(value)
			}

			fmt.Print("Password: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(raw))

			users := services.NewUserService(e.repo, helpers.NewHMACTokens(e.cfg.JWTSecret, e.cfg.JWTTTL), e.cfg.BcryptCost)
			user, err := users.RegisterAdmin(ctx, nil, services.SignupInput{
				Name:     name,
				Email:    email,
				Phone:    phone,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created admin %s (%s)\n", user.Email, user.ID.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	return cmd
}

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the service relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.repo.EnsureIndexes(ctx); err != nil {
				return err
			}
			e.logger.Info("indexes ensured", zap.String("database", e.cfg.MongoDBName))
			return nil
		},
	}
}

func notifyWorkerCmd() *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "notify-worker",
		Short: "Consume booking events and send confirmation emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			if e.cfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is required")
			}
			consumer := &mq.Consumer{
				URL:      e.cfg.RabbitMQURL,
				Prefetch: prefetch,
				Handle:   mailer.BookingCreatedHandler(container.NewMailer(e.cfg, e.logger)),
				Logger:   e.logger,
			}
			e.logger.Info("notification worker started", zap.Bool("mailjet", e.cfg.MailjetEnabled()))

			err = consumer.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVar(&prefetch, "prefetch", 10, "Unacknowledged messages per worker")
	return cmd
}
