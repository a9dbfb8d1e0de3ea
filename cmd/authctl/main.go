// authctl es la consola de operador: migraciones, admin inicial, aprobaciones y dispositivos.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"brgykonek/internal/config"
	"brgykonek/internal/db"
	"brgykonek/internal/repository"
	"brgykonek/internal/service"
)

const usage = `usage: authctl <command> [args]

commands:
  migrate                   apply pending schema migrations
  seed-admin                create the admin from ADMIN_EMAIL / ADMIN_PASSWORD
  approve <email>           approve a resident account
  devices <email>           list active devices of an account
  revoke-devices <email>    revoke every device of an account
  purge-devices             delete expired device records
`

type app struct {
	logger  *zap.Logger
	cfg     *config.Config
	users   *service.UserService
	devices *service.DeviceService
	migrate func() error
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	a := &app{
		logger:  logger,
		cfg:     cfg,
		users:   service.NewUserService(logger, repository.NewPgUserRepository(pool)),
		devices: service.NewDeviceService(logger, repository.NewPgDeviceRepository(pool)),
		migrate: func() error { return db.Migrate(pool, logger) },
		out:     os.Stdout,
	}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "migrate":
		return a.migrate()
	case "seed-admin":
		return a.seedAdmin(ctx)
	case "approve":
		email, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		return a.approve(ctx, email)
	case "devices":
		email, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		return a.listDevices(ctx, email)
	case "revoke-devices":
		email, err := oneArg(cmd, args)
		if err != nil {
			return err
		}
		return a.revokeDevices(ctx, email)
	case "purge-devices":
		n, err := a.devices.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "purged %d expired devices\n", n)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func (a *app) seedAdmin(ctx context.Context) error {
	if a.cfg.AdminEmail == "" || a.cfg.AdminPassword == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	admin, created, err := a.users.EnsureAdmin(ctx, a.cfg.AdminEmail, a.cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(a.out, "admin created: %s (%s)\n", admin.Email, admin.ID)
		return nil
	}
	fmt.Fprintf(a.out, "admin already exists: %s\n", admin.Email)
	return nil
}

func (a *app) approve(ctx context.Context, email string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsApproved {
		fmt.Fprintf(a.out, "%s is already approved\n", user.Email)
		return nil
	}
	if _, err := a.users.Approve(ctx, user.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "approved %s\n", user.Email)
	return nil
}

func (a *app) listDevices(ctx context.Context, email string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	devices, err := a.devices.List(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(a.out, "no active devices")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE ID\tNAME\tTRUSTED\tLAST USED\tEXPIRES")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			d.DeviceID,
			d.DeviceName,
			d.Trusted,
			d.LastUsedAt.Format(time.RFC3339),
			d.ExpiresAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func (a *app) revokeDevices(ctx context.Context, email string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := a.devices.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked all devices of %s\n", user.Email)
	return nil
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%s expects exactly one email argument", cmd)
	}
	return args[0], nil
}
