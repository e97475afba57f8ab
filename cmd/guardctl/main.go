// guardctl runs administrative operations directly against the SecureGuard
// database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"secureguard/internal/config"
	"secureguard/internal/domain"
	"secureguard/internal/observability/logging"
	impl "secureguard/internal/service/impl"
	"secureguard/internal/store"
	"secureguard/pkg/db"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const usage = `guardctl: SecureGuard administration.

Usage:
  guardctl [--database-url URL] <command> [flags]

Commands:
  purge-locations --device REF --before RFC3339|DURATION
                      delete a device's location reports older than the cutoff
  commands --device REF
                      print a device's command history, newest first
  delete-user (--email EMAIL | --user-id UUID) --yes
                      delete a user with all devices, commands and locations

REF is a server device id or the client-generated deviceId.
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	config.LoadDotEnv()
	slog.SetDefault(logging.NewLogger(logging.Config{
		ServiceName: "guardctl",
		Environment: os.Getenv("ENVIRONMENT"),
		Level:       envOr("LOG_LEVEL", "warn"),
		Output:      os.Stderr,
	}))

	var databaseURL string
	var logSQL bool
	flagSet := pflag.NewFlagSet("guardctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres DSN (default $DATABASE_URL)")
	flagSet.BoolVar(&logSQL, "log-sql", false, "log SQL statements")
	flagSet.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}
	if databaseURL == "" {
		return errors.New("no database configured: set DATABASE_URL or --database-url")
	}

	gdb, err := db.OpenGorm(db.Config{DSN: databaseURL, LogSQL: logSQL})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp(store.New(gdb), out).dispatch(ctx, rest[0], rest[1:])
}

type app struct {
	store *store.Store
	out   io.Writer
	now   func() time.Time
}

func newApp(st *store.Store, out io.Writer) *app {
	return &app{store: st, out: out, now: func() time.Time { return time.Now().UTC() }}
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "purge-locations":
		return a.purgeLocations(ctx, args)
	case "commands":
		return a.listCommands(ctx, args)
	case "delete-user":
		return a.deleteUser(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (a *app) purgeLocations(ctx context.Context, args []string) error {
	var deviceRef, before string
	flagSet := pflag.NewFlagSet("purge-locations", pflag.ContinueOnError)
	flagSet.StringVar(&deviceRef, "device", "", "server device id or client deviceId")
	flagSet.StringVar(&before, "before", "", "cutoff: RFC3339 timestamp or a duration such as 720h")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if deviceRef == "" || before == "" {
		return errors.New("purge-locations requires --device and --before")
	}
	cutoff, err := parseCutoff(before, a.now())
	if err != nil {
		return err
	}

	devices := impl.NewDeviceServiceImpl(a.store)
	dev, err := devices.Resolve(ctx, deviceRef)
	if err != nil {
		return err
	}
	n, err := impl.NewLocationServiceImpl(a.store, devices).PurgeOlderThan(ctx, dev.ID, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d location reports of %s older than %s\n", n, dev.ClientID, cutoff.Format(time.RFC3339))
	return nil
}

// parseCutoff accepts an absolute RFC3339 time or a duration counted back
// from now.
func parseCutoff(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid --before %q: want RFC3339 or a positive duration", raw)
	}
	return now.Add(-d), nil
}

func (a *app) listCommands(ctx context.Context, args []string) error {
	var deviceRef string
	flagSet := pflag.NewFlagSet("commands", pflag.ContinueOnError)
	flagSet.StringVar(&deviceRef, "device", "", "server device id or client deviceId")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if deviceRef == "" {
		return errors.New("commands requires --device")
	}

	dev, err := impl.NewDeviceServiceImpl(a.store).Resolve(ctx, deviceRef)
	if err != nil {
		return err
	}
	cmds, err := impl.NewCommandServiceImpl(a.store, nil, 0).List(ctx, dev.ID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tTIMESTAMP\tPARAMETERS")
	for _, c := range cmds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Status, c.Timestamp.UTC().Format(time.RFC3339), formatParams(c.RedactedParams()))
	}
	return tw.Flush()
}

func formatParams(p domain.CommandParameters) string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (a *app) deleteUser(ctx context.Context, args []string) error {
	var email, userID string
	var yes bool
	flagSet := pflag.NewFlagSet("delete-user", pflag.ContinueOnError)
	flagSet.StringVar(&email, "email", "", "account email")
	flagSet.StringVar(&userID, "user-id", "", "account id")
	flagSet.BoolVar(&yes, "yes", false, "confirm the irreversible deletion")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if (email == "") == (userID == "") {
		return errors.New("delete-user requires exactly one of --email or --user-id")
	}

	var user *domain.User
	var err error
	if email != "" {
		user, err = a.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	} else {
		id, perr := uuid.Parse(strings.TrimSpace(userID))
		if perr != nil {
			return fmt.Errorf("invalid --user-id: %w", perr)
		}
		user, err = a.store.Users().GetByID(ctx, id)
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !yes {
		return fmt.Errorf("refusing to delete %s (%s) without --yes", user.Email, user.ID)
	}

	counts, err := a.store.DeleteUserData(ctx, user.ID)
	if err != nil {
		return err
	}
	slog.Info("user data deleted", "user_id", user.ID, "counts", counts)
	fmt.Fprintf(a.out, "deleted %s: %d devices, %d commands, %d locations\n",
		user.Email, counts["devices"], counts["commands"], counts["locations"])
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
