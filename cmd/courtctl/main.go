// Command courtctl drives a courtdesk client from the terminal: sign in, browse
// dashboard lists, inspect a court's booking grid, quote a checkout and wait for a
// payment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/picklecourt/courtdesk"
	"github.com/picklecourt/courtdesk/metrics/export/prometheus"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/picklecourt/courtdesk/payment"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const usage = `usage: courtctl [flags] <command> [args]

commands:
  login <username> <password>     sign in and persist the session
  logout                          clear the session
  whoami                          print the signed-in user and role
  menu                            print the navigation visible to the current role
  check <path>                    print the route guard decision for path
  orders [page] [size]            list dashboard orders
  courts [search] [page] [size]   list courts
  slots <courtId> <yyyy-mm-dd>    print a court's booking grid
  quote <courtId> <yyyy-mm-dd> <method> <start>...
                                  select slots by start time and price them
  pay <orderId> <amount>          wait for an order to be paid
  cancel <orderId>                cancel an unpaid order
  provinces                       list provinces from the location service
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("courtctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		envFile     = fs.String("env", "", "env file to load before COURTDESK_* variables")
		demoRedis   = fs.Bool("demo-redis", false, "keep state in an in-process miniredis")
		jsonToasts  = fs.Bool("json", false, "print notifications as JSON lines")
		showMetrics = fs.Bool("metrics", false, "print metrics in Prometheus format on exit")
		verbose     = fs.Bool("v", false, "log at debug level")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := courtdesk.LoadConfig(files...)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	toasts := notify.NewWriterSink(stderr)
	if *jsonToasts {
		toasts = notify.NewJSONWriterSink(stderr)
	}
	b := courtdesk.New().
		WithConfig(cfg).
		WithNotifier(toasts).
		OnUnauthorized(func(_ context.Context, loginURL string) {
			fmt.Fprintf(stderr, "session expired, sign in again (%s)\n", loginURL)
		})

	if *demoRedis {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(stderr, "start miniredis: %v\n", err)
			return 1
		}
		defer mr.Close()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		cfg.Storage.Backend = courtdesk.BackendRedis
		cfg.Storage.RedisAddr = mr.Addr()
		if cfg.Storage.Key == "" {
			cfg.Storage.Key = "courtctl-demo-key-0000"
		}
		b = b.WithConfig(cfg).WithRedis(client)
	}

	desk, err := b.Build(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "build: %v\n", err)
		return 1
	}
	defer func() {
		if *showMetrics {
			fmt.Fprint(stdout, prometheus.NewPrometheusExporter(desk).Render())
		}
		_ = desk.Close()
	}()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if err := dispatch(ctx, desk, cmd, rest, stdout); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		desk.Logger().Debug("command failed", zap.String("command", cmd), zap.Error(err))
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, d *courtdesk.Desk, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		sess, err := d.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "signed in as %s (%s)\n", sess.User.FullName(), d.EffectiveRole())
		return nil

	case "logout":
		return d.Logout(ctx)

	case "whoami":
		user, err := d.User()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", user.ID, user.FullName(), d.EffectiveRole())
		if exp, ok := d.SessionStore().ExpiresAt(); ok {
			fmt.Fprintf(out, "expires\t%s\n", exp.Format(time.RFC3339))
		}
		return nil

	case "menu":
		for _, item := range d.Menu() {
			fmt.Fprintf(out, "%s\t%s\n", item.Key, item.Label)
			for _, child := range item.Children {
				fmt.Fprintf(out, "  %s\t%s\n", child.Key, child.Label)
			}
		}
		return nil

	case "check":
		if len(args) != 1 {
			return errUsage
		}
		decision := d.Check(args[0])
		fmt.Fprintf(out, "%s\t%s\n", decision, d.Guard().Target(decision, args[0]))
		return nil

	case "orders":
		return listOrders(ctx, d, args, out)

	case "courts":
		return listCourts(ctx, d, args, out)

	case "slots":
		if len(args) != 2 {
			return errUsage
		}
		g, err := loadGrid(ctx, d, args[0], args[1])
		if err != nil {
			return err
		}
		printGrid(out, g)
		return nil

	case "quote":
		if len(args) < 4 {
			return errUsage
		}
		return quote(ctx, d, args, out)

	case "pay":
		if len(args) != 2 {
			return errUsage
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		res, err := d.WatchPayment(ctx, args[0], amount, func(left time.Duration) {
			fmt.Fprintf(out, "\rwaiting for payment %s ", left.Truncate(time.Second))
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", res.OrderID, res.Outcome, res.Via)
		if res.Outcome != payment.Confirmed {
			return fmt.Errorf("order %s was not paid", res.OrderID)
		}
		return nil

	case "cancel":
		if len(args) != 1 {
			return errUsage
		}
		return d.CancelOrder(ctx, args[0])

	case "provinces":
		loc, err := d.Location()
		if err != nil {
			return err
		}
		places, err := loc.Provinces(ctx)
		if err != nil {
			return err
		}
		for _, p := range places {
			fmt.Fprintf(out, "%s\t%s\n", p.ID, p.Name)
		}
		return nil
	}
	return errUsage
}
