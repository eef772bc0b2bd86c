// Package main implements kitchen, the device-side recipebox client.
//
// kitchen keeps recipes on the device while signed out and switches to the
// recipebox API once a session token is recorded. Generation always goes
// through the API's preview endpoints; quota and storage are decided on the
// device by the same flow the server runs.
//
// Usage:
//
//	kitchen login <token> <userID>
//	kitchen logout
//	kitchen whoami
//	kitchen generate-recipe --situation="weeknight dinner" --family=4
//	kitchen generate-meal-plan --situation="busy week" --family=2 --days=5
//	kitchen list
//	kitchen meal-plans
//	kitchen usage
//	kitchen subscribe <free|pro|family>
//
// Configuration comes from the environment (LOCAL_BACKEND, LOCAL_DIR,
// LOCAL_REDIS_ADDR, API_BASE_URL, LOG_LEVEL); see internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"recipebox/internal/apiclient"
	"recipebox/internal/config"
	"recipebox/internal/entitlement"
	"recipebox/internal/external"
	"recipebox/internal/generation"
	"recipebox/internal/local"
	"recipebox/internal/persistence"
	"recipebox/internal/types"
)

const userAgent = "recipebox-kitchen/1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cfg, err := config.LoadDeviceConfig()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	store, closeStore, err := openLocalStore(ctx, cfg.Local)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	client := apiclient.New(
		external.NewBaseClient(&http.Client{Timeout: 90 * time.Second}, "recipebox-api", external.DefaultBreakerSettings(), userAgent),
		cfg.Local.APIBaseURL,
		logger,
	)
	k := &kitchen{
		router: persistence.NewRouter(client, store, persistence.NewStoredIdentity(store), logger),
		flow:   generation.NewFlow(client, nil, logger),
		out:    stdout,
	}

	if err := k.execute(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			usage(stderr)
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
	return 0
}

// openLocalStore opens the configured device store. The returned func
// releases it.
func openLocalStore(ctx context.Context, cfg config.LocalConfig) (local.Store, func(), error) {
	switch cfg.Backend {
	case config.LocalBackendRedis:
		store, client, err := local.NewRedisStore(ctx, local.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword.Unmask(),
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.LocalBackendMemory:
		return local.NewMemoryStore(), func() {}, nil
	default:
		store, err := local.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

var errUsage = errors.New("usage")

// kitchen runs one command against the persistence router.
type kitchen struct {
	router *persistence.Router
	flow   *generation.Flow
	out    io.Writer
}

func (k *kitchen) execute(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return k.login(ctx, rest)
	case "logout":
		if err := k.router.SignOut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(k.out, "signed out")
		return nil
	case "whoami":
		return k.whoami(ctx)
	case "generate-recipe":
		return k.generateRecipe(ctx, rest)
	case "generate-meal-plan":
		return k.generateMealPlan(ctx, rest)
	case "list":
		return k.listRecipes(ctx)
	case "meal-plans":
		return k.listMealPlans(ctx)
	case "usage":
		return k.usage(ctx)
	case "subscribe":
		return k.subscribe(ctx, rest)
	default:
		return errUsage
	}
}

func (k *kitchen) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id := persistence.Identity{Token: types.SecretString(args[0]), UserID: args[1]}
	if err := k.router.SignIn(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(k.out, "signed in as %s; local content cleared\n", id.UserID)
	return nil
}

func (k *kitchen) whoami(ctx context.Context) error {
	id, err := k.router.Identity(ctx)
	if err != nil {
		return err
	}
	if !id.Authenticated() {
		fmt.Fprintln(k.out, "not signed in (content stays on this device)")
		return nil
	}
	fmt.Fprintf(k.out, "signed in as %s\n", id.UserID)
	return nil
}

// generateFlags parses the flags shared by both generate commands.
func generateFlags(name string, args []string, withDays bool) (types.GenerateRequest, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	situation := fs.String("situation", "", "what the meal is for")
	family := fs.Int("family", 2, "number of people to cook for")
	constraints := fs.String("constraints", "", "comma-separated constraints, e.g. \"no nuts,under 30 minutes\"")
	days := 0
	if withDays {
		fs.IntVar(&days, "days", 7, "days to plan")
	}
	if err := fs.Parse(args); err != nil {
		return types.GenerateRequest{}, errUsage
	}

	req := types.GenerateRequest{
		Situation:  strings.TrimSpace(*situation),
		FamilySize: *family,
		Days:       days,
	}
	if req.Situation == "" {
		return req, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "--situation is required", nil,
			map[string]any{"field": "situation"})
	}
	for _, c := range strings.Split(*constraints, ",") {
		if c = strings.TrimSpace(c); c != "" {
			req.Constraints = append(req.Constraints, c)
		}
	}
	return req, nil
}

func (k *kitchen) generateRecipe(ctx context.Context, args []string) error {
	req, err := generateFlags("generate-recipe", args, false)
	if err != nil {
		return err
	}
	res, err := k.flow.Recipe(ctx, k.router, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(k.out, "saved %s %q (%d recipes left this month)\n", res.Recipe.ID, res.Recipe.Title, res.Remaining)
	return nil
}

func (k *kitchen) generateMealPlan(ctx context.Context, args []string) error {
	req, err := generateFlags("generate-meal-plan", args, true)
	if err != nil {
		return err
	}
	res, err := k.flow.MealPlan(ctx, k.router, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(k.out, "saved %s %q (%d meal plans left this month)\n", res.MealPlan.ID, res.MealPlan.Title, res.Remaining)
	return nil
}

func (k *kitchen) listRecipes(ctx context.Context) error {
	recipes, err := k.router.ListRecipes(ctx)
	if err != nil {
		return err
	}
	if len(recipes) == 0 {
		fmt.Fprintln(k.out, "no recipes yet")
		return nil
	}
	tw := tabwriter.NewWriter(k.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tADDED\tFEEDBACK")
	for _, r := range recipes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Added, r.Feedback)
	}
	return tw.Flush()
}

func (k *kitchen) listMealPlans(ctx context.Context) error {
	plans, err := k.router.ListMealPlans(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Fprintln(k.out, "no meal plans yet")
		return nil
	}
	tw := tabwriter.NewWriter(k.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDAYS")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ID, p.Title, p.Days)
	}
	return tw.Flush()
}

func (k *kitchen) usage(ctx context.Context) error {
	sub, err := k.router.GetSubscription(ctx)
	if err != nil {
		return err
	}
	stats, err := k.router.GetUsage(ctx)
	if err != nil {
		return err
	}
	limits := entitlement.LimitsFor(sub.Tier)
	fmt.Fprintf(k.out, "tier:       %s\n", sub.Tier)
	fmt.Fprintf(k.out, "month:      %s\n", stats.CurrentMonth)
	fmt.Fprintf(k.out, "recipes:    %d/%d\n", stats.RecipesGenerated, limits.RecipesPerMonth)
	fmt.Fprintf(k.out, "meal plans: %d/%d\n", stats.MealPlansGenerated, limits.MealPlansPerMonth)
	return nil
}

func (k *kitchen) subscribe(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	sub, err := k.router.UpdateSubscription(ctx, types.Subscription{
		Tier:      types.Tier(strings.ToLower(args[0])),
		Status:    types.SubStatusActive,
		AutoRenew: true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(k.out, "subscription is now %s\n", sub.Tier)
	return nil
}

// describe renders err for a terminal. AppErrors show their code so scripts
// can match on it.
func describe(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("%s (%s)", appErr.Message, appErr.Code)
	}
	return err.Error()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `kitchen - recipebox on this device

Usage:
  kitchen login <token> <userID>
  kitchen logout
  kitchen whoami
  kitchen generate-recipe --situation=TEXT [--family=N] [--constraints=a,b]
  kitchen generate-meal-plan --situation=TEXT [--family=N] [--days=N] [--constraints=a,b]
  kitchen list
  kitchen meal-plans
  kitchen usage
  kitchen subscribe <free|pro|family>
`)
}
