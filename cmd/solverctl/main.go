package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"solver/internal/command/audit"
	"solver/internal/command/middleware"
	cmdmodels "solver/internal/command/models"
	commandservice "solver/internal/command/service"
	"solver/internal/identity"
	"solver/internal/platform/config"
	"solver/internal/platform/logger"
	"solver/internal/platform/metrics"
	sessionservice "solver/internal/session/service"
	"solver/internal/session/store"
	"solver/internal/solver"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

// main wires dependencies explicitly and dispatches one subcommand.
// Business logic lives in the internal services; this stays a thin shell.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAuthCancelled) {
			// User backed out of a sign-in; not an error.
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	prefsPath := cfg.PrefsPath
	if prefsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		prefsPath = filepath.Join(home, ".solver", "prefs.json")
	}

	st, err := store.New(ctx, store.NewFilePrefs(prefsPath),
		store.WithLogger(log),
		store.WithChangeHook(func(n int) { m.ActiveSessions.Set(float64(n)) }),
	)
	if err != nil {
		return err
	}

	sessions := sessionservice.New(st, authenticators(cfg), sessionservice.WithLogger(log), sessionservice.WithMetrics(m))

	env := st.PreferredEnvironment()
	if current, ok := st.CurrentSession(); ok {
		env = current.Environment
	}
	if !env.Valid() {
		env = domain.EnvSolverProduction
	}

	client := solver.New(cfg.Endpoints.API(env), sessions, solver.WithLogger(log))
	publisher := audit.NewPublisher(client, audit.WithLogger(log))
	defer publisher.Close()

	chain := middleware.StandardChain(
		startExternalFlow("payment"),
		startExternalFlow("subscription"),
		publisher,
		printStatus,
		middleware.WithChainLogger(log),
		middleware.WithFailureHook(func(unit string) { m.UnitFailures.WithLabelValues(unit).Inc() }),
		middleware.WithHandledHook(func(unit string) { m.PipelineOutcomes.WithLabelValues(unit).Inc() }),
	)
	commands := commandservice.New(client, chain, commandservice.WithLogger(log), commandservice.WithMetrics(m))

	switch args[0] {
	case "login":
		return cmdLogin(ctx, sessions, env, args[1:])
	case "sessions":
		return cmdSessions(st)
	case "switch":
		return cmdSwitch(ctx, st, sessions, args[1:])
	case "env":
		return cmdEnv(ctx, st, sessions, args[1:])
	case "objects":
		return cmdObjects(ctx, commands, args[1:])
	case "run":
		return cmdRun(ctx, commands, args[1:])
	case "logout":
		return cmdLogout(ctx, st, sessions, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: solverctl <subcommand>

  login <enterprise_sso|national_id|phone>   sign in with a provider
  sessions                                   list stored accounts
  switch <session-id>                        make another account current
  env <environment>                          switch brand environment (clears accounts)
  objects [-locale <tag>]                    list objects and their commands
  run <object-id> <command> [-input s] [-lat f -lon f]
  logout [<session-id>|-all]`)
}

// authenticators builds the provider strategies with terminal prompts for
// the interactive steps.
func authenticators(cfg config.Client) []identity.Authenticator {
	prompt := func(label string) func(ctx context.Context, detail string) (string, error) {
		return func(ctx context.Context, detail string) (string, error) {
			if detail != "" {
				fmt.Println(detail)
			}
			fmt.Printf("%s: ", label)
			return readLine(ctx)
		}
	}
	return []identity.Authenticator{
		identity.NewEnterpriseSSO(cfg.Endpoints.Provider(domain.ProviderEnterpriseSSO), "solver-mobile", nil,
			func(ctx context.Context, authorizeURL string) (string, error) {
				return prompt("authorization code")(ctx, "Open in a browser: "+authorizeURL)
			}),
		identity.NewNationalID(cfg.Endpoints.Provider(domain.ProviderNationalID), "solver-mobile", nil,
			func(ctx context.Context, authorizeURL string) (string, error) {
				return prompt("authorization code")(ctx, "Open in a browser: "+authorizeURL)
			}),
		identity.NewPhoneAuth(cfg.Endpoints.Provider(domain.ProviderPhone), os.Getenv("SOLVER_PHONE_NUMBER"), nil,
			func(ctx context.Context) (string, error) {
				return prompt("PIN")(ctx, "")
			},
			identity.WithConfirmTimeout(cfg.ConfirmTimeout)),
	}
}

// readLine reads one trimmed line from stdin, honoring cancellation.
func readLine(ctx context.Context) (string, error) {
	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		ch <- lineResult{strings.TrimSpace(line), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return res.line, nil
	}
}

// startExternalFlow stands in for the payment/subscription business flows,
// which live outside this client core.
func startExternalFlow(kind string) middleware.FlowStarter {
	return func(_ context.Context, obj cmdmodels.Object, cmd cmdmodels.Command, payload string) error {
		fmt.Printf("-> %s flow required for %q on %s\n", kind, cmd.EffectiveName(), obj.Name)
		if payload != "" {
			fmt.Println("   options:", payload)
		}
		return nil
	}
}

// printStatus is the dedicated status view: a plain rendering of the
// result's context entries.
func printStatus(result cmdmodels.ExecutionResult) {
	fmt.Println("status:")
	for _, entry := range result.Context {
		label := entry.Label
		if label == "" {
			label = entry.Key
		}
		fmt.Printf("  %-20s %s\n", label, entry.Value)
	}
}
