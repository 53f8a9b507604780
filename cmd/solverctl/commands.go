package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	cmdmodels "solver/internal/command/models"
	commandservice "solver/internal/command/service"
	sessionservice "solver/internal/session/service"
	"solver/internal/session/store"
	"solver/internal/solver"
	"solver/pkg/domain"
	dErrors "solver/pkg/domain-errors"
)

func cmdLogin(ctx context.Context, sessions *sessionservice.Service, env domain.Environment, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: solverctl login <enterprise_sso|national_id|phone>")
	}
	provider := domain.Provider(args[0])
	if !provider.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown provider: "+args[0])
	}

	session, err := sessions.SignIn(ctx, provider, env)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", session.DisplayName(), session.ID)
	return nil
}

func cmdSessions(st *store.Store) error {
	all := st.AllSessions()
	if len(all) == 0 {
		fmt.Println("no stored accounts")
		return nil
	}
	current, hasCurrent := st.CurrentSession()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tACCOUNT\tPROVIDER\tENVIRONMENT")
	for _, s := range all {
		marker := ""
		if hasCurrent && s.ID == current.ID {
			marker = "*"
		}
		initials := "??"
		if s.Credentials.Profile != nil {
			initials = s.Credentials.Profile.Initials()
		}
		fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\t%s\n", marker, s.ID, s.DisplayName(), initials, s.Provider, s.Environment)
	}
	return w.Flush()
}

func cmdSwitch(ctx context.Context, st *store.Store, sessions *sessionservice.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: solverctl switch <session-id>")
	}
	id, err := domain.ParseSessionID(args[0])
	if err != nil {
		return err
	}
	// The store does not validate existence on switch, so check here.
	found := false
	for _, s := range st.AllSessions() {
		if s.ID == id {
			found = true
			break
		}
	}
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "no stored session with that ID")
	}
	return sessions.Switch(ctx, id)
}

func cmdEnv(ctx context.Context, st *store.Store, sessions *sessionservice.Service, args []string) error {
	if len(args) == 0 {
		fmt.Println(st.PreferredEnvironment())
		return nil
	}
	env := domain.Environment(args[0])
	if !env.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown environment: "+args[0])
	}
	// Switching brands invalidates every stored account.
	if err := sessions.SignOutAll(ctx); err != nil {
		return err
	}
	return st.SetPreferredEnvironment(ctx, env)
}

func cmdObjects(ctx context.Context, commands *commandservice.Service, args []string) error {
	fs := flag.NewFlagSet("objects", flag.ContinueOnError)
	locale := fs.String("locale", "en", "locale tag for command labels")
	if err := fs.Parse(args); err != nil {
		return err
	}

	objects, err := commands.Objects(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOMMANDS")
	for _, obj := range objects {
		names := ""
		for i, cmd := range commands.Commands(obj, *locale) {
			if i > 0 {
				names += ", "
			}
			names += cmd.EffectiveName()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", obj.ID, obj.Name, names)
	}
	return w.Flush()
}

func cmdRun(ctx context.Context, commands *commandservice.Service, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	input := fs.String("input", "", "free-text input for the command")
	lat := fs.Float64("lat", 0, "caller latitude")
	lon := fs.Float64("lon", 0, "caller longitude")
	locale := fs.String("locale", "en", "locale tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: solverctl run <object-id> <command> [-input s] [-lat f -lon f]")
	}
	objectID, err := domain.ParseObjectID(rest[0])
	if err != nil {
		return err
	}

	obj, err := commands.Object(ctx, objectID)
	if err != nil {
		return err
	}
	cmd, found := findCommand(commands.Commands(obj, *locale), rest[1])
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "command not available on this object: "+rest[1])
	}

	opts := solver.ExecuteOptions{Input: *input}
	if *lat != 0 || *lon != 0 {
		opts.Location = &solver.Location{Latitude: *lat, Longitude: *lon}
	}

	execution, err := commands.Execute(ctx, obj, cmd, opts)
	if err != nil {
		return err
	}
	if execution.Decision.Message != "" {
		fmt.Println(execution.Decision.Message)
	}
	if execution.Decision.ShowGenericUI {
		outcome := "failed"
		if execution.Result.Success {
			outcome = "ok"
		}
		fmt.Printf("%s %s: %s\n", obj.Name, cmd.EffectiveName(), outcome)
	}
	return nil
}

func cmdLogout(ctx context.Context, st *store.Store, sessions *sessionservice.Service, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	all := fs.Bool("all", false, "sign out every stored account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *all {
		return sessions.SignOutAll(ctx)
	}
	rest := fs.Args()
	if len(rest) == 1 {
		id, err := domain.ParseSessionID(rest[0])
		if err != nil {
			return err
		}
		return sessions.SignOut(ctx, id)
	}
	current, ok := st.CurrentSession()
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "no current session")
	}
	return sessions.SignOut(ctx, current.ID)
}

func findCommand(list []cmdmodels.Command, name string) (cmdmodels.Command, bool) {
	for _, c := range list {
		if c.Is(name) {
			return c, true
		}
	}
	return cmdmodels.Command{}, false
}
