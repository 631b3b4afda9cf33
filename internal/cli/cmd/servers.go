package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vmanager/internal/action"
	"vmanager/internal/cli/ui"
	"vmanager/internal/domain"
	"vmanager/internal/frontend"
)

var confirmFlag bool

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List and control managed servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleList(cmd.Context())
	},
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleList(cmd.Context())
	},
}

var serversCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new server interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleCreate(cmd.Context())
	},
}

func lifecycleCmd(verb domain.Verb, short string) *cobra.Command {
	c := &cobra.Command{
		Use:               string(verb) + " <server_name>",
		Short:             short,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeServerNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, confirmed := splitConfirm(args)
			if name == "" {
				return fmt.Errorf("please specify a server name")
			}
			return handleAction(cmd.Context(), action.Verb(verb), name, confirmed || confirmFlag)
		},
	}
	c.Flags().BoolVar(&confirmFlag, "confirm", false, "Confirm stopping or restarting the proxy you are connected to")
	return c
}

func init() {
	serversCmd.AddCommand(
		serversListCmd,
		serversCreateCmd,
		lifecycleCmd(domain.VerbStart, "Start a server"),
		lifecycleCmd(domain.VerbStop, "Stop a server"),
		lifecycleCmd(domain.VerbRestart, "Restart a server"),
	)
	RootCmd.AddCommand(serversCmd)
}

// splitConfirm joins a multi-word server name. A trailing "--confirm" given
// after "--" is accepted as well.
func splitConfirm(args []string) (string, bool) {
	confirmed := false
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], "--confirm") {
		confirmed = true
		args = args[:n-1]
	}
	return strings.TrimSpace(strings.Join(args, " ")), confirmed
}

func handleList(ctx context.Context) error {
	p := newConsolePresenter(os.Stdout)
	s, err := openSession(ctx, p)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println(ui.InfoStyle.Render("Fetching server list..."))
	page, err := s.fetchList(p)
	if err != nil {
		return fmt.Errorf("failed to fetch server list: %w", err)
	}

	cache, _ := s.host.Cache(UserName)
	fmt.Println(ui.HeadingStyle.Render("--- Available Servers ---"))
	if cache == nil || cache.Empty() {
		fmt.Println(ui.InfoStyle.Render("No servers found."))
		return nil
	}

	for _, srv := range cache.Servers() {
		var verbs []string
		for _, v := range action.Available(srv) {
			verbs = append(verbs, "["+strings.ToUpper(string(v[:1]))+string(v[1:])+"]")
		}
		fmt.Printf("%s %s %s\n",
			srv.Name,
			ui.InfoStyle.Render(fmt.Sprintf("(%s) - %s", srv.Status, srv.Address())),
			ui.SuccessStyle.Render(strings.Join(verbs, " ")))
	}
	if page.Total > 1 {
		fmt.Println(ui.InfoStyle.Render(fmt.Sprintf("%d servers on %d pages in the dashboard.", cache.Len(), page.Total)))
	}
	return nil
}

func handleAction(ctx context.Context, verb action.Verb, name string, confirmed bool) error {
	p := newConsolePresenter(os.Stdout)
	s, err := openSession(ctx, p)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.fetchList(p); err != nil {
		return fmt.Errorf("error finding server: %w", err)
	}

	err = s.host.HandleUI(action.Request{User: UserName, Verb: verb, Target: name, Confirmed: confirmed})
	if err != nil {
		return err
	}
	if p.warned.Load() {
		fmt.Println(ui.WarnStyle.Render(fmt.Sprintf("Run this command again with --confirm: vmanager servers %s %s --confirm", verb, name)))
		return nil
	}

	n, err := s.awaitResponse(p)
	if err != nil {
		return err
	}
	if n.Level == frontend.LevelError {
		return fmt.Errorf("%s", n.Text)
	}
	return nil
}

func handleCreate(ctx context.Context) error {
	p := newConsolePresenter(os.Stdout)
	s, err := openSession(ctx, p)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.host.StartWizard(UserName); err != nil {
		return err
	}
	fmt.Println(ui.InfoStyle.Render("Type 'cancel' at any time to abort."))

	scanner := bufio.NewScanner(os.Stdin)
	var last frontend.Notice
	for s.host.WizardActive(UserName) {
		if !scanner.Scan() {
			_, _ = s.host.HandleChat(UserName, "cancel")
			return scanner.Err()
		}
		p.drainOutcomes()
		consumed, err := s.host.HandleChat(UserName, scanner.Text())
		if err != nil {
			return err
		}
		if !consumed {
			// The wizard ended on a catalog failure while we were reading.
			return nil
		}
		last = p.lastOutcome()
	}

	if finished, err := createOutcome(last); finished {
		return err
	}

	n, err := s.awaitResponse(p)
	if err != nil {
		return err
	}
	if n.Level == frontend.LevelError {
		return errors.New(n.Text)
	}
	return nil
}

// createOutcome reports whether the wizard's last notice settles the command.
// Cancellation and wizard failures were already printed and end quietly; the
// proxy's answer fails the command when it is an error.
func createOutcome(n frontend.Notice) (bool, error) {
	switch {
	case n.Response && n.Level == frontend.LevelError:
		return true, errors.New(n.Text)
	case n.Text != "":
		return true, nil
	default:
		return false, nil
	}
}

func completeServerNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return []string{"--confirm"}, cobra.ShellCompDirectiveNoFileComp
	}

	if Cfg == nil {
		if err := setup(); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}

	p := newConsolePresenter(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := openSession(ctx, p)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer s.Close()

	if _, err := s.fetchList(p); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cache, _ := s.host.Cache(UserName)
	if cache == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	prefix := strings.ToLower(toComplete)
	for _, n := range cache.Names() {
		if strings.HasPrefix(strings.ToLower(n), prefix) {
			names = append(names, n)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
