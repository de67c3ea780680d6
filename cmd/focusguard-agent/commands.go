package main

import (
	"log/slog"
	"strings"
	"time"

	"focusguard/internal/agent"
	"focusguard/internal/domain/entity"
	"focusguard/internal/matcher"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			result, err := a.agent.Login(ctx, email, password)
			if err != nil {
				return err
			}

			return a.printJSON(result)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var decisions bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Register the device and keep the session cache in sync",
		Long: "Run polls the active session and sends heartbeats until interrupted. With --stdin,\n" +
			"observations are read as JSON lines from stdin and answered with JSON decisions on stdout.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if decisions {
				go func() {
					if err := a.agent.ServeDecisions(ctx, stdin(), a.out); err != nil {
						a.logger.Error("Decision stream failed", slog.Any("error", err))
					}
				}()
			}

			return a.agent.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&decisions, "stdin", false, "answer observations read from stdin")

	return cmd
}

func newDecideCmd(a *app) *cobra.Command {
	var obs matcher.Observation
	var text string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Fetch the session once and decide a single observation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.agent.Sync(cmd.Context()); err != nil {
				return err
			}
			if text != "" {
				obs.Content = &matcher.ContentNode{Text: text}
			}

			return a.printJSON(a.agent.Decide(obs))
		},
	}
	cmd.Flags().StringVar(&obs.Identifier, "app", "", "package or process name")
	cmd.Flags().StringVar(&obs.AppName, "app-name", "", "window owner name")
	cmd.Flags().StringVar(&obs.URL, "url", "", "address bar text")
	cmd.Flags().StringVar(&obs.Title, "title", "", "window title")
	cmd.Flags().StringVar(&text, "text", "", "on-screen text")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start, stop or inspect focus sessions",
	}
	cmd.AddCommand(newSessionStartCmd(a), newSessionStopCmd(a), newSessionActiveCmd(a))

	return cmd
}

func newSessionStartCmd(a *app) *cobra.Command {
	var targets, sites, apps, keywords []string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session, superseding the current one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if duration < 0 {
				return errors.New("duration must not be negative")
			}

			req := agent.StartRequest{Duration: int64(duration / time.Second)}
			if target, ok := parseTargets(targets); ok {
				req.TargetDevices = &target
			}
			if cmd.Flags().Changed("block-site") {
				req.BlockedWebsites = nonNil(sites)
			}
			if cmd.Flags().Changed("block-app") {
				req.BlockedPackages = nonNil(apps)
			}
			if cmd.Flags().Changed("block-keyword") {
				req.BlockedKeywords = nonNil(keywords)
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			session, err := a.agent.Client().StartSession(ctx, req)
			if err != nil {
				return err
			}

			return a.printJSON(session)
		},
	}
	cmd.Flags().StringSliceVar(&targets, "target", nil, `device ids, or "all" (default all)`)
	cmd.Flags().StringSliceVar(&sites, "block-site", nil, "override blocked websites")
	cmd.Flags().StringSliceVar(&apps, "block-app", nil, "override blocked packages")
	cmd.Flags().StringSliceVar(&keywords, "block-keyword", nil, "override blocked keywords")
	cmd.Flags().DurationVar(&duration, "duration", 0, "session length, 0 runs until stopped")

	return cmd
}

func newSessionStopCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop one session, or every active session without --id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			if err := a.agent.Client().StopSession(ctx, sessionID); err != nil {
				return err
			}

			return a.printJSON(map[string]bool{"ok": true})
		},
	}
	cmd.Flags().StringVar(&sessionID, "id", "", "session id")

	return cmd
}

func newSessionActiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the session enforced on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			session, err := a.agent.Client().ActiveSession(ctx, a.cfg.Device.ID)
			if err != nil {
				return err
			}

			return a.printJSON(map[string]any{"session": session})
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or replace the account's block and white lists",
	}
	cmd.AddCommand(newConfigGetCmd(a), newConfigSetCmd(a))

	return cmd
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the stored lists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			lists, err := a.agent.Client().GetConfig(ctx)
			if err != nil {
				return err
			}

			return a.printJSON(lists)
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	var blockSites, blockApps, blockKeywords, whiteSites, whiteApps []string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the given lists, leaving the others unchanged",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update agent.ListsUpdate
			changed := false
			for flag, apply := range map[string]func(){
				"block-site":    func() { update.BlockedWebsites = nonNil(blockSites) },
				"block-app":     func() { update.BlockedPackages = nonNil(blockApps) },
				"block-keyword": func() { update.BlockedKeywords = nonNil(blockKeywords) },
				"white-site":    func() { update.WhitelistedWebsites = nonNil(whiteSites) },
				"white-app":     func() { update.WhitelistedPackages = nonNil(whiteApps) },
			} {
				if cmd.Flags().Changed(flag) {
					apply()
					changed = true
				}
			}
			if !changed {
				return errors.New("no list given")
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			lists, err := a.agent.Client().UpdateConfig(ctx, update)
			if err != nil {
				return err
			}

			return a.printJSON(lists)
		},
	}
	cmd.Flags().StringSliceVar(&blockSites, "block-site", nil, "blocked websites")
	cmd.Flags().StringSliceVar(&blockApps, "block-app", nil, "blocked packages")
	cmd.Flags().StringSliceVar(&blockKeywords, "block-keyword", nil, "blocked keywords")
	cmd.Flags().StringSliceVar(&whiteSites, "white-site", nil, "whitelisted websites")
	cmd.Flags().StringSliceVar(&whiteApps, "white-app", nil, "whitelisted packages")

	return cmd
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the account's devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()

			devices, err := a.agent.Client().ListDevices(ctx)
			if err != nil {
				return err
			}

			return a.printJSON(map[string]any{"devices": devices})
		},
	}
}

// parseTargets maps the --target flag onto a target. No flag or "all" leaves the server default.
func parseTargets(raw []string) (entity.TargetDevices, bool) {
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if strings.EqualFold(id, "all") {
			return entity.TargetDevices{}, false
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return entity.TargetDevices{}, false
	}

	return entity.SpecificDevices(ids...), true
}

// nonNil turns an explicitly empty flag into an empty list, which clears the list server side.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
