package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"focusguard/config"
	"focusguard/internal/agent"
	logs "focusguard/internal/infra/log"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// app carries the loaded configuration and the agent to every subcommand.
type app struct {
	loadConfig func() (*config.AgentConfig, error)

	cfg    *config.AgentConfig
	logger *slog.Logger
	agent  *agent.Agent
	out    io.Writer
}

type rootFlags struct {
	server   string
	token    string
	deviceID string
	debug    bool
}

func newRootCmd() *cobra.Command {
	return newAppCmd(&app{loadConfig: config.NewAgent})
}

func newAppCmd(a *app) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "focusguard-agent",
		Short:         "On-device focus session agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.server, "server", "", "server base URL (overrides server.url)")
	root.PersistentFlags().StringVar(&flags.token, "token", "", "bearer token (overrides server.token)")
	root.PersistentFlags().StringVar(&flags.deviceID, "device", "", "device id (overrides device.id)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newLoginCmd(a),
		newRunCmd(a),
		newDecideCmd(a),
		newSessionCmd(a),
		newConfigCmd(a),
		newDevicesCmd(a),
	)

	return root
}

func (a *app) load(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if flags.server != "" {
		cfg.Server.URL = flags.server
	}
	if flags.token != "" {
		cfg.Server.Token = flags.token
	}
	if flags.deviceID != "" {
		cfg.Device.ID = flags.deviceID
		cfg.Device.Name = flags.deviceID
	}
	if flags.debug {
		cfg.Env.Log.Level = "debug"
	}

	logger, err := logs.NewLogger(cfg.Env.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.agent = agent.New(cfg, logger)
	a.out = cmd.OutOrStdout()

	return nil
}

// requestContext bounds a single API call by the configured request timeout.
func (a *app) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.cfg.Sync.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return context.WithTimeout(parent, timeout)
}

func (a *app) printJSON(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")

	return errors.WithStack(encoder.Encode(v))
}

func stdin() io.Reader {
	return os.Stdin
}
