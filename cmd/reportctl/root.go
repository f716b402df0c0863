package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/m1ll3r1337/incident-report-service/internal/auth"
	"github.com/m1ll3r1337/incident-report-service/internal/client"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/config"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
)

type rootOptions struct {
	endpoint      string
	timeout       time.Duration
	token         string
	logLevel      string
	surfaceErrors bool

	authSecret string
	authIssuer string

	stdout io.Writer
	stderr io.Writer
	driver PromptDriver
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.endpoint, client.WithTimeout(o.timeout))
}

func (o *rootOptions) logger() *logger.Logger {
	return logger.New(o.stderr, logger.ParseLogLevel(o.logLevel), "REPORTCTL")
}

// user resolves the --token flag. With a configured secret the token is verified and the
// display name is taken from it; otherwise the token is forwarded as is.
func (o *rootOptions) user() (auth.CurrentUser, error) {
	if o.token == "" {
		return auth.Anonymous{}, nil
	}
	v := auth.NewVerifier(o.authSecret, o.authIssuer)
	if !v.Enabled() {
		return auth.Fixed{ID: "cli", Token: o.token}, nil
	}
	u, err := v.Verify(o.token)
	if err != nil {
		return nil, err
	}
	return auth.Fixed(u), nil
}

// newRootCmd builds the command tree. A nil driver prompts on the terminal.
func newRootCmd(stdout, stderr io.Writer, driver PromptDriver) *cobra.Command {
	o := &rootOptions{stdout: stdout, stderr: stderr, driver: driver}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Config{}
		cfg.Form.Endpoint = "http://localhost:8080"
		cfg.Form.Timeout = 15 * time.Second
		cfg.Log.Level = "info"
	}
	o.authSecret = cfg.Auth.Secret
	o.authIssuer = cfg.Auth.Issuer

	cmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Submit incident reports to the generation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.endpoint, "endpoint", cfg.Form.Endpoint, "generation API base URL")
	flags.DurationVar(&o.timeout, "timeout", cfg.Form.Timeout, "request timeout")
	flags.StringVar(&o.token, "token", "", "session token sent as the bearer")
	flags.StringVar(&o.logLevel, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flags.BoolVar(&o.surfaceErrors, "surface-errors", cfg.Form.SurfaceErrors, "fail when the API cannot be reached")

	cmd.AddCommand(newSubmitCmd(o), newImagesCmd(o))
	return cmd
}
