// Package trigger implements a CLI helper that kicks off an ingestion
// run on a running service instance over HTTP
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/JeremyNoori/xdc-risk-monitor/cmd/env"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

const triggerPath = "/api/jobs/run"

var (
	errRunFailed    = errors.New("ingestion run failed")
	errMissingToken = errors.New("missing admin token")
	errUnauthorized = errors.New("admin token rejected")
)

type triggerCfg struct {
	serverURL string
	token     string
	timeout   time.Duration
}

// NewTriggerCmd creates the trigger subcommand
func NewTriggerCmd() *ffcli.Command {
	cfg := &triggerCfg{}

	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "trigger",
		ShortUsage: "trigger [flags]",
		LongHelp:   "Triggers an ingestion run on a running service instance",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *triggerCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.serverURL,
		"url",
		"http://localhost:8080",
		"the base URL of the running service",
	)

	fs.StringVar(
		&c.token,
		"admin-token",
		"",
		"the admin bearer token for the trigger endpoint",
	)

	fs.DurationVar(
		&c.timeout,
		"timeout",
		time.Minute*2,
		"the max duration to wait for the run to finish",
	)
}

// exec executes the trigger command
func (c *triggerCfg) exec(ctx context.Context, _ []string) error {
	// Load .env, so a local ADMIN_TOKEN is picked up
	_ = godotenv.Load()

	token := c.token
	if token == "" {
		token = os.Getenv("ADMIN_TOKEN")
	}

	if token == "" {
		return errMissingToken
	}

	reqCtx, cancelFn := context.WithTimeout(ctx, c.timeout)
	defer cancelFn()

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		c.serverURL+triggerPath,
		nil,
	)
	if err != nil {
		return fmt.Errorf("unable to create trigger request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach service: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusUnauthorized:
		return errUnauthorized
	case http.StatusTooManyRequests:
		var rateLimited struct {
			RetryAfterMs int64 `json:"retryAfterMs"`
		}

		if err := json.NewDecoder(res.Body).Decode(&rateLimited); err != nil {
			return fmt.Errorf("unable to decode response: %w", err)
		}

		return fmt.Errorf(
			"run rejected, retry in %s",
			time.Duration(rateLimited.RetryAfterMs)*time.Millisecond,
		)
	}

	var summary types.RunSummary

	if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
		return fmt.Errorf("unable to decode run summary: %w", err)
	}

	out, err := json.MarshalIndent(&summary, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to render run summary: %w", err)
	}

	fmt.Println(string(out))

	if summary.Status == types.RunStatusFailed {
		return errRunFailed
	}

	return nil
}
