// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/statusoverview/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()

	if len(cfg.AdminAPIKeys) == 0 {
		fail("ADMIN_API_KEYS is empty (monitor registration and ping ingestion are open).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		fail("PUBLIC_API_KEYS is empty (overview reads are open).")
	}
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(os.Getenv(name), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty: pings and monitors are kept in memory and lost on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty: CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if len(cfg.DefaultLocations) == 0 {
		warn("DEFAULT_LOCATIONS empty: overviews cover every configured location unless a request narrows them.")
	} else {
		ok("DEFAULT_LOCATIONS=" + strings.Join(cfg.DefaultLocations, ","))
	}

	if cfg.AgentLocation == "" || cfg.CheckInterval == 0 {
		warn("AGENT_LOCATION or CHECK_INTERVAL_MS unset: this instance will not probe monitors.")
	} else {
		ok(fmt.Sprintf("probing from %q every %s", cfg.AgentLocation, cfg.CheckInterval))
	}

	if cfg.MonitorsFile != "" {
		ms, err := config.LoadMonitors(cfg.MonitorsFile)
		if err != nil {
			fail("MONITORS_FILE: " + err.Error())
		}
		ok(fmt.Sprintf("MONITORS_FILE=%s (%d monitors)", cfg.MonitorsFile, len(ms)))
	}

	if cfg.AlertInterval > 0 && cfg.SlackWebhookURL == "" {
		warn("ALERT_INTERVAL_MS set but SLACK_WEBHOOK_URL empty: alert state is tracked, nothing is sent.")
	}

	ok("preflight passed")
}
