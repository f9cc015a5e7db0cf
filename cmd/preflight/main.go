// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hamed0406/handlecheck/internal/catalog"
)

func main() {
	_ = godotenv.Load()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	apiAddr := strings.TrimSpace(os.Getenv("API_ADDR"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	catalogFile := strings.TrimSpace(os.Getenv("CATALOG_FILE"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (admin routes would be open).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (check routes would be open).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if apiAddr == "" {
		warn("API_ADDR is empty; the default 127.0.0.1:8080 will be used.")
	} else {
		ok("API_ADDR=" + apiAddr)
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty: every origin will be allowed by CORS.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if catalogFile == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(catalogFile)
	}
	if err != nil {
		fail("catalog does not load: " + err.Error())
	}
	ok(fmt.Sprintf("catalog %s with %d platforms", cat.Version(), cat.Len()))

	if cat.NeedsSession() {
		if os.Getenv("SESSION_LOGIN") == "" || os.Getenv("SESSION_PASSWORD") == "" {
			warn("SESSION_LOGIN/SESSION_PASSWORD empty: authenticated platforms will report unknown.")
		} else {
			ok("session credentials present")
		}
	}

	if os.Getenv("GITHUB_TOKEN") == "" {
		warn("GITHUB_TOKEN empty: GitHub falls back to profile page status codes.")
	} else {
		ok("GITHUB_TOKEN present")
	}

	if os.Getenv("SLACK_WEBHOOK_URL") == "" {
		warn("SLACK_WEBHOOK_URL empty: session failures will only be logged.")
	}

	ok("preflight passed")
}
