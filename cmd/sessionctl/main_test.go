package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/paperloop/paperloop-backend/pkg/auth"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type cli struct {
	cfg *config.Config
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{cfg: &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageSQLite},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessionctl.db")},
		JWT:     config.JWTConfig{Secret: "cli-secret", AccessExpiry: time.Hour, Issuer: "paperloop"},
		Scoring: config.ScoringConfig{Strategy: config.ScoringConstant, Quality: 90, Punctuality: 100},
	}}
}

func (c *cli) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{out: &out, errOut: &errOut, cfg: c.cfg, log: logger.Nop()}
	root := newRootCmd(a)
	root.SetArgs(append(args, "--actor-id", "cli-user", "--actor-name", "Cli User"))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (c *cli) mustJSON(t *testing.T, target interface{}, args ...string) {
	t.Helper()
	out, _, err := c.run(t, append(args, "-o", "json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), target), out)
}

func TestSessionctl_Lifecycle(t *testing.T) {
	c := newCLI(t)

	var created domain.CollectionSession
	c.mustJSON(t, &created, "session", "create",
		"--supplier-id", "sup-1", "--supplier-name", "Paper Mill",
		"--site", "Dock 3", "--coordinator-id", "cli-user", "--coordinator-name", "Cli User",
		"--start", "2026-03-02T08:00:00Z", "--end", "2026-03-02T14:00:00Z",
		"--estimate", "500")
	assert.Equal(t, domain.StatusPlanned, created.Status)
	assert.Equal(t, "cli-user", created.CreatedBy)

	var started sessionResult
	c.mustJSON(t, &started, "session", "start", created.ID)
	assert.Equal(t, domain.StatusInProgress, started.Session.Status)

	var withData sessionResult
	c.mustJSON(t, &withData, "collection", "set", created.ID, "--paper", "carton=300,np=100", "--actual", "450")
	require.Len(t, withData.Warnings, 1)
	assert.Equal(t, domain.WarningAmountMismatch, withData.Warnings[0].Code)

	var reported domain.CollectionSession
	c.mustJSON(t, &reported, "problem", "report", created.ID, "-d", "scale offline", "-p", "critical")
	require.Len(t, reported.Problems, 1)

	var resolved domain.CollectionSession
	c.mustJSON(t, &resolved, "problem", "resolve", created.ID, reported.Problems[0].ID, "-r", "borrowed a scale")
	assert.Equal(t, domain.ProblemResolved, resolved.Problems[0].Status)

	_, _, err := c.run(t, "problem", "resolve", created.ID, reported.Problems[0].ID, "-r", "again")
	assert.Error(t, err)

	var done sessionResult
	c.mustJSON(t, &done, "session", "complete", created.ID)
	assert.Equal(t, domain.StatusCompleted, done.Session.Status)
	assert.Equal(t, 90, done.Session.Performance.Efficiency)

	_, _, err = c.run(t, "session", "transition", created.ID, "planned")
	assert.Error(t, err)

	var stats service.SessionStats
	c.mustJSON(t, &stats, "session", "stats")
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusCompleted])
	assert.Equal(t, 450.0, stats.TotalCollected)

	out, _, err := c.run(t, "session", "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+created.ID)

	_, _, err = c.run(t, "session", "get", created.ID)
	assert.Error(t, err)
}

func TestSessionctl_TableAndYAML(t *testing.T) {
	c := newCLI(t)

	var created domain.CollectionSession
	c.mustJSON(t, &created, "session", "create",
		"--supplier-id", "sup-1", "--supplier-name", "Paper Mill", "--site", "Dock 3",
		"--coordinator-id", "cli-user", "--coordinator-name", "Cli User",
		"--start", "2026-03-02T08:00:00Z", "--end", "2026-03-02T14:00:00Z", "--estimate", "100")

	out, _, err := c.run(t, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, created.SessionNumber)
	assert.Contains(t, out, "Paper Mill")

	out, _, err = c.run(t, "comment", "add", created.ID, "gate code 4711")
	require.NoError(t, err)
	assert.Contains(t, out, "gate code 4711")

	out, _, err = c.run(t, "session", "get", created.ID, "-o", "yaml")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, created.SessionNumber, doc["session_number"])

	_, _, err = c.run(t, "session", "list", "-o", "xml")
	assert.Error(t, err)
}

func TestSessionctl_Token(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "token", "--user-id", "u-42", "--role", "manager")
	require.NoError(t, err)

	claims, err := auth.NewManager(&c.cfg.JWT).Validate(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.UserID)
	assert.Equal(t, "manager", claims.Role)

	_, _, err = c.run(t, "token")
	assert.Error(t, err)
}
