package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	asOf := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	vid := func(id, channel string, views float64, kws ...string) records.ContentRecord {
		return records.ContentRecord{
			ID: id, Kind: records.KindVideo, ChannelID: channel, Keywords: kws,
			PublishedAt: asOf.Add(-24 * time.Hour),
			Metrics:     map[string]float64{records.MetricViews: views},
		}
	}
	doc := &source.Document{AsOf: asOf, Records: []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Title: "Big"},
		{ID: "UC2", Kind: records.KindChannel, Title: "Small"},
		vid("v1", "UC1", 9000, "go", "graphs"),
		vid("v2", "UC1", 7000, "go"),
		vid("v3", "UC2", 300, "graphs", "rust"),
	}}
	data, err := source.EncodeDocument("records.json", doc)
	require.NoError(t, err)
	recordsPath := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(recordsPath, data, 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "source:\n  type: file\n  file:\n    path: " + recordsPath + "\nauth:\n  jwt_secret: " + testSecret + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rankReq = validation.RankingRequest{}
	quadReq = validation.QuadrantRequest{}
	reportReq = validation.ReportRequest{}
	outputJSON, verbose = false, false
	notifyWindow, tokenSubject, tokenRole = "*", "", auth.RoleViewer

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRankingCommand_JSON(t *testing.T) {
	cfg := writeFixture(t)

	out, err := execute(t, "--config", cfg, "--json", "ranking", "--dimension", "channel")
	require.NoError(t, err)

	var got analytics.Ranking
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, records.KindChannel, got.Dimension)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 1, got.Items[0].Rank)
}

func TestRankingCommand_Table(t *testing.T) {
	cfg := writeFixture(t)

	out, err := execute(t, "--config", cfg, "ranking", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "3 of")
}

func TestRankingCommand_InvalidFlags(t *testing.T) {
	cfg := writeFixture(t)

	_, err := execute(t, "--config", cfg, "ranking", "--key", "popularity")
	assert.Error(t, err)
}

func TestQuadrantsCommand(t *testing.T) {
	cfg := writeFixture(t)

	out, err := execute(t, "--config", cfg, "quadrants", "--dimension", "video")
	require.NoError(t, err)
	assert.Contains(t, out, "video in window")
	assert.Contains(t, out, "QUADRANT")

	_, err = execute(t, "--config", cfg, "quadrants")
	assert.Error(t, err, "dimension is required")
}

func TestReportCommand(t *testing.T) {
	cfg := writeFixture(t)

	out, err := execute(t, "--config", cfg, "--json", "report", "--channel", "UC2")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"synthesis"`))

	_, err = execute(t, "--config", cfg, "report", "--channel", "UC9")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfg, "report", "--channel", "UC1", "--video", "v1")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	cfg := writeFixture(t)

	out, err := execute(t, "--config", cfg, "token", "--subject", "ops", "--role", auth.RoleAdmin)
	require.NoError(t, err)

	m, err := auth.NewJWTManager(testSecret, "opportunityd", 0)
	require.NoError(t, err)
	claims, err := m.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.IsAdmin())

	_, err = execute(t, "--config", cfg, "token", "--subject", "ops", "--role", "root")
	assert.Error(t, err)
}

func TestNotifyCommand_RequiresURL(t *testing.T) {
	cfg := writeFixture(t)

	_, err := execute(t, "--config", cfg, "notify", "--window", "7d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.url")

	_, err = execute(t, "--config", cfg, "notify", "--window", "1y")
	assert.Error(t, err)
}

func TestImportCommand_RequiresPostgres(t *testing.T) {
	cfg := writeFixture(t)

	_, err := execute(t, "--config", cfg, "import", "records.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
