package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
	"github.com/dealerdesk/dealerdesk.go/internal/fakeapi"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
)

const testResources = `
resources:
  - name: vehicles
    identifier: uuid
    tier: paginated
    fields:
      - {name: model, type: string, min: 1}
  - name: brands
    identifier: id
    tier: read
    fields:
      - {name: title, type: string}
  - name: internal-companies
    path: companies/internal
    tier: choices
`

type cliHarness struct {
	t    *testing.T
	fake *fakeapi.Server
	url  string
	dir  string
	out  bytes.Buffer
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	fake := fakeapi.New("api", []byte("secret"))
	fake.AddUser(fakeapi.User{Username: "alice", Password: "pw", Role: "manager", ID: 3})
	fake.SetPermissions("manager", "vehicles.view")
	fake.AddResource(fakeapi.Resource{Path: "vehicles", Kind: models.KindUUID, LabelField: "model"})
	fake.AddResource(fakeapi.Resource{Path: "brands", Kind: models.KindNumeric, LabelField: "title"})
	fake.AddResource(fakeapi.Resource{Path: "companies/internal", Kind: models.KindNumeric})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources.yaml"), []byte(testResources), 0o600))
	t.Setenv("DEALERDESK_SESSION_PATH", filepath.Join(dir, "session.json"))
	t.Setenv("DEALERDESK_DUMMY_DELAY", "1ms")
	t.Setenv("DEALERDESK_LOG_LEVEL", "error")
	return &cliHarness{t: t, fake: fake, url: srv.URL, dir: dir}
}

func (h *cliHarness) run(args ...string) error {
	h.t.Helper()
	h.out.Reset()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("dealerdesk"), kong.Exit(func(int) { h.t.Fatal("kong exited") }))
	require.NoError(h.t, err)
	base := []string{
		"--base-url", h.url,
		"--api-pattern", "api",
		"--store", "file",
		"--resources", filepath.Join(h.dir, "resources.yaml"),
		"--env", filepath.Join(h.dir, "absent.env"),
	}
	kctx, err := parser.Parse(append(base, args...))
	require.NoError(h.t, err)
	cli.Globals.out = &h.out
	return kctx.Run(&cli.Globals)
}

func TestLoginAndWhoami(t *testing.T) {
	h := newCLIHarness(t)

	require.NoError(t, h.run("login", "alice", "--password", "pw"))
	assert.Contains(t, h.out.String(), "signed in as user 3 (manager)")

	require.NoError(t, h.run("--json", "whoami"))
	var who []map[string]any
	require.NoError(t, codec.Default.Unmarshal(h.out.Bytes(), &who))
	require.Len(t, who, 1)
	assert.Equal(t, "manager", who[0]["role"])
	assert.Equal(t, "vehicles.view", who[0]["permissions"])

	require.NoError(t, h.run("logout"))
	assert.Error(t, h.run("whoami"))
}

func TestLoginRejected(t *testing.T) {
	h := newCLIHarness(t)
	assert.Error(t, h.run("login", "alice", "--password", "wrong"))
}

func TestResourceCommands(t *testing.T) {
	h := newCLIHarness(t)
	ids := h.fake.Seed("vehicles", map[string]any{"model": "Civic"}, map[string]any{"model": "Jazz"})
	h.fake.Seed("brands", map[string]any{"title": "Honda"})
	h.fake.Seed("companies/internal", map[string]any{"name": "Back office"})
	require.NoError(t, h.run("login", "alice", "--password", "pw"))

	require.NoError(t, h.run("--json", "get", "vehicles", ids[0]))
	assert.Contains(t, h.out.String(), `"model":"Civic"`)

	require.NoError(t, h.run("list", "vehicles"))
	assert.Contains(t, h.out.String(), "Jazz")
	assert.Contains(t, h.out.String(), "uuid")

	require.NoError(t, h.run("page", "vehicles", "--page", "2", "--size", "1"))
	assert.Contains(t, h.out.String(), "Jazz")
	assert.Contains(t, h.out.String(), "page 2, 1 of 2")

	require.NoError(t, h.run("choices", "internal-companies"))
	assert.Contains(t, h.out.String(), "Back office")

	require.NoError(t, h.run("get", "brands", "1"))
	assert.Contains(t, h.out.String(), "Honda")
	assert.Error(t, h.run("delete", "brands", "1"))
	assert.Error(t, h.run("get", "brands", "not-a-number"))

	require.NoError(t, h.run("delete", "vehicles", ids[0]))
	assert.Equal(t, 1, h.fake.Len("vehicles"))
}

func TestListFansOut(t *testing.T) {
	h := newCLIHarness(t)
	h.fake.Seed("vehicles", map[string]any{"model": "Civic"})
	h.fake.Seed("brands", map[string]any{"title": "Honda"})
	require.NoError(t, h.run("login", "alice", "--password", "pw"))

	// brands is read-only, so listing it is refused before anything is sent
	assert.Error(t, h.run("list", "vehicles", "brands"))
	assert.Zero(t, h.fake.Hits("GET", "vehicles/all"))
}

func TestUpload(t *testing.T) {
	h := newCLIHarness(t)
	require.NoError(t, h.run("login", "alice", "--password", "pw"))
	photo := filepath.Join(h.dir, "car.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("JPEG"), 0o600))

	require.NoError(t, h.run("--json", "upload", "vehicles", "--field", "model=Civic", "--file", "photo="+photo))
	var rec []map[string]any
	require.NoError(t, codec.Default.Unmarshal(h.out.Bytes(), &rec))
	require.Len(t, rec, 1)
	assert.Equal(t, "Civic", rec[0]["model"])
	assert.Equal(t, 1, h.fake.Len("vehicles"))
}

func TestDummiesNeedNoSession(t *testing.T) {
	h := newCLIHarness(t)

	require.NoError(t, h.run("--json", "list", "vehicles", "--dummy"))
	require.NoError(t, h.run("--json", "page", "vehicles", "--dummy", "--size", "2"))
	var page map[string]any
	require.NoError(t, codec.Default.Unmarshal(h.out.Bytes(), &page))
	results, _ := page["results"].([]any)
	assert.LessOrEqual(t, len(results), 2)
	assert.Zero(t, h.fake.Hits("GET", "vehicles"))
}

func TestMock(t *testing.T) {
	h := newCLIHarness(t)
	require.NoError(t, h.run("--json", "mock", "vehicles", "--count", "4", "--seed", "7"))
	var recs []map[string]any
	require.NoError(t, codec.Default.Unmarshal(h.out.Bytes(), &recs))
	assert.Len(t, recs, 4)
	for _, rec := range recs {
		assert.NotEmpty(t, rec["uuid"])
		assert.NotEmpty(t, rec["model"])
	}

	assert.Error(t, h.run("mock", "internal-companies"))
}

func TestColumns(t *testing.T) {
	cols := columns([]models.Record{{"name": "a", "id": 1}, {"city": "b"}})
	assert.Equal(t, []string{"id", "city", "name"}, cols)
	assert.Equal(t, `{"a":1}`, cell(map[string]any{"a": 1}))
	assert.Equal(t, "", cell(nil))
}
