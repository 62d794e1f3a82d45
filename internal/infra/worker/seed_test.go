package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/infra/worker"
)

type seedRepo struct {
	existing map[string]*entity.Source
	created  []*entity.Source
	getErr   error // returned from GetByURL when set
}

func (r *seedRepo) Get(_ context.Context, _ int64) (*entity.Source, error) { return nil, nil }
func (r *seedRepo) GetByURL(_ context.Context, url string) (*entity.Source, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if src, ok := r.existing[url]; ok {
		return src, nil
	}
	return nil, entity.ErrNotFound
}
func (r *seedRepo) ListActive(_ context.Context) ([]*entity.Source, error) { return nil, nil }
func (r *seedRepo) ListDue(_ context.Context, _ time.Time) ([]*entity.Source, error) {
	return nil, nil
}
func (r *seedRepo) UpdateCheckState(_ context.Context, _ int64, _ string, _ time.Time) error {
	return nil
}
func (r *seedRepo) Create(_ context.Context, source *entity.Source) error {
	source.ID = int64(len(r.created) + 1)
	r.created = append(r.created, source)
	return nil
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const seedYAML = `sources:
  - jurisdiction_id: CA
    jurisdiction_name: California
    source_type: rss
    url: https://film.ca.gov/feed/
    check_interval_seconds: 3600
  - jurisdiction_id: NY
    jurisdiction_name: New York
    source_type: webpage
    url: https://esd.ny.gov/incentives
    check_interval_seconds: 7200
    active: false
`

func TestSeedSources_CreatesMissing(t *testing.T) {
	repo := &seedRepo{}
	path := writeSeedFile(t, seedYAML)

	err := worker.SeedSources(context.Background(), path, repo, discardLogger())
	require.NoError(t, err)

	require.Len(t, repo.created, 2)
	assert.Equal(t, "CA", repo.created[0].JurisdictionID)
	assert.Equal(t, entity.SourceTypeRSS, repo.created[0].SourceType)
	assert.True(t, repo.created[0].Active, "active defaults to true")
	assert.False(t, repo.created[1].Active, "explicit active: false preserved")
}

func TestSeedSources_SkipsExisting(t *testing.T) {
	repo := &seedRepo{existing: map[string]*entity.Source{
		"https://film.ca.gov/feed/": {ID: 1, URL: "https://film.ca.gov/feed/"},
	}}
	path := writeSeedFile(t, seedYAML)

	err := worker.SeedSources(context.Background(), path, repo, discardLogger())
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "https://esd.ny.gov/incentives", repo.created[0].URL)
}

func TestSeedSources_SkipsInvalidEntries(t *testing.T) {
	repo := &seedRepo{}
	path := writeSeedFile(t, `sources:
  - jurisdiction_id: CA
    jurisdiction_name: California
    source_type: carrier-pigeon
    url: https://film.ca.gov/feed/
    check_interval_seconds: 3600
  - jurisdiction_id: NY
    jurisdiction_name: New York
    source_type: api
    url: https://api.ny.gov/incentives
    check_interval_seconds: 900
`)

	err := worker.SeedSources(context.Background(), path, repo, discardLogger())
	require.NoError(t, err, "invalid entries are skipped, not fatal")

	require.Len(t, repo.created, 1)
	assert.Equal(t, entity.SourceTypeAPI, repo.created[0].SourceType)
}

func TestSeedSources_MissingFile(t *testing.T) {
	err := worker.SeedSources(context.Background(), "/nonexistent/sources.yaml", &seedRepo{}, discardLogger())
	assert.Error(t, err)
}

func TestSeedSources_MalformedYAML(t *testing.T) {
	path := writeSeedFile(t, "sources: [unclosed")
	err := worker.SeedSources(context.Background(), path, &seedRepo{}, discardLogger())
	assert.Error(t, err)
}

func TestSeedSources_LookupErrorAborts(t *testing.T) {
	repo := &seedRepo{getErr: errors.New("connection refused")}
	path := writeSeedFile(t, seedYAML)

	err := worker.SeedSources(context.Background(), path, repo, discardLogger())
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, repo.created, "no sources may be created after a failed lookup")
}
