package site

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testConfig = `
rps: 1
clientTimeout: 10s
targets:
  - name: silver-bars
    url: https://www.silver.com/silver-bars/
  - name: eagles
    query: silver eagle
excludeURLs:
  - "*proof*"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "site-config")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "site.yaml")
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, testConfig))
	assert.NoError(t, err)

	// explicit values survive
	assert.Equal(t, 1.0, c.RPS)
	assert.Equal(t, 10*time.Second, c.ClientTimeout.Duration())
	assert.Len(t, c.Targets, 2)

	// defaults are filled in
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultSearchSpringSiteID, c.SearchSpringSiteID)
	assert.Equal(t, DefaultBurst, c.Burst)

	tgt, ok := c.FindTarget("eagles")
	assert.True(t, ok)
	assert.Equal(t, "silver eagle", tgt.Query)
	_, ok = c.FindTarget("nope")
	assert.False(t, ok)
}

func TestLoadRejectsBadTargets(t *testing.T) {
	for _, bad := range []string{
		"targets:\n  - url: https://www.silver.com/silver-bars/\n",
		"targets:\n  - name: t\n",
		"targets:\n  - name: t\n    url: x\n    query: y\n",
		"targets:\n  - name: t\n    url: x\n  - name: t\n    url: y\n",
	} {
		_, err := Load(writeConfig(t, bad))
		assert.Error(t, err, "config %q should not load", bad)
	}
}

func TestAllowURL(t *testing.T) {
	c := Config{
		IncludeURLs: []string{"https://www.silver.com/*silver*"},
		ExcludeURLs: []string{"*proof*"},
	}
	assert.True(t, c.AllowURL("https://www.silver.com/1-oz-silver-bar"))
	assert.False(t, c.AllowURL("https://www.silver.com/1-oz-gold-bar"))
	assert.False(t, c.AllowURL("https://www.silver.com/proof-silver-eagle"))

	// no patterns means everything goes
	assert.True(t, Config{}.AllowURL("https://www.silver.com/anything"))
}
