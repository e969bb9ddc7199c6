package accounting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyCoversEveryKind(t *testing.T) {
	p := accounting.DefaultPolicy()
	require.NoError(t, p.Validate())
	for _, k := range accounting.Kinds {
		assert.Contains(t, p, k)
	}
	assert.Equal(t, accounting.Tracked{}, p[accounting.KindPackageCover])
	assert.Equal(t, accounting.LayoutSharedFolder, p[accounting.KindContactAvatar].(accounting.Live).Layout)
}

func TestParsePolicyOverlaysDefaults(t *testing.T) {
	raw := []byte(`
kinds:
  package_cover:
    source: live
    layout: file_per_record
    path: tenants/{tenant}/packages/{id}/cover.jpg
  portfolio_media:
    source: live
    layout: folder_per_record
    path: tenants/{tenant}/portfolio/{id}/
  offer_cover:
    source: tracked
`)
	p, err := accounting.ParsePolicy(raw)
	require.NoError(t, err)

	assert.Equal(t, accounting.Live{Layout: accounting.LayoutFilePerRecord, Path: "tenants/{tenant}/packages/{id}/cover.jpg"}, p[accounting.KindPackageCover])
	assert.Equal(t, accounting.LayoutFolderPerRecord, p[accounting.KindPortfolioMedia].(accounting.Live).Layout)
	assert.Equal(t, accounting.Tracked{}, p[accounting.KindOfferCover])
	assert.Equal(t, accounting.Tracked{}, p[accounting.KindCategoryMedia])
}

func TestParsePolicyRejects(t *testing.T) {
	tests := map[string]string{
		"unknown kind":            "kinds:\n  video_media:\n    source: tracked\n",
		"unknown source":          "kinds:\n  post_media:\n    source: guess\n",
		"unknown layout":          "kinds:\n  post_media:\n    source: live\n    layout: sharded\n",
		"shared folder no path":   "kinds:\n  post_media:\n    source: live\n    layout: shared_folder\n",
		"shared folder hierarchy": "kinds:\n  item_media:\n    source: live\n    layout: shared_folder\n    path: x/\n",
		"folder without id":       "kinds:\n  post_media:\n    source: live\n    layout: folder_per_record\n    path: tenants/{tenant}/posts/\n",
		"malformed":               "kinds: [",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := accounting.ParsePolicy([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kinds:\n  offer_media:\n    source: tracked\n"), 0o600))

	cfg := accounting.DefaultConfig()
	cfg.PolicyFile = path
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, accounting.Tracked{}, p[accounting.KindOfferMedia])

	cfg.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Policy()
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := accounting.ParseKind("offer_cover")
	require.NoError(t, err)
	assert.Equal(t, accounting.KindOfferCover, k)

	_, err = accounting.ParseKind("banner")
	assert.ErrorIs(t, err, accounting.ErrUnknownKind)
}
