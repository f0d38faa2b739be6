// Package version checks for newer melodeck releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/network"
	"github.com/melodeck/melodeck/util"
	"github.com/melodeck/melodeck/where"
	"github.com/metafates/gache"
)

// ReleasesURL is the GitHub API endpoint of the latest release.
var ReleasesURL = "https://api.github.com/repos/melodeck/melodeck/releases/latest"

var versionCacher = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   time.Hour * 24 * 2,
	FileSystem: &filesystem.GacheFs{},
})

// Latest returns the newest released version without the "v" prefix. Results are cached for two days.
func Latest(ctx context.Context) (string, error) {
	ver, expired, err := versionCacher.Get()
	if err != nil {
		return "", err
	}

	if !expired && ver != "" {
		return ver, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ReleasesURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", constant.App+"/"+constant.Version)

	resp, err := network.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("releases: unexpected status %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}

	if release.TagName == "" {
		return "", fmt.Errorf("releases: empty tag name")
	}

	ver = strings.TrimPrefix(release.TagName, "v")
	_ = versionCacher.Set(ver)
	return ver, nil
}
