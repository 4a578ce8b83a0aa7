package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/berylliumsec/eclipse-go/report"
)

// Version is the released version of the tool.
const Version = "0.3.0"

const latestReleaseURL = "https://api.github.com/repos/berylliumsec/eclipse-go/releases/latest"

// checkLatestVersion compares the running version against the latest
// published release and prints a notice when a newer one exists. Every
// failure path is silent-but-logged; an update check never blocks a scan.
func checkLatestVersion(online bool) {
	if !online {
		return
	}
	report.Successf("Installed version: %s", Version)

	latest, err := latestReleaseVersion()
	if err != nil {
		report.Errorf("Failed to get latest version information: %v", err)
		return
	}

	if latest > Version {
		report.Warnf("A newer version (%s) of eclipse is available. Please consider updating to access the latest features!", latest)
	}
}

// latestReleaseVersion fetches the tag of the most recent release.
func latestReleaseVersion() (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(latestReleaseURL)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}
