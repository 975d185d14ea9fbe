package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.BuildMethod)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}

func TestGetVersionString(t *testing.T) {
	versionStr := GetVersionString()

	assert.Contains(t, versionStr, "admin-console")
	assert.Contains(t, versionStr, Version)
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()

	for _, field := range []string{"admin-console", "Git commit:", "Build method:", "Go version:", "Platform:"} {
		assert.Contains(t, detailed, field)
	}
}

func TestBuildMethodDetection(t *testing.T) {
	assert.Contains(t, []string{"make", "go-install", "unknown"}, getBuildMethod())
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "0123abcd", shortCommit("0123abcdef99"))
	assert.Equal(t, "abc", shortCommit("abc"))
}

func TestIsRelease(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	defer func() { Version, GitCommit = oldVersion, oldCommit }()

	Version, GitCommit = "1.2.0", "deadbeef"
	assert.True(t, IsRelease())
	assert.False(t, IsDevelopment())

	Version = "1.3.0-dev"
	assert.False(t, IsRelease())
	assert.True(t, IsDevelopment())
}
