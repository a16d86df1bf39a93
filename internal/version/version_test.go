package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v0.3.0", GitSHA: "a1b2c3d4e5f6", BuildTime: "2026-01-02T15:04:05Z"}
	assert.Equal(t, "roiqp v0.3.0 (a1b2c3d, 2026-01-02T15:04:05Z)", info.String())

	info.GitSHA = "abc"
	assert.Equal(t, "roiqp v0.3.0 (abc, 2026-01-02T15:04:05Z)", info.String())
}
