package contracts

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, DataFormatVersion, info.DataFormat)
}

func TestVersionStrings(t *testing.T) {
	assert.Equal(t, "dataset v"+Version, GetVersionString("dataset"))

	full := GetFullVersionString("dataset")
	assert.True(t, strings.HasPrefix(full, GetVersionString("dataset")+" (built: "))
	assert.Contains(t, full, "table: "+DataFormatVersion)
}
