package pgmantle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleControl = `comment = 'an example extension'
default_version = '0.1.0'
module_pathname = '$libdir/example'
relocatable = false
superuser = false
schema = 'example'
`

func TestParseControlFile(t *testing.T) {
	cf, err := ParseControlFile("example", sampleControl)
	require.NoError(t, err)
	require.Equal(t, "example", cf.Extension)
	require.Equal(t, "an example extension", cf.Comment)
	require.Equal(t, "0.1.0", cf.DefaultVersion)
	require.Equal(t, "$libdir/example", cf.ModulePathname)
	require.False(t, cf.Relocatable)
	require.Equal(t, "example", cf.Schema)
	require.Equal(t, "example.", cf.SchemaPrefix())
}

func TestParseControlFileMissingField(t *testing.T) {
	_, err := ParseControlFile("example", "comment = 'x'\n")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidControl)
	require.Contains(t, err.Error(), "default_version")
}

func TestControlFileRelocatableSchema(t *testing.T) {
	cf := &ControlFile{Extension: "x", Relocatable: true, Schema: "public"}
	err := cf.Validate()
	require.ErrorIs(t, err, ErrInvalidControl)

	cf = &ControlFile{Extension: "x", Relocatable: true}
	require.NoError(t, cf.Validate())
	require.Equal(t, "", cf.SchemaPrefix())
}

func TestRenderHeader(t *testing.T) {
	header := RenderHeader()
	require.True(t, strings.HasPrefix(header, "/*\n"))
	require.True(t, strings.HasSuffix(header, "*/\n"))
	require.Contains(t, header, "auto generated by pgmantle")
}
