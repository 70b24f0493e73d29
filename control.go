package pgmantle

import (
	"os"
	"strings"
)

// ControlFile is the parsed form of an extension's .control file. It is
// the payload of the entity graph's root node: its schema and
// relocatability decide how generated statements are schema-qualified,
// and its module_pathname is substituted into every LANGUAGE c body.
type ControlFile struct {
	Extension      string // extension name, derived from the file name
	Comment        string
	DefaultVersion string
	ModulePathname string
	Relocatable    bool
	Superuser      bool
	Schema         string // optional; invalid together with Relocatable
}

// ParseControlFile parses the `key = 'value'` line format used by the
// host runtime. Lines that do not look like an assignment are skipped.
func ParseControlFile(name, content string) (*ControlFile, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		v = strings.TrimPrefix(v, "'")
		v = strings.TrimSuffix(v, "'")
		fields[strings.TrimSpace(k)] = v
	}
	cf := &ControlFile{Extension: name}
	for _, req := range []string{"comment", "default_version", "module_pathname", "relocatable", "superuser"} {
		if _, ok := fields[req]; !ok {
			return nil, &ControlError{Field: req, Message: "missing"}
		}
	}
	cf.Comment = fields["comment"]
	cf.DefaultVersion = fields["default_version"]
	cf.ModulePathname = fields["module_pathname"]
	cf.Relocatable = fields["relocatable"] == "true"
	cf.Superuser = fields["superuser"] == "true"
	cf.Schema = fields["schema"]
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

// LoadControlFile reads and parses a .control file from disk.
func LoadControlFile(path string) (*ControlFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".control")
	return ParseControlFile(name, string(data))
}

// Validate checks field consistency. A relocatable extension cannot pin
// a schema; the host rejects that combination at CREATE EXTENSION time,
// so it is caught here instead.
func (c *ControlFile) Validate() error {
	if c.Relocatable && c.Schema != "" {
		return &ControlError{Field: "schema", Message: "cannot be set for a relocatable extension"}
	}
	return nil
}

// SchemaPrefix returns the dotted prefix applied to unschematized
// entities. Relocatable extensions defer to the @extschema@ placeholder
// substituted by the host at install time.
func (c *ControlFile) SchemaPrefix() string {
	switch {
	case c.Relocatable:
		return ""
	case c.Schema != "":
		return c.Schema + "."
	default:
		return ""
	}
}

// RenderHeader renders the leading comment block of the generated SQL
// artifact.
func RenderHeader() string {
	return "/*\nThis file is auto generated by pgmantle.\n\n" +
		"The ordering of items is not stable, it is driven by a dependency graph.\n*/\n"
}
