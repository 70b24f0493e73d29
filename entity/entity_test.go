package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentPos(t *testing.T) {
	id := Ident{File: "ext/add.go", Line: 12}
	require.Equal(t, "ext/add.go:12", id.Pos())
	require.Equal(t, "", Ident{}.Pos())
}

func TestWrapperSymbol(t *testing.T) {
	f := &Function{UnaliasedName: "AddTwo"}
	require.Equal(t, "AddTwo_wrapper", f.WrapperSymbol())
}

func TestHasAttr(t *testing.T) {
	f := &Function{Attrs: []Attribute{Immutable, Strict}}
	require.True(t, f.HasAttr(Strict))
	require.False(t, f.HasAttr(Volatile))
}

func TestAttributeSQL(t *testing.T) {
	require.Equal(t, "STRICT", Strict.SQL())
	require.Equal(t, "PARALLEL SAFE", ParallelSafe.SQL())
	require.Equal(t, "", NoGuard.SQL())
}

func TestDeclaredMatches(t *testing.T) {
	d := Declared{Kind: DeclaredType, Name: "github.com/acme/ext.Point", SQL: "point2d"}
	require.True(t, d.Matches(DeclaredType, "github.com/acme/ext.Point"))
	require.True(t, d.Matches(DeclaredType, "Point"))
	require.True(t, d.Matches(DeclaredType, "point2d"))
	require.False(t, d.Matches(DeclaredEnum, "Point"))
	require.False(t, d.Matches(DeclaredType, "Joint"))
	require.Equal(t, "point2d", d.SQLName())

	bare := Declared{Kind: DeclaredEnum, Name: "github.com/acme/ext.Color"}
	require.Equal(t, "Color", bare.SQLName())
}

func TestControlDataSchemaPrefix(t *testing.T) {
	require.Equal(t, "", ControlData{Relocatable: true}.SchemaPrefix())
	require.Equal(t, "myext.", ControlData{Schema: "myext"}.SchemaPrefix())
	require.Equal(t, "", ControlData{}.SchemaPrefix())
}

func TestCompositeTypeID(t *testing.T) {
	ct := &CompositeType{
		Name:     "point2d",
		Mappings: []SQLMapping{{Go: "github.com/acme/ext.Point", SQL: "point2d"}},
	}
	require.True(t, ct.ID("github.com/acme/ext.Point"))
	require.False(t, ct.ID("github.com/acme/ext.Other"))
}
