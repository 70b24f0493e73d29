package load

import (
	"go/parser"
	"go/token"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgmantle/pgmantle/entity"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func parse(t *testing.T, src string) ([]entity.Entity, error) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "ext.go", src, parser.ParseComments)
	require.NoError(t, err)
	return extractFile("github.com/acme/ext", fset, f)
}

func TestExtractFunction(t *testing.T) {
	ents, err := parse(t, `package ext

import "github.com/pgmantle/pgmantle/fcall"

//pgmantle:function name=add_pair schema=math immutable parallel_safe requires=setup,other.Thing
func AddPair(left int32, right *int32, extra ...string) int64 { return 0 }

//pgmantle:function no_guard
func RawPeek(d fcall.Datum) int32 { return 0 }
`)
	require.NoError(t, err)
	require.Len(t, ents, 2)

	fn, ok := ents[0].(*entity.Function)
	require.True(t, ok)
	require.Equal(t, "add_pair", fn.Name)
	require.Equal(t, "add_pair", fn.UnaliasedName)
	require.Equal(t, "math", fn.Schema)
	require.Equal(t, "github.com/acme/ext.AddPair", fn.FullPath)
	require.Equal(t, "add_pair_wrapper", fn.WrapperSymbol())
	require.True(t, fn.HasAttr(entity.Immutable))
	require.True(t, fn.HasAttr(entity.ParallelSafe))
	require.Equal(t, []entity.PositioningRef{{Name: "setup"}, {Path: "other.Thing"}}, fn.Requires)

	require.Len(t, fn.Args, 3)
	require.Equal(t, entity.Required, fn.Args[0].Cardinality)
	require.Equal(t, "int32", fn.Args[0].Type.ID)
	require.Equal(t, entity.Optional, fn.Args[1].Cardinality)
	require.True(t, fn.Args[1].Type.Optional)
	require.Equal(t, entity.Variadic, fn.Args[2].Cardinality)
	require.Equal(t, "string", fn.Args[2].Type.ID)

	require.Equal(t, entity.ReturnScalar, fn.Return.Shape)
	require.Equal(t, "int64", fn.Return.Type.ID)

	raw := ents[1].(*entity.Function)
	require.True(t, raw.Args[0].Raw)
	require.True(t, raw.HasAttr(entity.NoGuard))
}

func TestExtractHandleMustBeLast(t *testing.T) {
	_, err := parse(t, `package ext

import "github.com/pgmantle/pgmantle/fcall"

//pgmantle:function
func Bad(fci *fcall.CallInfo, n int32) int32 { return 0 }
`)
	require.ErrorContains(t, err, `handle argument "fci" must be declared last`)

	ents, err := parse(t, `package ext

import "github.com/pgmantle/pgmantle/fcall"

//pgmantle:function
func Good(n int32, fci *fcall.CallInfo) int32 { return 0 }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.True(t, fn.Args[1].Handle)
}

func TestExtractSetOfReturn(t *testing.T) {
	ents, err := parse(t, `package ext

import "iter"

//pgmantle:function
func Evens(limit int32) iter.Seq[int32] { return nil }

//pgmantle:function
func MaybeEvens(limit int32) *iter.Seq[int32] { return nil }
`)
	require.NoError(t, err)

	fn := ents[0].(*entity.Function)
	require.Equal(t, entity.ReturnSetOf, fn.Return.Shape)
	require.Equal(t, "int32", fn.Return.Type.ID)
	require.False(t, fn.Return.Optional)

	opt := ents[1].(*entity.Function)
	require.Equal(t, entity.ReturnSetOf, opt.Return.Shape)
	require.True(t, opt.Return.Optional)
}

func TestExtractTableReturn(t *testing.T) {
	ents, err := parse(t, `package ext

import "iter"

type accountRow struct {
	ID      int64
	Balance *float64
}

//pgmantle:function
func Accounts() iter.Seq[accountRow] { return nil }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.Equal(t, entity.ReturnTable, fn.Return.Shape)
	require.Len(t, fn.Return.Columns, 2)
	require.Equal(t, "id", fn.Return.Columns[0].Name)
	require.Equal(t, "int64", fn.Return.Columns[0].Type.ID)
	require.False(t, fn.Return.Columns[0].Type.Optional)
	require.Equal(t, "balance", fn.Return.Columns[1].Name)
	require.True(t, fn.Return.Columns[1].Type.Optional)
}

func TestExtractTrailingErrorIgnored(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:function
func Fetch(key string) (string, error) { return "", nil }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.Equal(t, entity.ReturnScalar, fn.Return.Shape)
	require.Equal(t, "string", fn.Return.Type.ID)
}

func TestExtractTrigger(t *testing.T) {
	ents, err := parse(t, `package ext

import "github.com/pgmantle/pgmantle/fcall"

//pgmantle:trigger
func AuditRow(fci *fcall.CallInfo) fcall.TriggerResult { return fcall.TriggerResult{} }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.Equal(t, entity.ReturnTrigger, fn.Return.Shape)
}

func TestExtractOperator(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:function
//pgmantle:operator name=== commutator=== negator=<> restrict=eqsel join=eqjoinsel hashes
func ColorEq(a string, b string) bool { return a == b }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.NotNil(t, fn.Operator)
	require.Equal(t, "==", fn.Operator.Name)
	require.Equal(t, "<>", fn.Operator.Negator)
	require.Equal(t, "eqsel", fn.Operator.Restrict)
	require.True(t, fn.Operator.Hashes)
	require.False(t, fn.Operator.Merges)
}

func TestExtractEnum(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:enum
type Color string

const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)
`)
	require.NoError(t, err)
	e := ents[0].(*entity.EnumType)
	require.Equal(t, "color", e.Name)
	require.Equal(t, []string{"red", "green", "blue"}, e.Variants)
	require.True(t, e.ID("github.com/acme/ext.Color"))
}

func TestExtractEnumWithoutConstants(t *testing.T) {
	_, err := parse(t, `package ext

//pgmantle:enum
type Color string
`)
	require.ErrorContains(t, err, "no typed constants")
}

func TestExtractCompositeType(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:type in=PointIn out=PointOut
type Point struct{ X, Y float64 }
`)
	require.NoError(t, err)
	ct := ents[0].(*entity.CompositeType)
	require.Equal(t, "point", ct.Name)
	require.Equal(t, "github.com/acme/ext.PointIn", ct.InFunc)
	require.Equal(t, "github.com/acme/ext.PointOut", ct.OutFunc)
	require.True(t, ct.ID("github.com/acme/ext.Point"))
}

func TestExtractRawSQL(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:sql bootstrap name=setup creates=type:ext.Handle,enum:mood before=ext.AddPair
const setupSQL = "CREATE TYPE handle;"
`)
	require.NoError(t, err)
	raw := ents[0].(*entity.RawSQL)
	require.Equal(t, "setup", raw.Name)
	require.Equal(t, "CREATE TYPE handle;", raw.SQL)
	require.True(t, raw.Bootstrap)
	require.False(t, raw.Finalize)
	require.Equal(t, []entity.PositioningRef{{Path: "ext.AddPair"}}, raw.Before)
	require.Len(t, raw.Creates, 2)
	require.Equal(t, entity.DeclaredType, raw.Creates[0].Kind)
	require.Equal(t, "ext.Handle", raw.Creates[0].Name)
	require.Equal(t, entity.DeclaredEnum, raw.Creates[1].Kind)
}

func TestExtractSchema(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:schema payroll

var keep = 1
`)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	s := ents[0].(*entity.Schema)
	require.Equal(t, "payroll", s.Name)
	require.Equal(t, "github.com/acme/ext", s.Module)
}

func TestExtractAggregate(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:aggregate name=avg_weight sfunc=avg_weight_step stype=internal finalfunc=avg_weight_final parallel=safe
type AvgWeight struct {
	Weight float64
}
`)
	require.NoError(t, err)
	agg := ents[0].(*entity.Aggregate)
	require.Equal(t, "avg_weight", agg.Name)
	require.Equal(t, "avg_weight_step", agg.SFunc)
	require.Equal(t, "avg_weight_final", agg.FinalFunc)
	require.Equal(t, "SAFE", agg.Parallel)
	require.Len(t, agg.Args, 1)
	require.Equal(t, "weight", agg.Args[0].Name)
}

func TestExtractDefaults(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:function default.greeting='hello'
func Greet(greeting string) string { return greeting }
`)
	require.NoError(t, err)
	fn := ents[0].(*entity.Function)
	require.Equal(t, "'hello'", fn.Args[0].Default)
}

func TestParseDirectiveMalformedOption(t *testing.T) {
	_, _, err := parseDirective("//pgmantle:function =broken")
	require.Error(t, err)
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := `package ext

//pgmantle:function
func Touch(n int32) int32 { return n }
`
	srcFile := dir + "/ext.go"
	writeFile(t, srcFile, src)

	cache := newExtractCache(dir + "/cache")
	ents, err := parse(t, src)
	require.NoError(t, err)
	cache.put("github.com/acme/ext", srcFile, ents)

	got, ok := cache.get("github.com/acme/ext", srcFile)
	require.True(t, ok)
	require.Len(t, got, 1)
	fn := got[0].(*entity.Function)
	require.Equal(t, "touch", fn.Name)
	require.Equal(t, entity.ReturnScalar, fn.Return.Shape)
}

func TestCacheMissOnChangedContent(t *testing.T) {
	dir := t.TempDir()
	srcFile := dir + "/ext.go"
	writeFile(t, srcFile, "package ext\n")

	cache := newExtractCache(dir + "/cache")
	cache.put("github.com/acme/ext", srcFile, nil)
	_, ok := cache.get("github.com/acme/ext", srcFile)
	require.True(t, ok)

	writeFile(t, srcFile, "package ext // changed\n")
	_, ok = cache.get("github.com/acme/ext", srcFile)
	require.False(t, ok)
}

func TestCacheMissOnDifferentPackagePath(t *testing.T) {
	dir := t.TempDir()
	srcFile := dir + "/ext.go"
	writeFile(t, srcFile, "package ext\n")

	cache := newExtractCache(dir + "/cache")
	cache.put("github.com/acme/ext", srcFile, nil)

	// Identical bytes vended under another import path carry a
	// different package identity and must be re-extracted.
	_, ok := cache.get("github.com/other/ext", srcFile)
	require.False(t, ok)

	_, ok = cache.get("github.com/acme/ext", srcFile)
	require.True(t, ok)
}

func TestExtractOperatorFamilies(t *testing.T) {
	ents, err := parse(t, `package ext

//pgmantle:enum
//pgmantle:ord
//pgmantle:hash
type Color string

const ColorRed Color = "red"
`)
	require.NoError(t, err)
	require.Len(t, ents, 3)

	ord, ok := ents[1].(*entity.OrderingFamily)
	require.True(t, ok)
	require.Equal(t, "color", ord.Name)
	require.Equal(t, "github.com/acme/ext.Color", ord.Target.ID)
	require.Equal(t, "github.com/acme/ext.Color", ord.FullPath)

	hash, ok := ents[2].(*entity.HashFamily)
	require.True(t, ok)
	require.Equal(t, "color", hash.Name)
	require.Equal(t, "github.com/acme/ext.Color", hash.Target.ID)
}

func TestExtractOrdOnFunctionIsAnError(t *testing.T) {
	_, err := parse(t, `package ext

//pgmantle:ord
var notAType int
`)
	require.ErrorContains(t, err, "annotate a single type declaration")
}
