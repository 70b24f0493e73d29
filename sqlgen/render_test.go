package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgmantle/pgmantle/entity"
)

func renderOne(t *testing.T, entities ...entity.Entity) string {
	t.Helper()
	g, err := Build(testControl(), entities)
	require.NoError(t, err)
	sql, err := g.SQL()
	require.NoError(t, err)
	return sql
}

func TestStrictInference(t *testing.T) {
	fn := simpleFn("AddTwo")
	sql := renderOne(t, fn)
	require.Contains(t, sql, "STRICT")

	// One optional argument suppresses the upgrade.
	opt := simpleFn("AddMaybe")
	opt.Args[1].Cardinality = entity.Optional
	opt.Args[1].Type.Optional = true
	sql = renderOne(t, opt)
	require.NotContains(t, sql, "STRICT")

	// An explicit STRICT stays put even with optional arguments.
	explicit := simpleFn("AddForced")
	explicit.Args[1].Cardinality = entity.Optional
	explicit.Attrs = []entity.Attribute{entity.Strict}
	sql = renderOne(t, explicit)
	require.Contains(t, sql, "STRICT")
}

func TestReturnShapeScalar(t *testing.T) {
	fn := simpleFn("One")
	sql := renderOne(t, fn)
	require.Contains(t, sql, "RETURNS integer")
	require.NotContains(t, sql, "SETOF")
	require.NotContains(t, sql, "TABLE")
}

func TestReturnShapeSetOf(t *testing.T) {
	fn := simpleFn("Many")
	fn.Return.Shape = entity.ReturnSetOf
	sql := renderOne(t, fn)
	require.Contains(t, sql, "RETURNS SETOF integer")
}

func TestReturnShapeTable(t *testing.T) {
	fn := simpleFn("Rows")
	fn.Return = entity.Return{
		Shape: entity.ReturnTable,
		Columns: []entity.Column{
			{Name: "a", Type: int32Ref()},
			{Name: "b", Type: textRef()},
		},
	}
	sql := renderOne(t, fn)
	require.Contains(t, sql, "RETURNS TABLE (a integer , b text\n)")
}

func TestReturnShapeVoidAndTrigger(t *testing.T) {
	fn := simpleFn("Fire")
	fn.Return = entity.Return{Shape: entity.ReturnNone}
	require.Contains(t, renderOne(t, fn), "RETURNS void")

	trig := simpleFn("OnInsert")
	trig.Return = entity.Return{Shape: entity.ReturnTrigger}
	require.Contains(t, renderOne(t, trig), "RETURNS trigger")
}

func TestArgumentRendering(t *testing.T) {
	fn := simpleFn("Fancy")
	fn.Args = []entity.Argument{
		{Name: "plain", Type: int32Ref()},
		{Name: "defaulted", Type: int32Ref(), Default: "42"},
		{Name: "rest", Type: textRef(), Cardinality: entity.Variadic},
	}
	sql := renderOne(t, fn)
	require.Contains(t, sql, `"plain" integer, /* int32 */`)
	require.Contains(t, sql, `"defaulted" integer DEFAULT 42, /* int32 */`)
	require.Contains(t, sql, `"rest" VARIADIC text /* string */`)
}

func TestHandleArgumentSkipped(t *testing.T) {
	fn := simpleFn("LowLevel")
	fn.Args = append(fn.Args, entity.Argument{
		Name:   "fci",
		Type:   entity.TypeRef{ID: "github.com/pgmantle/pgmantle/fcall.CallInfo", Name: "*fcall.CallInfo"},
		Handle: true,
	})
	sql := renderOne(t, fn)
	require.NotContains(t, sql, "fci")
	// The handle suppresses the strict upgrade; the host handle can
	// legitimately accompany null arguments.
	require.NotContains(t, sql, "STRICT")
}

func TestSearchPathRendering(t *testing.T) {
	fn := simpleFn("Scoped")
	fn.SearchPath = []string{"pg_catalog", "public"}
	require.Contains(t, renderOne(t, fn), "SET search_path TO pg_catalog, public\n")
}

func TestAttributeRendering(t *testing.T) {
	fn := simpleFn("Tuned")
	fn.Attrs = []entity.Attribute{entity.Immutable, entity.ParallelSafe}
	sql := renderOne(t, fn)
	require.Contains(t, sql, "IMMUTABLE PARALLEL SAFE STRICT")
}

func TestOperatorRendering(t *testing.T) {
	fn := simpleFn("PointEq")
	fn.Name = "point_eq"
	fn.Return = entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "bool", Name: "bool"}}
	fn.Operator = &entity.Operator{
		Name:       "=",
		Commutator: "=",
		Negator:    "<>",
		Restrict:   "eqsel",
		Join:       "eqjoinsel",
		Hashes:     true,
		Merges:     true,
	}
	sql := renderOne(t, fn)
	require.Contains(t, sql, "CREATE OPERATOR = (")
	require.Contains(t, sql, `PROCEDURE="point_eq"`)
	require.Contains(t, sql, "LEFTARG=integer,")
	require.Contains(t, sql, "RIGHTARG=integer,")
	require.Contains(t, sql, "COMMUTATOR = =")
	require.Contains(t, sql, "NEGATOR = <>")
	require.Contains(t, sql, "RESTRICT = eqsel")
	require.Contains(t, sql, "JOIN = eqjoinsel")
	require.Contains(t, sql, "HASHES")
	require.Contains(t, sql, "MERGES")
	// The operator statement follows the function statement.
	require.Less(t, strings.Index(sql, "CREATE FUNCTION"), strings.Index(sql, "CREATE OPERATOR"))
}

func TestEnumRendering(t *testing.T) {
	e := &entity.EnumType{
		Ident:    entity.Ident{FullPath: "github.com/acme/ext.Color", Module: "github.com/acme/ext", File: "ext/color.go", Line: 7},
		Name:     "color",
		Variants: []string{"red", "green", "blue"},
		Mappings: []entity.SQLMapping{{Go: "github.com/acme/ext.Color", SQL: "color"}},
	}
	sql := renderOne(t, e)
	require.Contains(t, sql, "CREATE TYPE color AS ENUM (\n\t'red',\n\t'green',\n\t'blue'\n);")
	require.Contains(t, sql, "-- ext/color.go:7")
}

func TestCompositeTypeRendering(t *testing.T) {
	inFn := simpleFn("PointIn")
	inFn.Name = "point2d_in"
	inFn.Args = []entity.Argument{{Name: "input", Type: entity.TypeRef{ID: "cstring", Name: "cstring"}}}
	inFn.Return = entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "github.com/acme/ext.Point", Name: "ext.Point"}}

	outFn := simpleFn("PointOut")
	outFn.Name = "point2d_out"
	outFn.Args = []entity.Argument{{Name: "input", Type: entity.TypeRef{ID: "github.com/acme/ext.Point", Name: "ext.Point"}}}
	outFn.Return = entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "cstring", Name: "cstring"}}

	typ := &entity.CompositeType{
		Ident:    entity.Ident{FullPath: "github.com/acme/ext.Point", Module: "github.com/acme/ext", File: "ext/point.go", Line: 3},
		Name:     "point2d",
		InFunc:   "github.com/acme/ext.PointIn",
		OutFunc:  "github.com/acme/ext.PointOut",
		Mappings: []entity.SQLMapping{{Go: "github.com/acme/ext.Point", SQL: "point2d"}},
	}
	sql := renderOne(t, typ, inFn, outFn,
		&entity.RawSQL{Name: "cstring_map", SQL: "-- cstring is built in",
			Creates: []entity.Declared{{Kind: entity.DeclaredType, Name: "cstring"}}})

	require.Contains(t, sql, "CREATE TYPE point2d;")
	require.Contains(t, sql, "INPUT = point2d_in")
	require.Contains(t, sql, "OUTPUT = point2d_out")
	require.Contains(t, sql, "INTERNALLENGTH = variable")
	// The in/out functions render once, inside the type block.
	require.Equal(t, 1, strings.Count(sql, `CREATE FUNCTION "point2d_in"`))
	require.Equal(t, 1, strings.Count(sql, `CREATE FUNCTION "point2d_out"`))
}

func TestAggregateRendering(t *testing.T) {
	sfunc := simpleFn("SumStep")
	sfunc.Name = "sum_step"
	agg := &entity.Aggregate{
		Ident:            entity.Ident{FullPath: "github.com/acme/ext.Sum", Module: "github.com/acme/ext", File: "ext/agg.go", Line: 4},
		Name:             "mysum",
		Args:             []entity.Argument{{Name: "value", Type: int32Ref()}},
		StateType:        int32Ref(),
		SFunc:            "sum_step",
		InitialCondition: "0",
		Parallel:         "SAFE",
	}
	sql := renderOne(t, agg, sfunc)
	require.Contains(t, sql, "CREATE AGGREGATE mysum (")
	require.Contains(t, sql, `SFUNC = "sum_step"`)
	require.Contains(t, sql, "STYPE = integer")
	require.Contains(t, sql, "INITCOND = '0'")
	require.Contains(t, sql, "PARALLEL = SAFE")
	require.Less(t, strings.Index(sql, `CREATE FUNCTION "sum_step"`), strings.Index(sql, "CREATE AGGREGATE"))
}

func TestNonRelocatableSchemaPrefix(t *testing.T) {
	control := entity.ControlData{
		Extension:      "pinned",
		ModulePathname: "$libdir/pinned",
		Schema:         "pinned",
	}
	g, err := Build(control, []entity.Entity{simpleFn("AddTwo")})
	require.NoError(t, err)
	sql, err := g.SQL()
	require.NoError(t, err)
	require.Contains(t, sql, `CREATE FUNCTION pinned."addtwo"(`)
}

func TestOrderingFamilyRendering(t *testing.T) {
	e := &entity.EnumType{
		Ident:    entity.Ident{FullPath: "github.com/acme/ext.Color", Module: "github.com/acme/ext", File: "ext/color.go", Line: 7},
		Name:     "color",
		Variants: []string{"red", "green"},
		Mappings: []entity.SQLMapping{{Go: "github.com/acme/ext.Color", SQL: "color"}},
	}
	fam := &entity.OrderingFamily{
		Ident:  entity.Ident{FullPath: "github.com/acme/ext.Color", Module: "github.com/acme/ext", File: "ext/color.go", Line: 7},
		Name:   "color",
		Target: entity.TypeRef{ID: "github.com/acme/ext.Color", Name: "Color"},
	}
	sql := renderOne(t, e, fam)
	require.Contains(t, sql, "CREATE OPERATOR FAMILY color_btree_ops USING btree;")
	require.Contains(t, sql, "CREATE OPERATOR CLASS color_btree_ops DEFAULT FOR TYPE color USING btree FAMILY color_btree_ops AS")
	require.Contains(t, sql, "OPERATOR 5 >,")
	require.Contains(t, sql, "FUNCTION 1 color_cmp(color, color);")
	// The class depends on its type, so the type's CREATE comes first.
	require.Less(t, strings.Index(sql, "CREATE TYPE color"), strings.Index(sql, "CREATE OPERATOR FAMILY"))
}

func TestHashFamilyRendering(t *testing.T) {
	e := &entity.EnumType{
		Ident:    entity.Ident{FullPath: "github.com/acme/ext.Color", Module: "github.com/acme/ext", File: "ext/color.go", Line: 7},
		Name:     "color",
		Variants: []string{"red", "green"},
		Mappings: []entity.SQLMapping{{Go: "github.com/acme/ext.Color", SQL: "color"}},
	}
	fam := &entity.HashFamily{
		Ident:  entity.Ident{FullPath: "github.com/acme/ext.Color", Module: "github.com/acme/ext", File: "ext/color.go", Line: 7},
		Name:   "color",
		Target: entity.TypeRef{ID: "github.com/acme/ext.Color", Name: "Color"},
	}
	sql := renderOne(t, e, fam)
	require.Contains(t, sql, "CREATE OPERATOR FAMILY color_hash_ops USING hash;")
	require.Contains(t, sql, "OPERATOR 1 = (color, color),")
	require.Contains(t, sql, "FUNCTION 1 color_hash(color);")
}

func TestFamilyUnresolvedTarget(t *testing.T) {
	fam := &entity.OrderingFamily{
		Ident:  entity.Ident{FullPath: "github.com/acme/ext.Ghost", Module: "github.com/acme/ext"},
		Name:   "ghost",
		Target: entity.TypeRef{ID: "github.com/acme/ext.Ghost", Name: "Ghost"},
	}
	_, err := Build(testControl(), []entity.Entity{fam})
	require.Error(t, err)
	require.ErrorContains(t, err, "ordering family")
}
