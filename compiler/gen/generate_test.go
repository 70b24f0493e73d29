package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgmantle/pgmantle/entity"
)

func scalarFn() *entity.Function {
	return &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.AddPair", Module: "github.com/acme/ext"},
		GoName:        "AddPair",
		Name:          "add_pair",
		UnaliasedName: "add_pair",
		Args: []entity.Argument{
			{Name: "left", Type: entity.TypeRef{ID: "int32", Name: "int32"}},
			{Name: "right", Type: entity.TypeRef{ID: "int32", Name: "int32", Optional: true}, Cardinality: entity.Optional},
		},
		Return: entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "int64", Name: "int64"}},
	}
}

func render(t *testing.T, fns ...*entity.Function) string {
	t.Helper()
	ents := make([]entity.Entity, len(fns))
	for i, fn := range fns {
		ents[i] = fn
	}
	src, err := New("github.com/acme/ext", "ext").Render(ents)
	require.NoError(t, err)
	return src
}

func TestWrapperScalar(t *testing.T) {
	src := render(t, scalarFn())
	require.Contains(t, src, "//export add_pair_wrapper")
	require.Contains(t, src, "func add_pair_wrapper(fci *fcall.CallInfo) fcall.Datum")
	require.Contains(t, src, `v0 := fcall.Arg[int32](fci, 0, "left")`)
	require.Contains(t, src, `v1 := fcall.OptArg[int32](fci, 1, "right")`)
	require.Contains(t, src, "v := AddPair(v0, v1)")
	require.Contains(t, src, "return fcall.Return(fci, v)")
	require.Contains(t, src, "fcall.Guard(func() fcall.Datum")
	require.Contains(t, src, "Code generated by pgmantle. DO NOT EDIT.")
}

func TestWrapperNoGuard(t *testing.T) {
	fn := scalarFn()
	fn.Attrs = []entity.Attribute{entity.NoGuard}
	src := render(t, fn)
	require.NotContains(t, src, "fcall.Guard")
}

func TestWrapperReturnedError(t *testing.T) {
	fn := scalarFn()
	fn.ReturnsError = true
	src := render(t, fn)
	require.Contains(t, src, "v, cerr := AddPair(v0, v1)")
	require.Contains(t, src, `fcall.Fatalf("add_pair: %v", cerr)`)
}

func TestWrapperVariadicAndRaw(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.Concat"},
		GoName:        "Concat",
		Name:          "concat",
		UnaliasedName: "concat",
		Args: []entity.Argument{
			{Name: "blob", Type: entity.TypeRef{ID: "github.com/pgmantle/pgmantle/fcall.Datum"}, Raw: true},
			{Name: "parts", Type: entity.TypeRef{ID: "string"}, Cardinality: entity.Variadic},
		},
		Return: entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "string"}},
	}
	src := render(t, fn)
	require.Contains(t, src, "v0 := fcall.RawArg(fci, 0).Value")
	require.Contains(t, src, `v1 := fcall.VarArg[string](fci, 1, "parts")`)
	require.Contains(t, src, "Concat(v0, v1...)")
}

func TestWrapperHandlePassThrough(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.Inspect"},
		GoName:        "Inspect",
		Name:          "inspect",
		UnaliasedName: "inspect",
		Args: []entity.Argument{
			{Name: "n", Type: entity.TypeRef{ID: "int32"}},
			{Name: "fci", Type: entity.TypeRef{ID: "github.com/pgmantle/pgmantle/fcall.CallInfo"}, Handle: true},
		},
		Return: entity.Return{Shape: entity.ReturnScalar, Type: entity.TypeRef{ID: "int32"}},
	}
	src := render(t, fn)
	require.Contains(t, src, "Inspect(v0, fci)")
	// The handle occupies no call slot.
	require.Contains(t, src, `fcall.Arg[int32](fci, 0, "n")`)
}

func TestWrapperVoid(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.Poke"},
		GoName:        "Poke",
		Name:          "poke",
		UnaliasedName: "poke",
		Return:        entity.Return{Shape: entity.ReturnNone},
	}
	src := render(t, fn)
	require.Contains(t, src, "Poke()")
	require.Contains(t, src, "return fcall.ReturnNullDatum(fci)")
}

func TestWrapperSetOf(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.Evens"},
		GoName:        "Evens",
		Name:          "evens",
		UnaliasedName: "evens",
		Args: []entity.Argument{
			{Name: "limit", Type: entity.TypeRef{ID: "int32"}},
		},
		Return: entity.Return{Shape: entity.ReturnSetOf, Type: entity.TypeRef{ID: "int32"}},
	}
	src := render(t, fn)
	require.Contains(t, src, "fcall.SetOfNext(fci, func(mc *fcall.Region) (iter.Seq[int32], bool)")
	// Argument decoding happens inside the first-call setup closure.
	require.Contains(t, src, `v0 := fcall.Arg[int32](fci, 0, "limit")`)
	require.Contains(t, src, "seq := Evens(v0)")
	require.Contains(t, src, "fci.NoMoreRows = !more")
	require.Contains(t, src, "return fcall.ReturnNullDatum(fci)")
}

func TestWrapperOptionalSetOf(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.MaybeEvens"},
		GoName:        "MaybeEvens",
		Name:          "maybe_evens",
		UnaliasedName: "maybe_evens",
		Return:        entity.Return{Shape: entity.ReturnSetOf, Type: entity.TypeRef{ID: "int32"}, Optional: true},
	}
	src := render(t, fn)
	require.Contains(t, src, "if seq == nil")
	require.Contains(t, src, "return nil, false")
	require.Contains(t, src, "return *seq, true")
}

func TestWrapperTable(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.Accounts"},
		GoName:        "Accounts",
		Name:          "accounts",
		UnaliasedName: "accounts",
		Return: entity.Return{
			Shape:   entity.ReturnTable,
			RowType: entity.TypeRef{ID: "github.com/acme/ext.accountRow", Name: "accountRow"},
			Columns: []entity.Column{
				{Name: "id", GoName: "ID", Type: entity.TypeRef{ID: "int64"}},
				{Name: "balance", GoName: "Balance", Type: entity.TypeRef{ID: "float64", Optional: true}},
			},
		},
	}
	src := render(t, fn)
	require.Contains(t, src, "fcall.TableNext(fci, func(mc *fcall.Region) (iter.Seq[accountRow], bool)")
	require.Contains(t, src, "row := make(fcall.Row, 2)")
	require.Contains(t, src, "row[0].Value = fcall.DatumOf(r, v.ID)")
	require.Contains(t, src, "if v.Balance == nil")
	require.Contains(t, src, "row[1].IsNull = true")
	require.Contains(t, src, "row[1].Value = fcall.DatumOf(r, *v.Balance)")
	require.Contains(t, src, "return fcall.ReturnRow(fci, row)")
}

func TestWrapperTrigger(t *testing.T) {
	fn := &entity.Function{
		Ident:         entity.Ident{FullPath: "github.com/acme/ext.AuditRow"},
		GoName:        "AuditRow",
		Name:          "audit_row",
		UnaliasedName: "audit_row",
		Args: []entity.Argument{
			{Name: "fci", Type: entity.TypeRef{ID: "github.com/pgmantle/pgmantle/fcall.CallInfo"}, Handle: true},
		},
		Return: entity.Return{Shape: entity.ReturnTrigger},
	}
	src := render(t, fn)
	require.Contains(t, src, "v := AuditRow(fci)")
	require.Contains(t, src, "return fcall.ReturnTrigger(fci, v)")
}

func TestManifest(t *testing.T) {
	fn := scalarFn()
	buf, err := Manifest([]entity.Entity{fn})
	require.NoError(t, err)
	out := string(buf)
	require.Contains(t, out, "symbol: add_pair_wrapper")
	require.Contains(t, out, "function: github.com/acme/ext.AddPair")
	require.Contains(t, out, "sql_name: add_pair")
	require.Contains(t, out, "shape: scalar")
}

func TestRenderDeterminism(t *testing.T) {
	a := render(t, scalarFn())
	b := render(t, scalarFn())
	require.Equal(t, a, b)
}
