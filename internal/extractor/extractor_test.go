package extractor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/export"
	"github.com/shamash-tools/shamash/internal/facts"
)

func testLogger() hclog.Logger { return hclog.NewNullLogger() }

func sampleIndex() *facts.Index {
	index := facts.NewIndex()
	index.Classes = []facts.ClassFact{
		{
			FqName:     "com.acme.A",
			Package:    "com.acme",
			SimpleName: "A",
			Visibility: facts.VisibilityPublic,
			Location:   facts.Location{SourceFile: "src/A.java"},
		},
		{
			FqName:     "com.acme.B",
			Package:    "com.acme",
			SimpleName: "B",
			Visibility: facts.VisibilityPublic,
			Location:   facts.Location{SourceFile: "src/B.java"},
		},
	}
	index.Methods = []facts.MethodFact{
		{Owner: "com.acme.A", Name: "run", Descriptor: "()V", Visibility: facts.VisibilityPublic},
	}
	index.Fields = []facts.FieldFact{
		{Owner: "com.acme.B", Name: "count", Descriptor: "I", Visibility: facts.VisibilityPrivate},
	}
	index.Dependencies = []facts.DependencyFact{
		{From: "com.acme.A", To: "com.acme.B", Kind: facts.KindFieldType, Detail: "count"},
	}
	index.Normalize()
	return index
}

func writeFactsFile(t *testing.T, dir, name string, index *facts.Index, gzipped bool) string {
	t.Helper()
	var buf bytes.Buffer
	sw := export.NewStreamWriter("shamash", "test", "acme", gzipped)
	require.NoError(t, sw.Write(&buf, index))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestStreamRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		gzipped bool
	}{
		{"plain", false},
		{"gzip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			original := sampleIndex()
			path := writeFactsFile(t, dir, "app.facts", original, tt.gzipped)

			ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
			result, err := ex.Extract(context.Background())
			require.NoError(t, err)
			require.Empty(t, result.Errors)

			assert.Equal(t, original.Classes, result.Index.Classes)
			assert.Equal(t, original.Methods, result.Index.Methods)
			assert.Equal(t, original.Fields, result.Index.Fields)
			assert.Equal(t, original.Dependencies, result.Index.Dependencies)
		})
	}
}

func TestExtractIsolatesBadUnit(t *testing.T) {
	dir := t.TempDir()
	good := writeFactsFile(t, dir, "good.facts", sampleIndex(), false)
	bad := filepath.Join(dir, "bad.facts")
	require.NoError(t, os.WriteFile(bad, []byte("this is not a stream\n"), 0o644))

	ex := New(NewFileProvider([]string{good, bad}), NewStreamDecoder(), 0, testLogger())
	result, err := ex.Extract(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Index.Classes, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "decode", result.Errors[0].Phase)
	assert.Equal(t, filepath.ToSlash(bad), result.Errors[0].File)
}

func TestDecodeRejectsMissingMeta(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nometa.facts")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"record":"class","class":{"fq_name":"com.acme.A","package":"com.acme","simple_name":"A","visibility":"PUBLIC"}}`+"\n"),
		0o644))

	ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
	result, err := ex.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "expected meta record")
}

func TestDecodeRejectsWrongSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.facts")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"record":"meta","meta":{"schemaId":"other.schema","schemaVersion":1}}`+"\n"),
		0o644))

	ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
	result, err := ex.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "unsupported schema")
}

func TestDecodeRejectsEmptyStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.facts")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
	result, err := ex.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "no meta record")
}

func TestExtractClassLimit(t *testing.T) {
	dir := t.TempDir()
	first := writeFactsFile(t, dir, "a.facts", sampleIndex(), false)
	second := writeFactsFile(t, dir, "b.facts", sampleIndex(), false)

	ex := New(NewFileProvider([]string{first, second}), NewStreamDecoder(), 2, testLogger())
	result, err := ex.Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "limit", result.Errors[0].Phase)
	assert.Len(t, result.Index.Classes, 2)
}

func TestExtractCachesUnchangedUnits(t *testing.T) {
	dir := t.TempDir()
	path := writeFactsFile(t, dir, "app.facts", sampleIndex(), false)

	ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
	first, err := ex.Extract(context.Background())
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := ex.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, first.Index.Classes, second.Index.Classes)
}

func TestExtractHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	path := writeFactsFile(t, dir, "app.facts", sampleIndex(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := New(NewFileProvider([]string{path}), NewStreamDecoder(), 0, testLogger())
	_, err := ex.Extract(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileProviderReportsMissingFiles(t *testing.T) {
	provider := NewFileProvider([]string{filepath.Join(t.TempDir(), "absent.facts")})
	units, errs, err := provider.Units(context.Background())
	require.NoError(t, err)
	assert.Empty(t, units)
	require.Len(t, errs, 1)
	assert.Equal(t, "stat", errs[0].Phase)
}

func TestFSProviderSelection(t *testing.T) {
	dir := t.TempDir()
	index := sampleIndex()
	writeFactsFile(t, dir, "app.facts", index, false)
	writeFactsFile(t, dir, "app.ndjson", index, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skip"), 0o755))
	writeFactsFile(t, filepath.Join(dir, "skip"), "nested.facts", index, false)

	provider := NewFSProvider(config.Project{
		BasePath:      dir,
		BytecodeRoots: []string{"."},
		Exclude:       []string{"skip/**"},
	})
	units, errs, err := provider.Units(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	var ids []string
	for _, u := range units {
		ids = append(ids, u.ID())
	}
	assert.Equal(t, []string{"app.facts", "app.ndjson"}, ids)
}

func TestFSProviderIncludeGlobs(t *testing.T) {
	dir := t.TempDir()
	index := sampleIndex()
	writeFactsFile(t, dir, "app.facts", index, false)
	writeFactsFile(t, dir, "other.stream", index, false)

	provider := NewFSProvider(config.Project{
		BasePath:      dir,
		BytecodeRoots: []string{"."},
		Include:       []string{"*.stream"},
	})
	units, _, err := provider.Units(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "other.stream", units[0].ID())
}

func TestFSProviderSizeLimit(t *testing.T) {
	dir := t.TempDir()
	writeFactsFile(t, dir, "app.facts", sampleIndex(), false)
	tiny := int64(4)

	provider := NewFSProvider(config.Project{
		BasePath:      dir,
		BytecodeRoots: []string{"."},
		MaxClassBytes: &tiny,
	})
	units, errs, err := provider.Units(context.Background())
	require.NoError(t, err)
	assert.Empty(t, units)
	require.Len(t, errs, 1)
	assert.Equal(t, "limit", errs[0].Phase)
}
