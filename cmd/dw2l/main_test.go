package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dw2tools/dw2file/dw2l"
)

// writeLevel writes a small level to a temporary file and returns its path
// and bytes. Chunks: 0 STRS, 1 GEOM, 2 ENTS, 3 LAYT, 4 FLOR, 5 opaque.
func writeLevel(t *testing.T) (string, []byte) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	names := &dw2l.StringTable{}
	_, err := names.AppendText("Dungeon 1F")
	require.NoError(t, err)

	plan := dw2l.NewGeometry(3, 2)
	copy(plan.Tiles, []byte{0x01, 0x02, 0x03, 0x0A, 0x0B, 0xFF})

	floor := &dw2l.Floor{Name: dw2l.StringRef{Table: 0, Entry: 0}}
	for i := range floor.Layouts {
		floor.Layouts[i] = 3
	}

	l := dw2l.NewLevel()
	for _, p := range []dw2l.Payload{
		names,
		plan,
		&dw2l.EntityTable{Entities: []dw2l.Entity{{Class: dw2l.EntityWarp, X: 1, Y: 1, ID: 2}}},
		&dw2l.Layout{FloorPlan: 1, Warps: 2, Chests: dw2l.NoChunk, Traps: dw2l.NoChunk, Digimon: dw2l.NoChunk},
		floor,
		&dw2l.Opaque{Tag: dw2l.Kind(0x41525458), Bytes: []byte{9, 8, 7}},
	} {
		_, err := l.Append(p)
		require.NoError(t, err)
	}
	b, err := dw2l.Encode(l)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "level.dw2")
	require.NoError(t, os.WriteFile(path, b, 0644))
	return path, b
}

func runCLI(t *testing.T, stdin []byte, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	code = run(args, bytes.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestStat(t *testing.T) {
	path, b := writeLevel(t)

	code, out, _ := runCLI(t, nil, "stat", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "GEOM")
	assert.Contains(t, out, "3x2 tiles")
	assert.Contains(t, out, `"Dungeon 1F", 1 layouts`)
	assert.Contains(t, out, "3 bytes, not decoded")

	code, out, _ = runCLI(t, nil, "stat", "--format", "json", path)
	require.Equal(t, 0, code)
	var stats Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, len(b), stats.Size)
	assert.Equal(t, uint32(6), stats.ChunkCount)
	require.Len(t, stats.Chunks, 6)
	assert.Equal(t, "ENTS", stats.Chunks[2].Kind)
	assert.Len(t, stats.Chunks[2].Digest, 16)
	// The opaque chunk is reported as a warning.
	assert.Len(t, stats.Warnings, 1)
}

func TestStatStdin(t *testing.T) {
	_, b := writeLevel(t)
	code, out, _ := runCLI(t, b, "stat", "-")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "LAYT")
}

func TestRewrite(t *testing.T) {
	path, b := writeLevel(t)
	outPath := filepath.Join(t.TempDir(), "out.dw2")

	code, out, _ := runCLI(t, nil, "rewrite", path, outPath)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "identical")
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	// Written to stdout, the report goes to stderr.
	code, out, errOut := runCLI(t, nil, "rewrite", path, "-")
	require.Equal(t, 0, code)
	assert.Equal(t, string(b), out)
	assert.Contains(t, errOut, "identical")

	// An aligned rewrite moves the chunks. The input is not aligned, so it
	// only decodes under the allow policy.
	code, _, _ = runCLI(t, nil, "--align", "16", "rewrite", path, outPath)
	assert.Equal(t, 1, code)
	code, out, _ = runCLI(t, nil, "--overlap", "allow", "--align", "16", "rewrite", path, outPath)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "0 chunks changed")
	got, err = os.ReadFile(outPath)
	require.NoError(t, err)
	l, _, err := dw2l.Decoder{Policy: dw2l.Policy{Alignment: 16}}.Decode(got)
	require.NoError(t, err)
	for _, d := range l.Descriptors() {
		assert.Zero(t, d.Offset%16)
	}
}

func TestCompressDecompress(t *testing.T) {
	path, b := writeLevel(t)
	dir := t.TempDir()
	packed := filepath.Join(dir, "packed.dw2")
	unpacked := filepath.Join(dir, "unpacked.dw2")

	code, out, _ := runCLI(t, nil, "compress", "--kind", "GEOM", "--kind", "STRS", path, packed)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 chunks changed")

	data, err := os.ReadFile(packed)
	require.NoError(t, err)
	l, err := dw2l.Decode(data)
	require.NoError(t, err)
	for i, kind := range []dw2l.Kind{dw2l.KindStrings, dw2l.KindGeometry} {
		c, ok := l.Payload(i).(*dw2l.Compressed)
		require.True(t, ok, "chunk %d", i)
		assert.Equal(t, kind, c.InnerKind())
	}
	assert.Equal(t, dw2l.KindEntities, l.Payload(2).Kind())

	// The floor name still resolves through the compressed table.
	code, out, _ = runCLI(t, nil, "strings", packed)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Dungeon 1F")

	code, out, _ = runCLI(t, nil, "decompress", packed, unpacked)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 chunks changed")
	data, err = os.ReadFile(unpacked)
	require.NoError(t, err)
	assert.Equal(t, b, data)

	code, _, errOut := runCLI(t, nil, "compress", "--kind", "GEOMETRY", path, packed)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid kind")
}

func TestStrings(t *testing.T) {
	path, _ := writeLevel(t)

	code, out, _ := runCLI(t, nil, "strings", "--raw", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Dungeon 1F")
	assert.Contains(t, out, "0D 38 31 2A 28 32 31 FD 01 0F")

	code, out, _ = runCLI(t, nil, "strings", "--format", "json", path)
	require.Equal(t, 0, code)
	var entries []StringEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, StringEntry{Chunk: 0, Entry: 0, Bytes: "0D 38 31 2A 28 32 31 FD 01 0F", Text: "Dungeon 1F"}, entries[0])
}

func TestPlan(t *testing.T) {
	path, _ := writeLevel(t)
	want := "01 02 03\n0A 0B FF\n"

	code, out, _ := runCLI(t, nil, "plan", "--chunk", "1", path)
	require.Equal(t, 0, code)
	assert.Equal(t, want, out)

	// A layout chunk prints its floor plan.
	code, out, _ = runCLI(t, nil, "plan", "--chunk", "3", path)
	require.Equal(t, 0, code)
	assert.Equal(t, want, out)

	code, _, errOut := runCLI(t, nil, "plan", "--chunk", "2", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not a floor plan")

	code, _, _ = runCLI(t, nil, "plan", "--chunk", "6", path)
	assert.Equal(t, 1, code)
}

func TestFloors(t *testing.T) {
	path, _ := writeLevel(t)

	code, out, _ := runCLI(t, nil, "floors", "--format", "json", path)
	require.Equal(t, 0, code)
	var list []FloorInfo
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, FloorInfo{
		Chunk:   4,
		Name:    "Dungeon 1F",
		Layouts: []string{"#3 (plan #1, warps #2, chests -, traps -, digimon -)"},
	}, list[0])
}

func TestFailures(t *testing.T) {
	writeLevel(t)
	missing := filepath.Join(t.TempDir(), "missing.dw2")

	code, out, errOut := runCLI(t, nil, "stat", missing)
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "ERROR")
	assert.Contains(t, errOut, "read input")

	code, _, errOut = runCLI(t, []byte("DW2X"), "stat", "--format", "json", "-")
	assert.Equal(t, 1, code)
	var report map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(errOut)), &report))
	assert.Contains(t, report["ERROR"], "decode")

	code, _, _ = runCLI(t, nil, "--log-level", "loud", "stat", missing)
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, nil, "stat")
	assert.Equal(t, 1, code)
}

func TestConfigAndMetrics(t *testing.T) {
	path, _ := writeLevel(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "dw2l.yaml")
	metricsPath := filepath.Join(dir, "dw2l.prom")
	logPath := filepath.Join(dir, "dw2l.log")

	config := "policy:\n  overlap: allow\n  alignment: 8\nlogging:\n  level: debug\n  log_file: " + logPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	code, _, _ := runCLI(t, nil, "--config", configPath, "--metrics-file", metricsPath,
		"rewrite", path, filepath.Join(dir, "out.dw2"))
	require.Equal(t, 0, code)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dw2l_operations_total{op="encode",result="ok"} 1`)
	assert.Contains(t, string(data), `dw2l_chunks_total{kind="GEOM",op="decode"} 1`)

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "decoded chunk")
	assert.Contains(t, string(logs), `"cmd":"rewrite"`)
}

func TestDump(t *testing.T) {
	path, _ := writeLevel(t)
	code, out, _ := runCLI(t, nil, "dump", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Chunks: (count:6) {")
	assert.Contains(t, out, "Size: 3x2")
	assert.Contains(t, out, `Name: #0[0] "Dungeon 1F"`)
}
