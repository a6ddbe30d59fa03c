package documents

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func newTestLoader(t *testing.T, rows, chars int) *Loader {
	t.Helper()
	config := common.NewDefaultConfig()
	config.KB.MaxSpreadsheetRows = rows
	config.KB.MaxDocumentChars = chars
	return NewLoader(config, arbor.NewNoOpLogger())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for member, content := range members {
		w, err := zw.Create(member)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoad_CSVAndTSV(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader(t, 0, 0)
	ctx := context.Background()

	csvPath := writeFile(t, dir, "prices.csv", "name,price\napple,1.20\n,\n\"pear, green\",0.90\n")
	text, err := loader.Load(ctx, csvPath)
	require.NoError(t, err)
	assert.Equal(t, "name | price\napple | 1.20\npear, green | 0.90", text)

	tsvPath := writeFile(t, dir, "data.tsv", "a\tb\nc\td\n")
	text, err = loader.Load(ctx, tsvPath)
	require.NoError(t, err)
	assert.Equal(t, "a | b\nc | d", text)
}

func TestLoad_CSVRowCap(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "row%d,value\n", i)
	}
	path := writeFile(t, dir, "big.csv", b.String())

	text, err := newTestLoader(t, 3, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(text, "\n")))
	assert.NotContains(t, text, "row3")
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	book := excelize.NewFile()
	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]interface{}{"Region", "Sales"}))
	require.NoError(t, book.SetCellValue("Sheet1", "A2", "Northwest"))
	require.NoError(t, book.SetCellValue("Sheet1", "C2", 42))
	require.NoError(t, book.SetCellValue("Sheet1", "A3", "South"))
	require.NoError(t, book.SetCellValue("Sheet1", "B3", true))
	_, err := book.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, book.SetCellValue("Notes", "A1", "ignored"))
	require.NoError(t, book.SaveAs(path))
	require.NoError(t, book.Close())

	text, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Region | Sales\nNorthwest |  | 42\nSouth | TRUE", text)

	text, err = newTestLoader(t, 2, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Region | Sales\nNorthwest |  | 42", text)
}

func TestLoad_DOCX(t *testing.T) {
	dir := t.TempDir()
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell</w:t></w:r><w:r><w:tab/><w:t>value</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body></w:document>`
	path := writeZip(t, dir, "report.docx", map[string]string{"word/document.xml": document})

	text, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\nCell\tvalue", text)

	truncated, err := newTestLoader(t, 0, 9).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", truncated)
}

func TestLoad_DOCXMissingBody(t *testing.T) {
	path := writeZip(t, t.TempDir(), "empty.docx", map[string]string{"docProps/core.xml": "<x/>"})
	_, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	assert.ErrorIs(t, err, interfaces.ErrParse)
}

func TestLoad_MarkdownFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "post.md", "---\ntitle: Release Guide\ntags: [go, release]\n---\nShip it on Friday.\n")

	text, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Release Guide\n\nShip it on Friday.", text)

	plain := writeFile(t, dir, "notes.txt", "just text\n")
	text, err = newTestLoader(t, 0, 0).Load(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, "just text", text)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader(t, 0, 0)

	_, err := loader.Load(context.Background(), writeFile(t, dir, "image.png", "x"))
	assert.ErrorIs(t, err, interfaces.ErrParse)

	_, err = loader.Load(context.Background(), writeFile(t, dir, "blank.txt", "  \n "))
	assert.ErrorIs(t, err, interfaces.ErrEmptyInput)

	_, err = loader.Load(context.Background(), writeFile(t, dir, "broken.xlsx", "not a zip"))
	assert.ErrorIs(t, err, interfaces.ErrParse)
}

// writePDF assembles a PDF from numbered object bodies, computing the xref
// offsets. Objects are numbered from 1 in slice order.
func writePDF(t *testing.T, dir, name string, objects []string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return writeFile(t, dir, name, b.String())
}

func pdfStream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

func TestLoad_PDF(t *testing.T) {
	// Glyph ids for "Hello" in a subset font, mapped back through ToUnicode
	toUnicode := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
4 beginbfrange
<002B> <002B> <0048>
<0048> <0048> <0065>
<004F> <004F> <006C>
<0052> <0052> <006F>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

	path := writePDF(t, t.TempDir(), "report.pdf", []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 7 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F2 9 0 R >> >> /Contents 10 0 R >>",
		"<< /Type /Font /Subtype /Type0 /BaseFont /ArialMT /Encoding /Identity-H /DescendantFonts [6 0 R] /ToUnicode 8 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ArialMT /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> >>",
		pdfStream("BT\n/F1 12 Tf\n72 712 Td\n<002B0048004F004F0052> Tj\nET"),
		pdfStream(toUnicode),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		pdfStream("BT\n/F2 12 Tf\n72 712 Td\n(World) Tj\nET"),
	})

	text, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "World")
	assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "World"))
	assert.Contains(t, text, "\n\n")
}

func TestLoad_PDFCorrupt(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "%PDF-1.4\nnot really a pdf")
	_, err := newTestLoader(t, 0, 0).Load(context.Background(), path)
	assert.ErrorIs(t, err, interfaces.ErrParse)
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body, ok := splitFrontMatter("---\ntitle: x\n---\nbody")
	assert.True(t, ok)
	assert.Equal(t, "title: x", meta)
	assert.Equal(t, "body", body)

	_, body, ok = splitFrontMatter("---\nunterminated")
	assert.False(t, ok)
	assert.Equal(t, "---\nunterminated", body)
}

type memoryKBStorage struct {
	mu      sync.Mutex
	entries map[string]*models.KnowledgeBaseEntry
}

func newMemoryKBStorage() *memoryKBStorage {
	return &memoryKBStorage{entries: make(map[string]*models.KnowledgeBaseEntry)}
}

func (m *memoryKBStorage) SaveEntry(ctx context.Context, entry *models.KnowledgeBaseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *memoryKBStorage) GetEntry(ctx context.Context, id string) (*models.KnowledgeBaseEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNotFound, id)
	}
	copied := *entry
	return &copied, nil
}

func (m *memoryKBStorage) ListEntries(ctx context.Context) ([]*models.KnowledgeBaseEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.KnowledgeBaseEntry
	for _, e := range m.entries {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryKBStorage) MarkEmbedded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.Embedded = true
		return nil
	}
	return interfaces.ErrNotFound
}

func (m *memoryKBStorage) DeleteEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func TestService_AddAndRemove(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	kbDir := filepath.Join(t.TempDir(), "kb")
	storage := newMemoryKBStorage()
	service := NewService(storage, kbDir, arbor.NewNoOpLogger())

	src := writeFile(t, srcDir, "guide.md", "# Guide\n\nContent.")
	entry, err := service.AddFile(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "guide.md", entry.Name)
	assert.False(t, entry.Embedded)
	assert.FileExists(t, entry.Path)
	assert.True(t, strings.HasPrefix(entry.URL, "file://"))

	entries, err := service.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, service.RemoveEntry(ctx, entry.ID))
	assert.NoFileExists(t, entry.Path)

	err = service.RemoveEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestService_AddRejectsUnsupported(t *testing.T) {
	service := NewService(newMemoryKBStorage(), t.TempDir(), arbor.NewNoOpLogger())
	_, err := service.AddFile(context.Background(), writeFile(t, t.TempDir(), "movie.mp4", "x"))
	assert.ErrorIs(t, err, interfaces.ErrParse)
}

func TestService_RemoveAll(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	service := NewService(newMemoryKBStorage(), t.TempDir(), arbor.NewNoOpLogger())

	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := service.AddFile(ctx, writeFile(t, srcDir, name, "text "+name))
		require.NoError(t, err)
	}

	removed, err := service.RemoveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}
