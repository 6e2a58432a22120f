package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for valid DOCX)
	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	w.Close()
	return buf.Bytes()
}

func wrapBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx"}, New().Extensions())
}

func TestExtract_Success(t *testing.T) {
	data := createTestDOCX(wrapBody(`<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>`))

	text, err := New().Extract(context.Background(), data, "hello.docx")

	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
}

func TestExtract_InvalidZip(t *testing.T) {
	text, err := New().Extract(context.Background(), []byte("not a zip file"), "broken.docx")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, text)
}

func TestExtract_MultipleParagraphs(t *testing.T) {
	data := createTestDOCX(wrapBody(`
<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Third paragraph</w:t></w:r></w:p>`))

	text, err := New().Extract(context.Background(), data, "paras.docx")

	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph\nThird paragraph", text)
}

func TestExtract_MultipleRuns(t *testing.T) {
	data := createTestDOCX(wrapBody(
		`<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r><w:r><w:t>!</w:t></w:r></w:p>`))

	text, err := New().Extract(context.Background(), data, "runs.docx")

	require.NoError(t, err)
	assert.Equal(t, "Hello World!", text)
}

func TestExtract_Tables(t *testing.T) {
	data := createTestDOCX(wrapBody(`
<w:p><w:r><w:t>Pricing</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Plan</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Cost</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Server</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>$40</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>`))

	text, err := New().Extract(context.Background(), data, "table.docx")

	require.NoError(t, err)
	assert.Equal(t, "Pricing\nPlan | Cost\nServer | $40", text)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	text, err := New().Extract(context.Background(), createTestDOCX(""), "empty.docx")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Extractor = (*Normaliser)(nil)
}
