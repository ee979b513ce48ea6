package service

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

// uploadFile builds a real multipart upload for name.
func uploadFile(t *testing.T, name, contentType string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	header := form.File["file"][0]
	file, err := header.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })
	return file, header
}

func TestUploadStoresUnderUserPrefix(t *testing.T) {
	f := newFixture(t)
	svc := f.documentService()
	user := f.user(t, "ada@example.com")

	file, header := uploadFile(t, "Transcript.PDF", "application/pdf", pdfBytes)
	doc, err := svc.Upload(ctx, user.ID, file, header, UploadDocumentInput{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.StoragePath, "documents/"+user.ID+"/"))
	assert.True(t, strings.HasSuffix(doc.StoragePath, ".pdf"))
	assert.Equal(t, "Transcript.PDF", doc.Filename)
	assert.Equal(t, model.DocumentCategoryOther, doc.Category)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.EqualValues(t, len(pdfBytes), doc.FileSize)
	assert.Equal(t, "https://files.test/"+doc.StoragePath, doc.URL)
	assert.Nil(t, doc.OpportunityID)
	assert.True(t, f.storage.Has(doc.StoragePath))

	docs, err := svc.Documents(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	f := newFixture(t)
	svc := f.documentService()
	user := f.user(t, "ada@example.com")

	file, header := uploadFile(t, "run.sh", "text/x-shellscript", []byte("#!/bin/sh\necho hi\n"))
	_, err := svc.Upload(ctx, user.ID, file, header, UploadDocumentInput{})
	assert.True(t, IsValidation(err))

	// declared as pdf but is plain text
	file, header = uploadFile(t, "fake.pdf", "application/pdf", []byte("hello world"))
	_, err = svc.Upload(ctx, user.ID, file, header, UploadDocumentInput{})
	assert.True(t, IsValidation(err))
}

func TestUploadRequiresOwnedOpportunity(t *testing.T) {
	f := newFixture(t)
	svc := f.documentService()
	owner := f.user(t, "ada@example.com")
	stranger := f.user(t, "eve@example.com")
	opp := f.createOpportunity(t, f.opportunityService(), owner.ID, "Job")

	file, header := uploadFile(t, "cv.pdf", "application/pdf", pdfBytes)
	_, err := svc.Upload(ctx, stranger.ID, file, header, UploadDocumentInput{OpportunityID: opp.ID})
	assert.ErrorIs(t, err, repository.ErrOpportunityNotFound)

	file, header = uploadFile(t, "cv.pdf", "application/pdf", pdfBytes)
	doc, err := svc.Upload(ctx, owner.ID, file, header, UploadDocumentInput{OpportunityID: opp.ID, Category: "cv"})
	require.NoError(t, err)
	require.NotNil(t, doc.OpportunityID)
	assert.Equal(t, opp.ID, *doc.OpportunityID)
	assert.Equal(t, "cv", doc.Category)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	svc := f.documentService()
	owner := f.user(t, "ada@example.com")
	stranger := f.user(t, "eve@example.com")

	file, header := uploadFile(t, "cv.pdf", "application/pdf", pdfBytes)
	doc, err := svc.Upload(ctx, owner.ID, file, header, UploadDocumentInput{})
	require.NoError(t, err)

	err = svc.Delete(ctx, stranger.ID, doc.ID)
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	require.NoError(t, svc.Delete(ctx, owner.ID, doc.ID))
	assert.False(t, f.storage.Has(doc.StoragePath))

	err = svc.Delete(ctx, owner.ID, doc.ID)
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}
