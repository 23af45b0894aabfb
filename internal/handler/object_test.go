package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"ChunkVault/internal/catalog"
	"ChunkVault/internal/dto"
	"ChunkVault/internal/service"
	"ChunkVault/internal/storage"
	"ChunkVault/model"
	"ChunkVault/router"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*service.ObjectService, http.Handler) {
	t.Helper()
	svc, _, h := newServerWithStore(t)
	return svc, h
}

func newServerWithStore(t *testing.T) (*service.ObjectService, *storage.MemoryStore, http.Handler) {
	t.Helper()
	chunks := storage.NewMemoryStore()
	svc := service.NewObjectService(catalog.NewMemory(), chunks, service.Options{ChunkSize: 8})
	if err := svc.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)
	return svc, chunks, router.InitRouter(svc)
}

func expectEmptyStore(t *testing.T, svc *service.ObjectService, chunks *storage.MemoryStore) {
	t.Helper()
	records, err := svc.ListObjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("no record may be committed, got %+v", records)
	}
	owners, _ := chunks.ListOwners(context.Background())
	if len(owners) != 0 {
		t.Fatalf("no chunk may survive, got %+v", owners)
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, h http.Handler, fields map[string]string, filename string, data []byte) string {
	t.Helper()
	body, ct := multipartBody(t, fields, filename, "", data)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")
	w := do(h, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expect 201, got %d %s", w.Code, w.Body.String())
	}
	var resp dto.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Filename
}

func TestEmptyStore(t *testing.T) {
	_, h := newServer(t)

	w := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"files":false}` {
		t.Fatalf("unexpected index %d %s", w.Code, w.Body.String())
	}
	w = do(h, httptest.NewRequest(http.MethodGet, "/files", nil))
	if w.Code != http.StatusNotFound || w.Body.String() != `{"err":"no files exist"}` {
		t.Fatalf("unexpected listing %d %s", w.Code, w.Body.String())
	}
	w = do(h, httptest.NewRequest(http.MethodGet, "/files/missing.txt", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expect 404, got %d", w.Code)
	}
	w = do(h, httptest.NewRequest(http.MethodGet, "/image/missing.txt", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expect 404, got %d", w.Code)
	}
}

func TestUploadRedirectsAndLists(t *testing.T) {
	_, h := newServer(t)
	data := []byte("hello chunked world")
	body, ct := multipartBody(t, map[string]string{"name": "Bo", "chapterName": "Intro"}, "notes.txt", "", data)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := do(h, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("expect redirect to /, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = do(h, httptest.NewRequest(http.MethodGet, "/files", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d", w.Code)
	}
	var records []model.ObjectRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Length != int64(len(data)) {
		t.Fatalf("unexpected records %+v", records)
	}
	if _, ok := records[0].Metadata["email"]; ok {
		t.Fatal("email was not supplied and must not be stored")
	}

	w = do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	var index struct {
		Files []dto.ObjectView `json:"files"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &index); err != nil {
		t.Fatal(err)
	}
	if len(index.Files) != 1 || index.Files[0].MetadataEmail != "Unknown" || index.Files[0].MetadataName != "Bo" {
		t.Fatalf("unexpected index %+v", index.Files)
	}
}

func TestStreamImage(t *testing.T) {
	_, h := newServer(t)
	data := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 10)
	name := upload(t, h, nil, "pic.png", data)

	w := do(h, httptest.NewRequest(http.MethodGet, "/image/"+name, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %s", w.Header().Get("Content-Type"))
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Fatal("streamed body differs from upload")
	}

	w = do(h, httptest.NewRequest(http.MethodGet, "/files/"+name, nil))
	var record model.ObjectRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatal(err)
	}
	if record.Name != name || record.ContentType != "image/png" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestDeleteRoutes(t *testing.T) {
	_, h := newServer(t)
	first := upload(t, h, nil, "a.bin", []byte("0123456789"))
	second := upload(t, h, nil, "b.bin", []byte("abcdefghij"))

	w := do(h, httptest.NewRequest(http.MethodPost, "/files/del/"+first, nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expect redirect, got %d", w.Code)
	}
	w = do(h, httptest.NewRequest(http.MethodPost, "/files/del/"+first, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expect 404 on second delete, got %d", w.Code)
	}

	w = do(h, httptest.NewRequest(http.MethodDelete, "/files/"+second, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expect 204, got %d", w.Code)
	}
	w = do(h, httptest.NewRequest(http.MethodGet, "/image/"+second, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expect 404 after delete, got %d", w.Code)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	_, h := newServer(t)
	body, ct := multipartBody(t, map[string]string{"name": "x"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	if w := do(h, req); w.Code != http.StatusBadRequest {
		t.Fatalf("expect 400, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	if w := do(h, req); w.Code != http.StatusBadRequest {
		t.Fatalf("expect 400 for non multipart body, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	svc, h := newServer(t)
	if w := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); w.Code != http.StatusOK {
		t.Fatalf("expect healthy, got %d", w.Code)
	}
	if w := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil)); w.Code != http.StatusOK {
		t.Fatalf("expect metrics, got %d", w.Code)
	}
	svc.Close()
	if w := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expect 503 after close, got %d", w.Code)
	}
	if w := do(h, httptest.NewRequest(http.MethodGet, "/files", nil)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expect 503 from closed store, got %d", w.Code)
	}
}

func TestTruncatedUploadIsRejected(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 8)
	body, ct := multipartBody(t, map[string]string{"name": "Bo"}, "cut.bin", "", data)
	full := body.Bytes()
	fileStart := bytes.Index(full, data)
	if fileStart < 0 {
		t.Fatal("file bytes not found in body")
	}
	for _, keep := range []int{30, 32} {
		svc, chunks, h := newServerWithStore(t)
		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(full[:fileStart+keep]))
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Accept", "application/json")
		w := do(h, req)
		if w.Code < 400 {
			t.Fatalf("keep %d: truncated upload must fail, got %d %s", keep, w.Code, w.Body.String())
		}
		expectEmptyStore(t, svc, chunks)
	}
}

// cancelingReader cancels the request context once the body is first read.
type cancelingReader struct {
	r      *bytes.Reader
	cancel context.CancelFunc
}

func (c *cancelingReader) Read(p []byte) (int, error) {
	c.cancel()
	return c.r.Read(p)
}

func TestCanceledUploadLeavesNothing(t *testing.T) {
	svc, chunks, h := newServerWithStore(t)
	body, ct := multipartBody(t, nil, "gone.bin", "", bytes.Repeat([]byte("x"), 80))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/upload", &cancelingReader{r: bytes.NewReader(body.Bytes()), cancel: cancel})
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", ct)
	w := do(h, req)
	if w.Code < 400 {
		t.Fatalf("canceled upload must fail, got %d", w.Code)
	}
	expectEmptyStore(t, svc, chunks)
}
