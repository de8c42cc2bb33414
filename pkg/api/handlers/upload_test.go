package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"chatrelay/pkg/files"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

func uploadRouter(v files.Validator) *mux.Router {
	logger.Init()
	r := mux.NewRouter()
	RegisterUpload(r, v)
	return r
}

func postUpload(t *testing.T, r *mux.Router, field, name, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("build multipart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadAcceptsTextFile(t *testing.T) {
	r := uploadRouter(files.Validator{})
	w := postUpload(t, r, "file", "notes.txt", "text/plain", []byte("hello"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool               `json:"success"`
		File    *models.Attachment `json:"file"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.File == nil {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if resp.File.Category != models.CategoryText || resp.File.SizeBytes != 5 {
		t.Fatalf("attachment wrong: %+v", resp.File)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	r := uploadRouter(files.Validator{MaxSize: 8})
	w := postUpload(t, r, "file", "big.txt", "text/plain", bytes.Repeat([]byte("x"), 9))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected error response, got %s", w.Body.String())
	}
}

func TestUploadCutsOffBodyBeyondCap(t *testing.T) {
	// body exceeds MaxSize plus the multipart overhead allowance, so the
	// handler rejects it while parsing instead of buffering it whole
	r := uploadRouter(files.Validator{MaxSize: 8})
	data := bytes.Repeat([]byte("x"), 2<<20)
	w := postUpload(t, r, "file", "huge.txt", "text/plain", data)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Success || !strings.Contains(resp.Error, "too large") {
		t.Fatalf("expected too-large error, got %s", w.Body.String())
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	r := uploadRouter(files.Validator{})
	w := postUpload(t, r, "file", "tool.exe", "application/x-msdownload", []byte{0x4d, 0x5a})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUploadMissingFileField(t *testing.T) {
	r := uploadRouter(files.Validator{})
	w := postUpload(t, r, "wrong", "notes.txt", "text/plain", []byte("hello"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
