package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"chatrelay/pkg/files"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// uploadResponse mirrors the browser client's expectations: success flag
// plus either the packaged attachment or an error message.
type uploadResponse struct {
	Success bool               `json:"success"`
	File    *models.Attachment `json:"file,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// RegisterUpload registers the file upload endpoint.
func RegisterUpload(r *mux.Router, v files.Validator) {
	r.HandleFunc("/upload", func(w http.ResponseWriter, req *http.Request) {
		handleUpload(w, req, v)
	}).Methods(http.MethodPost)
}

// multipartOverhead leaves room for the multipart boundary and part
// headers on top of the file size cap.
const multipartOverhead = 1 << 20

func handleUpload(w http.ResponseWriter, r *http.Request, v files.Validator) {
	max := v.MaxSize
	if max <= 0 {
		max = files.DefaultMaxSize
	}
	// bound the body before parsing so an oversize upload is cut off at
	// the wire instead of buffered whole just to be rejected
	r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			utils.JSONWrite(w, http.StatusBadRequest, uploadResponse{Error: tooLargeMessage(max)})
			return
		}
		utils.JSONWrite(w, http.StatusBadRequest, uploadResponse{Error: "no file was sent"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			utils.JSONWrite(w, http.StatusBadRequest, uploadResponse{Error: tooLargeMessage(max)})
			return
		}
		utils.JSONWrite(w, http.StatusInternalServerError, uploadResponse{Error: "failed to read file"})
		return
	}

	att, err := v.Process(hdr.Filename, hdr.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, files.ErrTooLarge):
			utils.JSONWrite(w, http.StatusBadRequest, uploadResponse{Error: tooLargeMessage(max)})
		case errors.Is(err, files.ErrUnsupportedType), errors.Is(err, files.ErrNoFile):
			utils.JSONWrite(w, http.StatusBadRequest, uploadResponse{Error: err.Error()})
		default:
			utils.JSONWrite(w, http.StatusInternalServerError, uploadResponse{Error: "internal server error"})
		}
		return
	}

	utils.JSONWrite(w, http.StatusOK, uploadResponse{Success: true, File: &att})
}

func tooLargeMessage(max int64) string {
	return "file too large; maximum size is " + humanize.IBytes(uint64(max))
}
