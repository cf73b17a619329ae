package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

const defaultMaxUpload = 25 << 20

func (h *Handlers) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return defaultMaxUpload
}

// uploadPath resolves a stored filename under the upload directory. Names
// that would escape it are rejected.
func (h *Handlers) uploadPath(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("file path %q escapes upload dir", name)
	}
	return filepath.Join(h.UploadDir, rel), nil
}

func (h *Handlers) listProjectFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	files, err := h.Store.ListFiles(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, files)
}

// uploadProjectFile stores the multipart "file" part as
// <upload dir>/<project id>/<uuid><ext> and records its metadata.
func (h *Handlers) uploadProjectFile(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer src.Close()

	ext := filepath.Ext(header.Filename)
	name := path.Join(strconv.FormatInt(pid, 10), uuid.NewString()+ext)
	dest, err := h.uploadPath(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "create upload dir: "+err.Error())
		return
	}
	size, err := writeUpload(dest, src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	f := &store.File{
		Filename:     name,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         size,
		ProjectID:    &pid,
	}
	if err := h.Store.CreateFile(r.Context(), f); err != nil {
		_ = os.Remove(dest)
		writeStoreError(w, err, "file")
		return
	}
	h.events().Publish(ws.FileChanged, f)
	writeData(w, http.StatusCreated, f)
}

func writeUpload(dest string, src io.Reader) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return 0, fmt.Errorf("write upload: %w", err)
	}
	return n, nil
}

func (h *Handlers) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "file")
	if !ok {
		return
	}
	f, err := h.Store.GetFile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "file")
		return
	}
	p, err := h.uploadPath(f.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	fh, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer fh.Close()

	if f.MimeType != "" {
		w.Header().Set("Content-Type", f.MimeType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName}))
	http.ServeContent(w, r, f.OriginalName, f.CreatedAt, fh)
}

// deleteFile unlinks the stored file, then drops its row. A file already
// missing on disk does not block the delete.
func (h *Handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "file")
	if !ok {
		return
	}
	f, err := h.Store.GetFile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "file")
		return
	}
	if p, err := h.uploadPath(f.Filename); err == nil {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger().Warn("remove uploaded file", slog.String("path", p), slog.Any("err", err))
		}
	}
	if err := h.Store.DeleteFile(r.Context(), id); err != nil {
		writeStoreError(w, err, "file")
		return
	}
	h.events().Publish(ws.FileChanged, map[string]any{"id": id, "deleted": true})
	writeOK(w)
}
