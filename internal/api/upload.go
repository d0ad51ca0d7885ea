package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
)

// maxFieldBytes bounds the size of plain form fields in multipart bodies.
const maxFieldBytes = 4 << 10

// tempUpload is a file part streamed to disk with its sniffed content type.
type tempUpload struct {
	f           *os.File
	path        string
	size        int64
	contentType string
	filename    string
}

// Close removes the temp file; callers defer it once persistPart succeeds.
func (t *tempUpload) Close() {
	t.f.Close()
	os.Remove(t.path)
}

// persistPart streams a multipart file part to a temp file, enforcing the
// upload limit and capturing the first 512 bytes for MIME sniffing.
func (s *Server) persistPart(part *multipart.Part) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp("", "notekart-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}
	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxUploadBytes {
				cleanup()
				return nil, fmt.Errorf("file exceeds limit (%d bytes)", s.cfg.MaxUploadBytes)
			}
			if len(sniff) < 512 {
				chunk := n
				if remain := 512 - len(sniff); chunk > remain {
					chunk = remain
				}
				sniff = append(sniff, buf[:chunk]...)
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				cleanup()
				return nil, fmt.Errorf("write temp file: %w", err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			cleanup()
			return nil, fmt.Errorf("read file: %w", readErr)
		}
	}
	if written == 0 {
		cleanup()
		return nil, errors.New("empty file")
	}
	if _, err := tmpFile.Seek(0, 0); err != nil {
		cleanup()
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	return &tempUpload{
		f:           tmpFile,
		path:        tmpFile.Name(),
		size:        written,
		contentType: http.DetectContentType(sniff),
		filename:    part.FileName(),
	}, nil
}

// multipartForm walks a multipart body collecting plain fields into values
// and streaming the single file part named fileField to disk. A nil
// tempUpload means the file part was absent.
func (s *Server) multipartForm(r *http.Request, w http.ResponseWriter, fileField string) (map[string]string, *tempUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errors.New("expecting multipart form")
	}
	values := make(map[string]string)
	var upload *tempUpload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if upload != nil {
				upload.Close()
			}
			return nil, nil, errors.New("failed to read upload")
		}
		name := part.FormName()
		if name == fileField && part.FileName() != "" {
			if upload != nil {
				// Only the first file part counts.
				part.Close()
				continue
			}
			saved, err := s.persistPart(part)
			part.Close()
			if err != nil {
				return nil, nil, err
			}
			upload = saved
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		part.Close()
		if err != nil {
			if upload != nil {
				upload.Close()
			}
			return nil, nil, errors.New("failed to read form field")
		}
		values[name] = strings.TrimSpace(string(data))
	}
	return values, upload, nil
}

// safeFilename strips path separators so object keys stay flat.
func safeFilename(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" || name == "." || name == ".." {
		return fallback
	}
	return name
}
