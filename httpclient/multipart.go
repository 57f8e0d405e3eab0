package httpclient

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// MultipartBody is a multipart/form-data body. It is streamed, so large
// files are never held in memory.
type MultipartBody struct {
	Fields map[string]string
	// Repeated are fields sent once per value, like "timestamp_granularities[]".
	Repeated map[string][]string
	Files    []FileField
}

// FileField is one uploaded file. Path is opened lazily when Reader is nil.
type FileField struct {
	FieldName   string
	FileName    string
	ContentType string
	Path        string
	Reader      io.Reader
}

// encode returns a reader producing the body and its content type.
func (m *MultipartBody) encode() (io.Reader, string) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType()
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for k, values := range m.Repeated {
		for _, v := range values {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	for _, f := range m.Files {
		if err := writeFile(w, f); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeFile(w *multipart.Writer, f FileField) error {
	src := f.Reader
	if src == nil {
		file, err := os.Open(f.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		src = file
	}
	name := f.FileName
	if name == "" {
		name = filepath.Base(f.Path)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+quoteEscaper.Replace(f.FieldName)+`"; filename="`+quoteEscaper.Replace(name)+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
