package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Encoding discriminates how a payload body is framed on the wire.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMultipart
)

func (e Encoding) String() string {
	if e == EncodingMultipart {
		return "multipart"
	}
	return "json"
}

// Payload is a fully built request body. It is resolved once here so the
// transport never re-inspects the submission.
type Payload struct {
	Encoding    Encoding
	ContentType string
	Body        []byte
}

// Reader returns a fresh reader over the body.
func (p Payload) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

type codeRequest struct {
	Code     string `json:"code"`
	IsBase64 bool   `json:"isBase64"`
}

type repositoryRequest struct {
	GithubURL string `json:"github_url"`
}

// BuildGenerate maps a submission to the body of its generation endpoint.
func BuildGenerate(s Submission) (Payload, error) {
	switch s.Mode {
	case ModeCodeText:
		return jsonPayload(codeRequest{Code: s.Text, IsBase64: false})
	case ModeFileUpload:
		if s.File == nil {
			return Payload{}, fmt.Errorf("file submission without a file")
		}
		return multipartPayload(func(w *multipart.Writer) error {
			return writeFilePart(w, s.File)
		})
	case ModeGithubURL:
		return jsonPayload(repositoryRequest{GithubURL: s.URL})
	default:
		return Payload{}, fmt.Errorf("unknown submission mode %v", s.Mode)
	}
}

// BuildArtifact maps a retained source to the body of the download endpoint.
// The service reads it as a form: either a file part or code/isBase64 fields.
func BuildArtifact(s Submission) (Payload, error) {
	if !s.Retainable() {
		return Payload{}, ErrNotRetainable
	}
	return multipartPayload(func(w *multipart.Writer) error {
		if s.Mode == ModeFileUpload {
			return writeFilePart(w, s.File)
		}
		if err := w.WriteField("code", s.Text); err != nil {
			return err
		}
		return w.WriteField("isBase64", "false")
	})
}

func jsonPayload(v any) (Payload, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Encoding: EncodingJSON, ContentType: "application/json", Body: buf}, nil
}

func multipartPayload(write func(*multipart.Writer) error) (Payload, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := write(w); err != nil {
		return Payload{}, err
	}
	if err := w.Close(); err != nil {
		return Payload{}, err
	}
	return Payload{Encoding: EncodingMultipart, ContentType: w.FormDataContentType(), Body: body.Bytes()}, nil
}

func writeFilePart(w *multipart.Writer, file *File) error {
	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}
