package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"

	"bosko/core/apperr"
)

// Form is a presigned S3 POST target.
type Form struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// UploadForm asks the upload service for a presigned form for a registered asset.
func (c *Client) UploadForm(ctx context.Context, asset *RemoteAsset, fileName, contentType, memberID string) (*Form, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MetadataTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("filename", fileName)
	params.Set("type", asset.File.Type)
	params.Set("metadata[asset-id]", asset.ID)
	params.Set("metadata[name]", fileName)
	params.Set("metadata[type]", asset.File.Type)
	params.Set("metadata[content-type]", contentType)
	params.Set("metadata[version]", "2")
	params.Set("metadata[user]", memberID)
	params.Set("metadata[env]", c.cfg.Env)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UploadURL+"/s3/params?"+params.Encode(), nil)
	if err != nil {
		return nil, apperr.Internal("build upload params request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Protocol("marketplace upload params request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Protocol(
			fmt.Sprintf("marketplace upload params returned HTTP %d", resp.StatusCode),
			errors.New(snippet(raw)))
	}

	var form Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, apperr.Protocol("marketplace upload params returned invalid JSON", err)
	}
	if form.URL == "" {
		return nil, apperr.Protocol("marketplace upload params returned no url", nil)
	}
	return &form, nil
}

// Upload posts the file to a presigned form. The upload service answers 201 on success.
func (c *Client) Upload(ctx context.Context, form *Form, fileName, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TransferTimeout)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// S3 ignores anything after the file part, so fields go first.
	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, form.Fields[k]); err != nil {
			return apperr.Internal("build upload form", err)
		}
	}

	partName := fileName
	if n := form.Fields["x-amz-meta-name"]; n != "" {
		partName = n
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, partName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return apperr.Internal("build upload form", err)
	}
	if _, err := part.Write(data); err != nil {
		return apperr.Internal("build upload form", err)
	}
	if err := w.Close(); err != nil {
		return apperr.Internal("build upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, form.URL, &buf)
	if err != nil {
		return apperr.Internal("build upload request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Protocol("marketplace binary upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return apperr.Protocol(
			fmt.Sprintf("marketplace binary upload returned HTTP %d", resp.StatusCode),
			errors.New(snippet(raw)))
	}
	return nil
}
