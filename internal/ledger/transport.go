package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/raphaelgruber/scrt-agent/internal/models"
)

// MaxPageSize is the largest page the list endpoint serves.
const MaxPageSize = 1000

// UploadMeta describes one blob upload.
type UploadMeta struct {
	Name        string
	ContentType string
	Tags        []models.Tag
	Size        int
}

// Upload is one listed record.
type Upload struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Address string       `json:"arweaveTxId"`
	Tags    []models.Tag `json:"tags"`
}

// Page is one page of the upload listing.
type Page struct {
	Uploads    []Upload
	Page       int
	TotalPages int
}

type uploadResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type listResponse struct {
	Data []Upload `json:"data"`
	Meta struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

// Upload stores data with the given metadata and returns the record id.
func (c *Client) Upload(ctx context.Context, data []byte, meta UploadMeta) (string, error) {
	if err := c.Ready(ctx); err != nil {
		return "", ledgerError("upload", err)
	}

	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return "", ledgerError("upload", fmt.Errorf("encode tags: %w", err))
	}

	var out uploadResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetFileReader("file", meta.Name, bytes.NewReader(data)).
		SetMultipartFormData(map[string]string{
			"name":             meta.Name,
			"dataContentType":  meta.ContentType,
			"tags":             string(tags),
			"size":             strconv.Itoa(meta.Size),
			"overrideFileName": "true",
		}).
		SetResult(&out).
		Post("/upload")
	if err != nil {
		return "", ledgerError("upload", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", ledgerError("upload", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if out.Data.ID == "" {
		return "", ledgerError("upload", ErrNoRecordID)
	}
	return out.Data.ID, nil
}

// ListUploads returns one page of the account's uploads.
func (c *Client) ListUploads(ctx context.Context, page, limit int) (Page, error) {
	if err := c.Ready(ctx); err != nil {
		return Page{}, ledgerError("list uploads", err)
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	var out listResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/upload")
	if err != nil {
		return Page{}, ledgerError("list uploads", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Page{}, ledgerError("list uploads", fmt.Errorf("status %d", resp.StatusCode()))
	}
	return Page{Uploads: out.Data, Page: page, TotalPages: out.Meta.TotalPages}, nil
}

// FetchBlob downloads the blob at a content address from the gateway.
func (c *Client) FetchBlob(ctx context.Context, address string) ([]byte, error) {
	resp, err := c.gateway.R().
		SetContext(ctx).
		Get("/" + address)
	if err != nil {
		return nil, ledgerError("fetch blob", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, ledgerError("fetch blob", fmt.Errorf("%s: status %d", address, resp.StatusCode()))
	}
	return resp.Body(), nil
}
