package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/scrt-agent/internal/models"
)

const contentTypeJSON = "application/json"

// StoreMemory uploads one turn as a tagged JSON blob and returns its record id.
func (c *Client) StoreMemory(ctx context.Context, userID, message, response string) (string, error) {
	data, err := json.Marshal(models.LedgerRecord{UserID: userID, Message: message, Response: response})
	if err != nil {
		return "", ledgerError("store memory", err)
	}

	name := fmt.Sprintf("%s-%d-%s.json", userID, time.Now().UnixMilli(), uuid.NewString()[:8])
	id, err := c.Upload(ctx, data, UploadMeta{
		Name:        name,
		ContentType: contentTypeJSON,
		Size:        len(data),
		Tags: []models.Tag{
			{Name: models.TagContentType, Value: contentTypeJSON},
			{Name: models.TagUserID, Value: userID},
			{Name: models.TagType, Value: models.TypeMemory},
		},
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("memory stored on ledger", "user_id", userID, "record_id", id)
	return id, nil
}

// FetchHistory returns the user's stored exchanges in listing order.
// Records without a content address are skipped; any blob failure aborts.
func (c *Client) FetchHistory(ctx context.Context, userID string) ([]models.Exchange, error) {
	var matches []Upload
	for page := 1; ; page++ {
		p, err := c.ListUploads(ctx, page, c.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		for _, u := range p.Uploads {
			if models.HasTag(u.Tags, models.TagType, models.TypeMemory) &&
				models.HasTag(u.Tags, models.TagUserID, userID) {
				matches = append(matches, u)
			}
		}
		if len(p.Uploads) < c.cfg.PageSize || (p.TotalPages > 0 && page >= p.TotalPages) {
			break
		}
	}

	history := []models.Exchange{}
	skipped := 0
	for _, u := range matches {
		if u.Address == "" {
			skipped++
			continue
		}
		blob, err := c.FetchBlob(ctx, u.Address)
		if err != nil {
			return nil, err
		}
		var rec models.LedgerRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return nil, ledgerError("decode memory", fmt.Errorf("%s: %w", u.Address, err))
		}
		history = append(history, models.Exchange{Message: rec.Message, Response: rec.Response})
	}

	c.logger.Debug("ledger history fetched", "user_id", userID, "entries", len(history), "skipped", skipped)
	return history, nil
}

// StoreChatLog uploads an audit record of one model invocation.
func (c *Client) StoreChatLog(ctx context.Context, runID string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", ledgerError("store chat log", err)
	}

	name := fmt.Sprintf("audit-%s-%d.json", runID, time.Now().UnixMilli())
	return c.Upload(ctx, data, UploadMeta{
		Name:        name,
		ContentType: "text/plain",
		Size:        len(data),
		Tags: []models.Tag{
			{Name: models.TagContentType, Value: contentTypeJSON},
			{Name: models.TagType, Value: models.TypeChatLog},
			{Name: models.TagRunID, Value: runID},
		},
	})
}
