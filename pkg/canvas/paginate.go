package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/pkg/linkheader"
)

// Paginate walks a collection starting at firstURL, following the rel="next"
// link of each response until none is present. Items keep the server's order.
// Any failed page aborts the walk and nothing is returned.
func Paginate[T any](ctx context.Context, c *Client, endpoint, firstURL, token string) ([]T, error) {
	var (
		items []T
		next  = firstURL
		page  = 0
	)

	for next != "" {
		page++
		body, header, err := c.get(ctx, endpoint, next, token)
		if err != nil {
			return nil, err
		}

		var batch []T
		if err := decodeJSON(body, &batch); err != nil {
			return nil, fmt.Errorf("canvas: decode %s page %d: %w", endpoint, page, err)
		}
		items = append(items, batch...)

		links, err := linkheader.Parse(header.Get("Link"))
		if err != nil {
			return nil, fmt.Errorf("canvas: %s page %d: %w", endpoint, page, err)
		}
		next, _ = linkheader.Find(links, "next")
	}

	c.logger.Debug("canvas collection fetched",
		zap.String("endpoint", endpoint),
		zap.Int("pages", page),
		zap.Int("items", len(items)),
	)

	return items, nil
}

// decodeJSON rejects empty bodies so a blank page is an error rather than an
// empty result.
func decodeJSON(body []byte, dest interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(body, dest)
}
