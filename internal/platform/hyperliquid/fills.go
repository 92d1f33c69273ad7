package hyperliquid

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/normalize"
)

// fillsPageSize is the explicit page size of the third variant.
const fillsPageSize = 500

func fillVariants(user string, since int64) []variant {
	vs := []variant{
		postVariant("POST userFills", map[string]any{"type": "userFills", "user": user}),
		postVariant("POST fills", map[string]any{"type": "fills", "user": user}),
		postVariant("POST fills+n", map[string]any{"type": "fills", "user": user, "n": fillsPageSize}),
	}
	if since > 0 {
		vs = append(vs, postVariant("POST fills+startTime",
			map[string]any{"type": "fills", "user": user, "startTime": since}))
	}
	vs = append(vs, getVariant("GET userFills", url.Values{"type": {"userFills"}, "user": {user}}))
	return vs
}

// FetchFills returns the fills of user, trying each request variant in order
// until one yields a usable list. With since > 0 only fills strictly newer
// than since are kept, which also drops fills without a timestamp. When every
// variant fails the failures are logged and the result is empty.
func (c *Client) FetchFills(ctx context.Context, user string, since int64) []domain.FillEvent {
	var errs failures
	for _, v := range fillVariants(user, since) {
		if ctx.Err() != nil {
			return nil
		}
		payload, err := c.fetch(ctx, v)
		if err != nil {
			errs.add(v.label, err)
			continue
		}
		records, err := payload.Records()
		if err != nil {
			errs.add(v.label, err)
			continue
		}

		events := normalize.Fills(records)
		if since > 0 {
			kept := events[:0]
			for _, ev := range events {
				if ev.Timestamp > since {
					kept = append(kept, ev)
				}
			}
			events = kept
		}
		if len(errs) > 0 {
			c.logger.Debug("fill variant fallback",
				slog.String("used", v.label),
				slog.String("rejected", errs.String()),
			)
		}
		return events
	}

	c.logger.Warn("all fill variants failed",
		slog.String("user", user),
		slog.String("errors", errs.String()),
	)
	return nil
}
