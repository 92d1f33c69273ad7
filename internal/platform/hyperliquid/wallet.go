package hyperliquid

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/normalize"
)

func walletVariants(user string) []variant {
	return []variant{
		postVariant("POST clearinghouseState", map[string]any{"type": "clearinghouseState", "user": user}),
		postVariant("POST accountState", map[string]any{"type": "accountState", "user": user}),
		getVariant("GET clearinghouseState", url.Values{"type": {"clearinghouseState"}, "user": {user}}),
	}
}

// FetchWallet returns the account snapshot of user. When every variant fails
// the snapshot is empty.
func (c *Client) FetchWallet(ctx context.Context, user string) domain.WalletSnapshot {
	var errs failures
	for _, v := range walletVariants(user) {
		if ctx.Err() != nil {
			return domain.WalletSnapshot{}
		}
		payload, err := c.fetch(ctx, v)
		if err != nil {
			errs.add(v.label, err)
			continue
		}
		obj, err := payload.AccountObject()
		if err != nil {
			errs.add(v.label, err)
			continue
		}
		return normalize.Wallet(obj)
	}

	c.logger.Warn("all wallet variants failed",
		slog.String("user", user),
		slog.String("errors", errs.String()),
	)
	return domain.WalletSnapshot{}
}

// RawWallet returns the raw margin, withdrawable and position sub-objects of
// the first variant that answers with JSON.
func (c *Client) RawWallet(ctx context.Context, user string) (map[string]any, error) {
	var errs failures
	for _, v := range walletVariants(user) {
		payload, err := c.fetch(ctx, v)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs.add(v.label, err)
			continue
		}
		return normalize.WalletDebug(payload), nil
	}
	return nil, errors.New("hyperliquid: raw wallet: " + errs.String())
}
