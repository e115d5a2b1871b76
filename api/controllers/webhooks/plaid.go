package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/plaidbridge/api/responses"
	"github.com/angelmondragon/plaidbridge/internal/items"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
)

const (
	verificationHeader = "Plaid-Verification"
	maxWebhookBytes    = 1 << 20
)

type PlaidWebhookService interface {
	HandleWebhook(ctx context.Context, verification string, body []byte) (*items.WebhookEvent, error)
}

// PlaidWebhook receives item and transactions webhooks. The raw body is
// passed through untouched because its hash is part of the signed JWT.
func PlaidWebhook(svc PlaidWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		verification := strings.TrimSpace(r.Header.Get(verificationHeader))
		if verification == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "plaid verification header missing"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := svc.HandleWebhook(ctx, verification, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"webhook_type": event.WebhookType,
			"webhook_code": event.WebhookCode,
		})
	}
}
