package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/angelmondragon/workbooks-backend/api/responses"
	"github.com/angelmondragon/workbooks-backend/api/validators"
	"github.com/angelmondragon/workbooks-backend/internal/consumer"
	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

// MessageHandler processes one decoded command record.
type MessageHandler interface {
	Handle(ctx context.Context, rec envelope.Record) consumer.Result
}

// PubSubPush receives Pub/Sub push deliveries. A 204 acknowledges the
// message; a 503 asks Pub/Sub to redeliver it.
func PubSubPush(handler MessageHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validators.PushRequest
		if err := validators.DecodeOpenJSONBody(r, &req); err != nil {
			// redelivering an undecodable push body cannot succeed
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "message.dropped")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// data stays base64 text; the envelope parser decodes it
		message, err := json.Marshal(req.Message.Data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec := envelope.Record{
			MessageID:  req.Message.MessageID,
			Topic:      req.Subscription,
			Message:    message,
			Attributes: req.Message.Attributes,
		}
		if !req.Message.PublishTime.IsZero() {
			rec.Timestamp = req.Message.PublishTime.UTC().Format(time.RFC3339Nano)
		}

		if res := handler.Handle(r.Context(), rec); res.Retry {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
