// Package webhook receives push notifications from the content source
// and converts them into scoped reconciliation triggers. Authenticity
// is validated here, at the edge; the core trusts its callers.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driving"
	"github.com/perch-labs/perch/internal/logger"
)

// DefaultTriggerTimeout bounds the background pass started for one
// webhook delivery.
const DefaultTriggerTimeout = 2 * time.Minute

// Handler accepts Ghost post webhooks (post.published, post.updated,
// post.deleted) and fires a scoped trigger for the affected post. The
// response does not wait for the pass: webhook senders time out fast,
// and a missed delivery is repaired by the next poll anyway.
type Handler struct {
	reconciler driving.Reconciler
	secret     string
	timeout    time.Duration

	wg sync.WaitGroup
}

// NewHandler creates a webhook handler. The secret is the shared
// token carried in the webhook URL's token query parameter.
func NewHandler(reconciler driving.Reconciler, secret string) *Handler {
	return &Handler{
		reconciler: reconciler,
		secret:     secret,
		timeout:    DefaultTriggerTimeout,
	}
}

// payload is the envelope Ghost posts for post.* events. Deletions
// carry the post under previous; creates and updates under current.
type payload struct {
	Post struct {
		Current  postRef `json:"current"`
		Previous postRef `json:"previous"`
	} `json:"post"`
}

type postRef struct {
	URL  string `json:"url"`
	Slug string `json:"slug"`
}

// identifier picks the best available handle on the affected post.
func (p *payload) identifier() string {
	for _, candidate := range []string{
		p.Post.Current.URL,
		p.Post.Current.Slug,
		p.Post.Previous.URL,
		p.Post.Previous.Slug,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var body payload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	identifier := body.identifier()
	if identifier == "" {
		http.Error(w, "payload names no post", http.StatusBadRequest)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		report, err := h.reconciler.Trigger(ctx, domain.Trigger{
			Reason: domain.ReasonWebhook,
			Key:    identifier,
		})
		if err != nil {
			logger.Error("webhook trigger for %s failed: %v", identifier, err)
			return
		}
		if report.Failed > 0 {
			logger.Error("webhook trigger for %s applied with %d failures", identifier, report.Failed)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Wait blocks until all in-flight triggers finish. Used on shutdown.
func (h *Handler) Wait() {
	h.wg.Wait()
}
