// Package http exposes the collaborator surface of the daemon: a trigger
// endpoint, a live transcript stream encoded as server-sent events and a
// small demo page. The protocol itself never depends on this package.
package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/IKycTI/SigmaProtocol/common/log"
	"github.com/IKycTI/SigmaProtocol/internal/core"
	"github.com/IKycTI/SigmaProtocol/internal/transcript"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>sigma protocol demo</title></head>
<body>
<h1>Sigma protocol demo</h1>
<button onclick="fetch('/start', {method: 'POST'})">start a proof</button>
<pre id="log"></pre>
<script>
const log = document.getElementById('log');
new EventSource('/logs').onmessage = (e) => {
	log.textContent += e.data + '\n';
};
</script>
</body>
</html>
`

// New creates the HTTP handler routing the public endpoints.
func New(d *core.Daemon, l log.Logger) http.Handler {
	h := &handler{d: d, log: l.Named("http")}
	mux := chi.NewRouter()
	mux.Get("/", h.Index)
	mux.Post("/start", h.Start)
	mux.Get("/logs", h.Logs)
	return mux
}

type handler struct {
	d   *core.Daemon
	log log.Logger
}

func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, indexPage)
}

// Start triggers a run and replies immediately; the run itself proceeds in
// the background. A second trigger while a run is live is a conflict.
func (h *handler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.d.StartRun(); err != nil {
		if errors.Is(err, core.ErrRunInProgress) {
			h.log.Warnw("run trigger rejected", "addr", r.RemoteAddr, "err", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.log.Errorw("run trigger failed", "addr", r.RemoteAddr, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.Infow("run triggered", "addr", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
}

// Logs streams transcript events as server-sent events until the client
// disconnects. A lagging client gets a note with the number of skipped
// events instead of blocking the producer.
func (h *handler) Logs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.d.Subscribe()
	defer sub.Close()
	h.log.Infow("observer connected", "addr", r.RemoteAddr)

	for {
		ev, err := sub.Recv(r.Context())
		var lag *transcript.LagError
		switch {
		case err == nil:
			writeSSE(w, ev.String())
		case errors.As(err, &lag):
			writeSSE(w, fmt.Sprintf("skipped %d messages", lag.Skipped))
		default:
			// client gone or daemon stopped
			h.log.Infow("observer disconnected", "addr", r.RemoteAddr, "reason", err)
			return
		}
		flusher.Flush()
	}
}

// writeSSE encodes one message as an SSE data frame, prefixing every line.
func writeSSE(w http.ResponseWriter, msg string) {
	for _, line := range strings.Split(msg, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}
