package runtime

import (
	"fmt"
	"io"
	"strings"

	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
)

// Summary renders the worker topology as shown at startup.
func (r *Registry) Summary() string {
	var b strings.Builder
	r.renderSummary(&b)
	return b.String()
}

func (r *Registry) renderSummary(w io.Writer) {
	fmt.Fprintf(w, "skinos worker\n")
	fmt.Fprintf(w, "  .> mode: %s\n", r.mode)
	fmt.Fprintf(w, "  .> error reporting: %t, re-raise: %t\n", r.policy.Report, r.policy.Reraise)
	fmt.Fprintf(w, "  .> accept: %s\n", strings.Join(r.Accept(), ", "))
	fmt.Fprintf(w, "  .> number of exchange(s): %d\n", len(r.exchangeOrder))
	fmt.Fprintf(w, "  .> number of queue(s): %d\n\n", len(r.queueOrder))

	fmt.Fprintf(w, "[exchanges]\n")
	for _, ex := range r.Exchanges() {
		fmt.Fprintf(w, "  .> %s (%s) [routing: %s]\n", ex.Name, ex.Type, ex.RoutingKey)
	}
	fmt.Fprintf(w, "\n[queues]\n")
	for _, q := range r.Queues() {
		fmt.Fprintf(w, "  .> %s (ex: %s, b_key: %s)\n", q.Name, q.Exchange.Name, q.BindingKey)
	}
	fmt.Fprintf(w, "\n[tasks]\n")
	for _, reg := range r.Registrations() {
		for _, h := range reg.Handlers {
			fmt.Fprintf(w, "  .> %s (ex: %s, q: %s, b_key: %s)\n", h.Task, reg.Exchange(), reg.Queue.Name, reg.BindingKey)
		}
	}
}

func (r *Registry) writeSummary() {
	if r.summary != nil {
		r.renderSummary(r.summary)
	}
	r.logger.Info("Worker topology", loggingpkg.LogFields{
		"mode":            r.mode.String(),
		"error_reporting": r.policy.Report,
		"reraise":         r.policy.Reraise,
		"exchanges":       len(r.exchangeOrder),
		"queues":          len(r.queueOrder),
		"consumers":       len(r.regOrder),
		"handlers":        r.handlerCount,
	})
}
