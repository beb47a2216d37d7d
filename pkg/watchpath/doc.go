// Package watchpath analyzes combined-format web access logs. It groups
// requests into per-visitor sessions, asks a language model to narrate each
// session and always returns a well-formed analysis, falling back to
// heuristics when the model output is unusable or the model is unreachable.
//
// Quick start:
//
//	w, err := watchpath.New(watchpath.WithBackend("ollama"), watchpath.WithModel("mistral:7b-instruct"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reports, stats, err := w.AnalyzeFile(ctx, "/var/log/nginx/access.log")
//	for _, r := range reports {
//	    fmt.Println(r.SessionID, r.Severity, r.Note, stats.IPDistribution[r.IP])
//	}
//
// A Watchpath is safe for concurrent use.
package watchpath
