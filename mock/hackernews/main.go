// Command hackernews serves a deterministic stand-in for the Hacker News
// Firebase API, for running the service without internet access.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	storyCount = 200
	firstID    = 40000000
	baseTime   = 1700000000
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	latency := flag.Duration("latency", 50*time.Millisecond, "max simulated latency per request")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v0/beststories.json", func(w http.ResponseWriter, r *http.Request) {
		simulateLatency(*latency)

		ids := make([]int, storyCount)
		for i := range ids {
			ids[i] = firstID + i
		}
		writeJSON(w, r, ids)
	})

	mux.HandleFunc("GET /v0/item/{file}", func(w http.ResponseWriter, r *http.Request) {
		simulateLatency(*latency)

		id, err := parseItemFile(r.PathValue("file"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, r, item(id))
	})

	mux.HandleFunc("GET /v0/maxitem.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, firstID+storyCount-1)
	})

	log.Printf("[Mock HN] running on %s", *addr)
	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

// item returns the story for id, or nil (served as JSON null) for ids that
// are outside the ranking or deliberately missing.
func item(id int) map[string]interface{} {
	n := id - firstID
	if n < 0 || n >= storyCount || n%37 == 36 {
		return nil
	}

	return map[string]interface{}{
		"id":          id,
		"type":        "story",
		"by":          fmt.Sprintf("user%d", n%23),
		"title":       fmt.Sprintf("Mock story #%d", n+1),
		"url":         fmt.Sprintf("https://example.com/stories/%d", id),
		"time":        baseTime + n*97,
		"score":       (n*7919)%1000 + 1,
		"descendants": (n * 31) % 400,
	}
}

func parseItemFile(file string) (int, error) {
	const suffix = ".json"
	if len(file) <= len(suffix) || file[len(file)-len(suffix):] != suffix {
		return 0, fmt.Errorf("unknown resource %q", file)
	}

	return strconv.Atoi(file[:len(file)-len(suffix)])
}

func simulateLatency(max time.Duration) {
	if max <= 0 {
		return
	}
	time.Sleep(time.Duration(time.Now().UnixNano() % int64(max)))
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Mock HN] write error: %v", err)
		return
	}

	log.Printf("[Mock HN] %s %s - 200 OK", r.Method, r.URL.Path)
}
