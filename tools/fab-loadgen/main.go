// fab-loadgen is a tiny, dependency-free HTTP load generator for the fabd
// demo server. It reuses HTTP connections (keep-alive) and runs many
// sessions concurrently, each driving its own init_tick/fill/step/mix tick
// cycle against the server, so the fleet token pool and per-session mode
// machine see real concurrent contention rather than a single serialized
// client.
//
// Usage:
//
//	fab-loadgen -base=http://127.0.0.1:8080 -sessions=200 -ticks=50 -c=16
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		base     = flag.String("base", "http://127.0.0.1:8080", "Base URL of a running fabd instance")
		sessions = flag.Int("sessions", 200, "Total number of distinct sessions to simulate")
		ticks    = flag.Int("ticks", 50, "Tick cycles (init_tick+fill+step+mix) per session")
		conc     = flag.Int("c", 16, "Number of concurrent workers")
		nodes    = flag.Int("nodes", 16, "budgets.nodes per init_tick")
		tokens   = flag.Int("tokens", 512, "budgets.tokens per init_tick")
		timeout  = flag.Duration("timeout", 60*time.Second, "Overall timeout for the run")
		maxIdle  = flag.Int("max_idle_per_host", 256, "Max idle HTTP connections per host")
	)
	flag.Parse()

	if *sessions <= 0 || *ticks <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-sessions, -ticks, and -c must all be > 0")
		os.Exit(2)
	}

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        *maxIdle * 2,
			MaxIdleConnsPerHost: *maxIdle,
			IdleConnTimeout:     30 * time.Second,
		},
		Timeout: 5 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		okTicks      int64
		rejectedTick int64
		httpErrors   int64
	)

	work := make(chan int, *sessions)
	for i := 0; i < *sessions; i++ {
		work <- i
	}
	close(work)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				select {
				case <-ctx.Done():
					return
				default:
				}
				runSession(ctx, client, *base, idx, *ticks, *nodes, *tokens, &okTicks, &rejectedTick, &httpErrors)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	totalTicks := atomic.LoadInt64(&okTicks) + atomic.LoadInt64(&rejectedTick)
	fmt.Printf("fab-loadgen: sessions=%d ticks/session=%d c=%d go=%d duration=%s ok=%d rejected_429=%d http_errors=%d throughput=%.0f ticks/s\n",
		*sessions, *ticks, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond),
		atomic.LoadInt64(&okTicks), atomic.LoadInt64(&rejectedTick), atomic.LoadInt64(&httpErrors),
		float64(totalTicks)/elapsed.Seconds())
}

type initTickBody struct {
	Mode    string `json:"mode"`
	Budgets struct {
		Nodes  int `json:"Nodes"`
		Tokens int `json:"Tokens"`
	} `json:"budgets"`
}

func runSession(ctx context.Context, client *http.Client, base string, sessionIdx, ticks, nodes, tokens int, okTicks, rejectedTick, httpErrors *int64) {
	sessionID := fmt.Sprintf("loadgen-%d", sessionIdx)
	for t := 0; t < ticks; t++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var body initTickBody
		body.Mode = "FAB0"
		body.Budgets.Nodes = nodes
		body.Budgets.Tokens = tokens
		status, err := postJSON(ctx, client, base+"/sessions/"+sessionID+"/init_tick", body)
		if err != nil {
			atomic.AddInt64(httpErrors, 1)
			continue
		}
		if status == http.StatusTooManyRequests {
			atomic.AddInt64(rejectedTick, 1)
			continue
		}
		if status != http.StatusNoContent {
			atomic.AddInt64(httpErrors, 1)
			continue
		}

		zslice := syntheticZSlice(nodes)
		if status, err := postJSON(ctx, client, base+"/sessions/"+sessionID+"/fill", zslice); err != nil || status != http.StatusNoContent {
			atomic.AddInt64(httpErrors, 1)
			continue
		}

		metrics := map[string]float64{"Stress": 0.1, "SelfPresence": 0.9, "ErrorRate": 0.0}
		if status, err := postJSON(ctx, client, base+"/sessions/"+sessionID+"/step", metrics); err != nil || status != http.StatusOK {
			atomic.AddInt64(httpErrors, 1)
			continue
		}

		if status, err := getDiscard(ctx, client, base+"/sessions/"+sessionID+"/mix"); err != nil || status != http.StatusOK {
			atomic.AddInt64(httpErrors, 1)
			continue
		}

		atomic.AddInt64(okTicks, 1)
	}
}

func syntheticZSlice(nodes int) map[string]any {
	nodeList := make([]map[string]any, 0, nodes*2)
	for i := 0; i < nodes*2; i++ {
		nodeList = append(nodeList, map[string]any{
			"ID":    fmt.Sprintf("n%d", i),
			"Score": 0.5 + 0.4*float64(i%3)/2.0,
		})
	}
	return map[string]any{
		"Nodes":  nodeList,
		"Quotas": map[string]any{"Nodes": nodes},
		"Seed":   fmt.Sprintf("loadgen-seed-%d", time.Now().UnixNano()%997),
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func getDiscard(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
