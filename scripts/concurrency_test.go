//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the lending API.
//
// Usage:
//
//	SERVER_ADDR=http://localhost:8080 \
//	OWNER_ID=<uuid> OWNER_TOKEN=<jwt> BOOK_ISBN=<isbn> \
//	REQUESTER_TOKENS=<jwt1>,<jwt2>,... \
//	go run ./scripts/concurrency_test.go
//
// Tokens can be issued with `lendctl token --user <uuid>`.
//
// What it does:
//  1. Fires one create request per requester token, all at once, against the same (owner, book).
//     Exactly one must get 201; every other caller must get 409.
//  2. Fires N accept calls for the winning request at once with the owner token.
//     Exactly one must get 200; the rest must get 409.
//  3. Returns the book and checks that the copy is available again.
//
// Prerequisites:
//   - Server running, migrations applied.
//   - The owner has an available copy of BOOK_ISBN and no active request exists for it.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultServerAddr = "http://localhost:8080"
	acceptAttempts    = 8
)

type callResult struct {
	StatusCode int
	Body       map[string]interface{}
	Err        error
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	ownerID := os.Getenv("OWNER_ID")
	ownerToken := os.Getenv("OWNER_TOKEN")
	isbn := os.Getenv("BOOK_ISBN")
	var requesterTokens []string
	for _, t := range strings.Split(os.Getenv("REQUESTER_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			requesterTokens = append(requesterTokens, t)
		}
	}
	if ownerID == "" || ownerToken == "" || isbn == "" || len(requesterTokens) == 0 {
		log.Fatal("OWNER_ID, OWNER_TOKEN, BOOK_ISBN and REQUESTER_TOKENS are required")
	}

	fmt.Printf("=== Lending Concurrency Test ===\n")
	fmt.Printf("Server     : %s\n", serverAddr)
	fmt.Printf("Owner/Book : %s / %s\n", ownerID, isbn)
	fmt.Printf("Requesters : %d\n\n", len(requesterTokens))

	// 1. Competing creates.
	body := fmt.Sprintf(`{"owner_user_id":"%s","book_isbn":"%s"}`, ownerID, isbn)
	creates := fireTogether(len(requesterTokens), func(i int) callResult {
		return call(http.MethodPost, serverAddr+"/api/loans", requesterTokens[i], body)
	})
	var loanID string
	created, conflicts, failures := 0, 0, 0
	for _, r := range creates {
		switch {
		case r.Err != nil:
			failures++
		case r.StatusCode == http.StatusCreated:
			created++
			if loan, ok := r.Body["loan"].(map[string]interface{}); ok {
				loanID, _ = loan["id"].(string)
			}
		case r.StatusCode == http.StatusConflict:
			conflicts++
		default:
			failures++
		}
	}
	fmt.Printf("--- Create ---\ncreated=%d conflicts=%d failures=%d\n\n", created, conflicts, failures)
	if created != 1 || loanID == "" {
		log.Fatalf("[FAIL] expected exactly one created request, got %d", created)
	}

	// 2. Competing accepts on the same request.
	accepts := fireTogether(acceptAttempts, func(int) callResult {
		return call(http.MethodPost, serverAddr+"/api/loans/"+loanID+"/accept", ownerToken, "")
	})
	accepted, acceptConflicts := 0, 0
	for _, r := range accepts {
		switch r.StatusCode {
		case http.StatusOK:
			accepted++
		case http.StatusConflict:
			acceptConflicts++
		}
	}
	fmt.Printf("--- Accept ---\naccepted=%d conflicts=%d\n\n", accepted, acceptConflicts)
	if accepted != 1 {
		log.Fatalf("[FAIL] expected exactly one accept, got %d", accepted)
	}

	// 3. Return and probe the ledger.
	ret := call(http.MethodPost, serverAddr+"/api/loans/"+loanID+"/return", ownerToken, "")
	if ret.StatusCode != http.StatusOK {
		log.Fatalf("[FAIL] return: status %d err %v", ret.StatusCode, ret.Err)
	}
	probe := call(http.MethodGet, serverAddr+"/api/owners/"+ownerID+"/books/"+isbn+"/availability", ownerToken, "")
	fmt.Println("--- Invariant Check ---")
	if available, _ := probe.Body["is_available"].(bool); !available {
		log.Fatal("[FAIL] copy is not available after return")
	}
	fmt.Println("At most one active request per (owner, book) and the copy is back on the shelf.")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d create request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// fireTogether starts n goroutines behind a barrier and waits for all of them.
func fireTogether(n int, fn func(i int) callResult) []callResult {
	results := make([]callResult, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = fn(idx)
		}(i)
	}
	close(start)
	wg.Wait()
	return results
}

func call(method, url, token, body string) callResult {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return callResult{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return callResult{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	_ = json.Unmarshal(raw, &parsed)
	return callResult{StatusCode: resp.StatusCode, Body: parsed}
}
