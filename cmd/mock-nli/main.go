// mock-nli serves the faithgate inference API backed by the lexical
// overlap scorer. It exists so the full pipeline can be exercised in
// development and CI without model weights:
//
//	go run ./cmd/mock-nli -addr :8093
//	faithgate evaluate --evidence chunks.json --base-url http://localhost:8093 "..."
//
// The served channel order is contradiction=0, entailment=1,
// neutral=2, matching faithgate's default label order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/faithgate/faithgate/internal/nli"
)

type entailmentRequest struct {
	Model string `json:"model"`
	Pairs []struct {
		Premise    string `json:"premise"`
		Hypothesis string `json:"hypothesis"`
	} `json:"pairs"`
}

type entailmentResponse struct {
	Model         string      `json:"model"`
	Probabilities [][]float64 `json:"probabilities"`
}

func main() {
	addr := flag.String("addr", ":8093", "listen address")
	flag.Parse()

	scorer := nli.NewLexicalScorer("")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/entailment", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req entailmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"bad request: %v"}`, err), http.StatusBadRequest)
			return
		}

		pairs := make([]nli.Pair, len(req.Pairs))
		for i, p := range req.Pairs {
			pairs[i] = nli.Pair{Premise: p.Premise, Hypothesis: p.Hypothesis}
		}

		scores, err := scorer.Score(context.Background(), pairs)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
			return
		}

		resp := entailmentResponse{
			Model:         scorer.Model(),
			Probabilities: make([][]float64, len(scores)),
		}
		for i, s := range scores {
			resp.Probabilities[i] = []float64{s.Contradiction, s.Entailment, s.Neutral}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	log.Printf("mock-nli listening on %s (model %s)", *addr, scorer.Model())
	log.Fatal(http.ListenAndServe(*addr, mux))
}
