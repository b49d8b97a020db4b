package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	matchAttempts      atomic.Int64
	matchesCreated     atomic.Int64
	noMatchOutcomes    atomic.Int64
	attemptErrors      atomic.Int64
	candidatesExpired  atomic.Int64
	openCandidatesSeen atomic.Int64
)

func Init() {}

func IncAttempt()      { matchAttempts.Add(1) }
func IncMatched()      { matchesCreated.Add(1) }
func IncNoMatch()      { noMatchOutcomes.Add(1) }
func IncAttemptError() { attemptErrors.Add(1) }

func AddExpired(n int64) { candidatesExpired.Add(n) }

// SetOpenCandidates records the open-candidate count observed by the latest
// sweep.
func SetOpenCandidates(n int64) { openCandidatesSeen.Store(n) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP partyof4_matching_attempts_total Number of match attempts started.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_attempts_total counter\n")
	fmt.Fprintf(w, "partyof4_matching_attempts_total %d\n", matchAttempts.Load())

	fmt.Fprintf(w, "# HELP partyof4_matching_matches_total Number of matches created.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_matches_total counter\n")
	fmt.Fprintf(w, "partyof4_matching_matches_total %d\n", matchesCreated.Load())

	fmt.Fprintf(w, "# HELP partyof4_matching_no_match_total Number of attempts that found no compatible quartet.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_no_match_total counter\n")
	fmt.Fprintf(w, "partyof4_matching_no_match_total %d\n", noMatchOutcomes.Load())

	fmt.Fprintf(w, "# HELP partyof4_matching_attempt_errors_total Number of attempts that failed on store or lock errors.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_attempt_errors_total counter\n")
	fmt.Fprintf(w, "partyof4_matching_attempt_errors_total %d\n", attemptErrors.Load())

	fmt.Fprintf(w, "# HELP partyof4_matching_candidates_expired_total Number of candidates aged out by the sweep.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_candidates_expired_total counter\n")
	fmt.Fprintf(w, "partyof4_matching_candidates_expired_total %d\n", candidatesExpired.Load())

	fmt.Fprintf(w, "# HELP partyof4_matching_open_candidates Open candidates observed by the latest sweep.\n")
	fmt.Fprintf(w, "# TYPE partyof4_matching_open_candidates gauge\n")
	fmt.Fprintf(w, "partyof4_matching_open_candidates %d\n", openCandidatesSeen.Load())
}
