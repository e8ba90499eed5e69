package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/formforge/FormForge/internal/steps"
)

// Minimal demonstration tool: reads candidate step JSONL from stdin, runs
// it through the validator, and prints what survives. The real service
// lives in cmd/FormForge.
func main() {
	validator := steps.NewValidator()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	accepted, rejected := 0, 0
	for scanner.Scan() {
		for _, candidate := range steps.DecodeCandidates(scanner.Text()) {
			step, cleanup, reject := validator.Validate(candidate)
			if reject != steps.RejectNone {
				rejected++
				fmt.Fprintf(os.Stderr, "rejected (%s)\n", reject)
				continue
			}
			accepted++
			out, err := json.Marshal(step)
			if err != nil {
				log.Fatalf("Failed to marshal step: %v", err)
			}
			fmt.Println(string(out))
			if cleanup.FallbackApplied || len(cleanup.DroppedOptions) > 0 {
				fmt.Fprintf(os.Stderr, "cleaned %s: dropped=%d fallback=%v\n",
					cleanup.StepID, len(cleanup.DroppedOptions), cleanup.FallbackApplied)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	fmt.Fprintf(os.Stderr, "accepted=%d rejected=%d\n", accepted, rejected)
}
