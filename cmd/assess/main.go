// Command assess scores a snapshot file offline and prints the assessments
// and gym health as JSON.
//
// Usage:
//
//	assess [-policy scoring.cue] [-workers 8] snapshot.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/policy"
	"github.com/matthewbaird/retention/internal/snapshot"
	"github.com/matthewbaird/retention/internal/types"
)

type output struct {
	Assessments []assessment.RiskAssessment `json:"assessments"`
	GymHealth   assessment.GymHealthScore   `json:"gym_health"`
}

func main() {
	policyFile := flag.String("policy", "", "scoring policy file (CUE or JSON)")
	workers := flag.Int("workers", 0, "members scored concurrently")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: assess [-policy file] [-workers n] snapshot.json")
		os.Exit(2)
	}
	if err := run(context.Background(), flag.Arg(0), *policyFile, *workers, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "assess:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path, policyFile string, workers int, w io.Writer) error {
	p, err := policy.Load(policyFile)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if err := snapshot.Validate(&snap); err != nil {
		return err
	}

	all, err := assessment.New(p, workers).ComputeAll(ctx, &snap, nil)
	if err != nil {
		return err
	}
	list := assessment.Values(all)
	assessment.ByRisk(list)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output{Assessments: list, GymHealth: assessment.ComputeGymHealth(list)})
}
