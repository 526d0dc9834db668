package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// report prints per-keeper and per-job outcome tables plus the registry
// totals.
func (s *simulation) report(ctx context.Context) error {
	kt := table.NewWriter()
	kt.SetOutputMirror(os.Stdout)
	kt.AppendHeader(table.Row{"Keeper", "Settled", "Race Losses", "Failures", "Pending Rewards", "Reputation"})

	for i, wallet := range s.wallets {
		stats := s.nodes[i].Stats()
		kp, err := s.registry.Keeper(ctx, wallet)
		if err != nil {
			return err
		}
		kt.AppendRow(table.Row{
			shortKey(wallet.String()),
			stats.Settled,
			stats.RaceLosses,
			stats.Failures,
			kp.PendingRewards,
			kp.ReputationScore,
		})
	}
	kt.Render()

	jt := table.NewWriter()
	jt.SetOutputMirror(os.Stdout)
	jt.AppendHeader(table.Row{"Job", "Trigger", "Executions", "Balance", "Active"})

	for _, id := range s.jobIDs {
		job, err := s.registry.Job(ctx, id)
		if err != nil {
			return err
		}
		jt.AppendRow(table.Row{
			uint64(job.JobID),
			job.TriggerType.String(),
			job.ExecutionCount,
			job.Balance,
			job.IsActive,
		})
	}
	jt.Render()

	state, err := s.registry.State(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("registry: executions=%d successful=%d activeJobs=%d protocolRevenue=%d treasury=%d\n",
		state.TotalExecutions,
		state.SuccessfulExecutions,
		state.ActiveJobs,
		state.ProtocolRevenue,
		s.ledger.Balance(s.treasury),
	)

	return nil
}

func shortKey(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}
