package postgres

import (
	"context"

	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

// GetRolloutBody reads the core part of rollouts by id.
//
// Ids hitting no row are simply absent from the returned map.
func GetRolloutBody(ctx context.Context, conn kpool.Queryer, rolloutIds []string) (map[string]domain.RolloutBody, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"rollout_id", "release_id", "app_name", "env",
			"status", "target_color", "phase", "cause", "rollout"."updated_at"
		from "rollout"
		inner join "release" using ("release_id")
		inner join "app" on "app"."name" = "release"."app_name"
		where "rollout_id" = any($1)
		`,
		rolloutIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]domain.RolloutBody{}
	for rows.Next() {
		var (
			body        domain.RolloutBody
			env         string
			status      string
			targetColor string
		)
		if err := rows.Scan(
			&body.Id, &body.ReleaseId, &body.AppName, &env,
			&status, &targetColor, &body.Phase, &body.Cause, &body.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if body.Env, err = domain.AsEnv(env); err != nil {
			return nil, err
		}
		if body.Status, err = domain.AsRolloutStatus(status); err != nil {
			return nil, err
		}
		if body.TargetColor, err = domain.AsColor(targetColor); err != nil {
			return nil, err
		}

		result[body.Id] = body
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetRollout reads rollouts by id, release, status history and gate reports included.
func GetRollout(ctx context.Context, conn kpool.Queryer, rolloutIds []string) (map[string]domain.Rollout, error) {
	bodies, err := GetRolloutBody(ctx, conn, rolloutIds)
	if err != nil {
		return nil, err
	}

	var releases map[string]domain.Release
	{
		releaseIds := map[string]struct{}{}
		for _, body := range bodies {
			releaseIds[body.ReleaseId] = struct{}{}
		}
		releases, err = GetRelease(ctx, conn, slices.KeysOf(releaseIds))
		if err != nil {
			return nil, err
		}
	}

	histories := map[string][]domain.StatusChange{}
	{
		rows, err := conn.Query(
			ctx,
			`
			select "rollout_id", "status", "note", "at"
			from "rollout_status_history"
			where "rollout_id" = any($1)
			order by "id"
			`,
			rolloutIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rolloutId string
				status    string
				change    domain.StatusChange
			)
			if err := rows.Scan(&rolloutId, &status, &change.Note, &change.At); err != nil {
				return nil, err
			}
			if change.Status, err = domain.AsRolloutStatus(status); err != nil {
				return nil, err
			}
			histories[rolloutId] = append(histories[rolloutId], change)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	reports := map[string][]domain.GateReport{}
	{
		rows, err := conn.Query(
			ctx,
			`
			select "rollout_id", "kind", "outcome", "summary", "samples", "threshold", "observed_at"
			from "gate_report"
			where "rollout_id" = any($1)
			order by "id"
			`,
			rolloutIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rolloutId string
				kind      string
				outcome   string
				report    domain.GateReport
			)
			if err := rows.Scan(
				&rolloutId, &kind, &outcome,
				&report.Summary, &report.Samples, &report.Threshold, &report.ObservedAt,
			); err != nil {
				return nil, err
			}
			if report.Kind, err = domain.AsGateKind(kind); err != nil {
				return nil, err
			}
			report.Outcome = domain.GateOutcome(outcome)
			reports[rolloutId] = append(reports[rolloutId], report)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	result := map[string]domain.Rollout{}
	for rolloutId, body := range bodies {
		result[rolloutId] = domain.Rollout{
			RolloutBody: body,
			Release:     releases[body.ReleaseId],
			History:     histories[rolloutId],
			Reports:     reports[rolloutId],
		}
	}
	return result, nil
}
